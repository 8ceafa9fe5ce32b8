// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/goal"
	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// LLMCandidateSource asks a chat model for one candidate action per call.
//
// # Thread Safety
//
// Stateless apart from the underlying client; safe for concurrent use if
// the client is.
type LLMCandidateSource struct {
	client providers.ChatClient
	logger *slog.Logger
}

// NewLLMCandidateSource wraps client as a CandidateSource.
func NewLLMCandidateSource(client providers.ChatClient, logger *slog.Logger) *LLMCandidateSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMCandidateSource{client: client, logger: logger}
}

const proposeTemplate = `You are planning the next step of a network diagnosis.

%s

Diagnosis state:
%s

Recent actions:
%s

Known entities:
%s

Available tools:
%s

Choose exactly one next action. Respond with a single JSON object:
{
  "action": "<tool name from the list>",
  "arguments": {"<param>": "<concrete value>"},
  "rationale": "<why this action now>",
  "expected_outcome": "<what the result should show>",
  "next_focus": "<what to examine after this>"
}
Use only concrete values you can see above. If the diagnosis is complete,
use the action "finish_diagnosis".`

// Propose runs one generation call and parses at most one candidate.
//
// Outputs:
//   - *Candidate: nil when the response failed to parse; the caller treats
//     that the same as a transport error.
//   - error: Transport-level failure.
func (s *LLMCandidateSource) Propose(ctx context.Context, req ProposeRequest) (*Candidate, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no chat client configured")
	}
	prompt := fmt.Sprintf(proposeTemplate,
		req.Goal.Summary(),
		req.ContextSummary,
		req.History,
		formatEntities(req.KnownEntities),
		req.ToolList,
	)

	resp, err := s.client.Chat(ctx, []providers.Message{
		{Role: "user", Content: prompt},
	}, providers.ChatOptions{Temperature: req.Temperature, MaxTokens: 600})
	if err != nil {
		return nil, fmt.Errorf("candidate generation call failed: %w", err)
	}

	cand := parseCandidate(resp)
	if cand == nil {
		s.logger.Debug("candidate response did not parse",
			slog.String("head", head(resp, 120)))
	}
	return cand, nil
}

const exactTemplate = `The planner failed to pick a valid tool for this diagnosis:

%s

State:
%s

Valid tool names, exactly as spelled:
%s
Answer with ONE name from the list above, nothing else.`

// ProposeExact runs the strict fallback query and returns the raw name the
// model answered with, untrimmed of validity: the caller fuzzy-matches it.
func (s *LLMCandidateSource) ProposeExact(ctx context.Context, g goal.Goal, contextSummary, nameList string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("no chat client configured")
	}
	resp, err := s.client.Chat(ctx, []providers.Message{
		{Role: "user", Content: fmt.Sprintf(exactTemplate, g.Summary(), contextSummary, nameList)},
	}, providers.ChatOptions{Temperature: 0, MaxTokens: 40})
	if err != nil {
		return "", fmt.Errorf("strict fallback call failed: %w", err)
	}
	return strings.Trim(strings.TrimSpace(resp), "`\"'"), nil
}

// parseCandidate extracts one candidate from a model response, tolerating
// the field-name drift generation models exhibit.
func parseCandidate(resp string) *Candidate {
	raw, ok := providers.ExtractJSONObject(resp)
	if !ok {
		return nil
	}
	var parsed struct {
		Action          string         `json:"action"`
		Tool            string         `json:"tool"`
		ToolName        string         `json:"tool_name"`
		Arguments       map[string]any `json:"arguments"`
		Args            map[string]any `json:"args"`
		Rationale       string         `json:"rationale"`
		Reasoning       string         `json:"reasoning"`
		ExpectedOutcome string         `json:"expected_outcome"`
		NextFocus       string         `json:"next_focus"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}

	name := firstNonEmpty(parsed.Action, parsed.Tool, parsed.ToolName)
	if name == "" {
		return nil
	}
	args := parsed.Arguments
	if args == nil {
		args = parsed.Args
	}
	m := kv.Map(args)
	if m == nil {
		m = kv.Map{}
	}
	if err := m.Validate(); err != nil {
		return nil
	}

	return &Candidate{
		ActionName:      strings.TrimSpace(name),
		Arguments:       m,
		Rationale:       firstNonEmpty(parsed.Rationale, parsed.Reasoning),
		ExpectedOutcome: parsed.ExpectedOutcome,
		NextFocus:       parsed.NextFocus,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func formatEntities(entities map[session.EntityType][]string) string {
	if len(entities) == 0 {
		return "none discovered yet"
	}
	types := make([]string, 0, len(entities))
	for typ := range entities {
		types = append(types, string(typ))
	}
	sort.Strings(types)
	var sb strings.Builder
	for _, typ := range types {
		ids := entities[session.EntityType(typ)]
		fmt.Fprintf(&sb, "  %s: %s\n", typ, strings.Join(ids, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
