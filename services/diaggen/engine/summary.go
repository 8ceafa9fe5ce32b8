// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/output"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// maxSummaryNodes caps how many devices the closing step reviews.
const maxSummaryNodes = 5

// nodeVerdict is one device's entry in the closing summary step.
type nodeVerdict struct {
	Node           string `json:"node"`
	Status         string `json:"status"`
	Cause          string `json:"cause,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

const summaryPrompt = `Summarize this network diagnosis per device.

Diagnosis chain:
%s

Findings:
%s

Devices: %s

Respond with a single JSON object:
{
  "summary": "<two-sentence overall conclusion>",
  "nodes": [{"node": "...", "status": "normal|abnormal", "cause": "...", "recommendation": "..."}]
}
Cover exactly the devices listed, in order.`

// buildSummaryStep renders the closing step: one node_check entry per
// reviewed device plus a concluding chain-of-thought.
//
// The chat model writes the verdicts when available; any failure falls
// back to a deterministic summary derived from the session's findings, so
// every trace ends with a summary regardless of model health.
func buildSummaryStep(ctx context.Context, client providers.ChatClient, state *session.DiagnosticSession, logger *slog.Logger) (string, []output.COAEntry) {
	devices := state.Entities().Get(session.EntityDevice)
	if len(devices) == 0 {
		devices = []string{"unidentified-device"}
	}
	if len(devices) > maxSummaryNodes {
		devices = devices[:maxSummaryNodes]
	}

	cot, verdicts := modelSummary(ctx, client, state, devices, logger)
	if verdicts == nil {
		cot, verdicts = fallbackSummary(state, devices)
	}

	coa := make([]output.COAEntry, 0, len(verdicts))
	for _, v := range verdicts {
		args := kv.Map{"node": v.Node, "status": v.Status}
		if v.Cause != "" {
			args["cause"] = v.Cause
		}
		if v.Recommendation != "" {
			args["recommendation"] = v.Recommendation
		}
		coa = append(coa, output.COAEntry{
			Action:      output.ActionCall{Name: "node_check", Args: args},
			Observation: kv.Map{"node": v.Node, "status": v.Status},
		})
	}
	return cot, coa
}

func modelSummary(ctx context.Context, client providers.ChatClient, state *session.DiagnosticSession, devices []string, logger *slog.Logger) (string, []nodeVerdict) {
	if client == nil {
		return "", nil
	}

	resp, err := client.Chat(ctx, []providers.Message{
		{Role: "user", Content: fmt.Sprintf(summaryPrompt, state.FormatChain(), state.FormatFindings(), strings.Join(devices, ", "))},
	}, providers.ChatOptions{Temperature: 0.3, MaxTokens: 500})
	if err != nil {
		logger.Debug("summary generation failed, using deterministic fallback", slog.Any("error", err))
		return "", nil
	}

	raw, ok := providers.ExtractJSONObject(resp)
	if !ok {
		return "", nil
	}
	var parsed struct {
		Summary string        `json:"summary"`
		Nodes   []nodeVerdict `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed.Nodes) == 0 {
		return "", nil
	}
	if len(parsed.Nodes) > maxSummaryNodes {
		parsed.Nodes = parsed.Nodes[:maxSummaryNodes]
	}
	for i := range parsed.Nodes {
		if parsed.Nodes[i].Status != "abnormal" {
			parsed.Nodes[i].Status = "normal"
		}
	}
	if parsed.Summary == "" {
		parsed.Summary = "Diagnosis complete."
	}
	return parsed.Summary, parsed.Nodes
}

// fallbackSummary derives verdicts from recorded findings alone.
func fallbackSummary(state *session.DiagnosticSession, devices []string) (string, []nodeVerdict) {
	var worst session.Severity = session.SeverityLow
	var topFinding string
	abnormal := false
	for _, f := range state.Findings() {
		if f.Severity == session.SeverityMedium || f.Severity == session.SeverityHigh {
			abnormal = true
		}
		if topFinding == "" || severityRank(f.Severity) > severityRank(worst) {
			worst = f.Severity
			topFinding = f.Description
		}
	}

	verdicts := make([]nodeVerdict, 0, len(devices))
	for i, d := range devices {
		v := nodeVerdict{Node: d, Status: "normal"}
		// The first device carries the verdict; fan-out devices without
		// their own findings stay normal.
		if i == 0 && abnormal {
			v.Status = "abnormal"
			v.Cause = topFinding
			v.Recommendation = "inspect the affected component and re-run the failing check"
		}
		verdicts = append(verdicts, v)
	}

	cot := "Diagnosis complete: no significant anomaly was found."
	if abnormal {
		cot = fmt.Sprintf("Diagnosis complete: %s. See per-node verdicts.", topFinding)
	}
	return cot, verdicts
}

func severityRank(s session.Severity) int {
	switch s {
	case session.SeverityHigh:
		return 2
	case session.SeverityMedium:
		return 1
	default:
		return 0
	}
}
