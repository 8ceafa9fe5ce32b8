// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package goal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
)

var tracer = otel.Tracer("tracegen.goal")

// Extractor derives structured goals from questions, preferring a chat
// model and falling back to pattern extraction when the model is
// unavailable or returns garbage.
type Extractor struct {
	client providers.ChatClient
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil client disables model-based
// extraction entirely.
func NewExtractor(client providers.ChatClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

const extractPrompt = `Extract the diagnostic goal from the user question below.

Question: %s

Respond with a single JSON object:
{
  "description": "<one-sentence objective>",
  "problem_type": "connectivity|performance|errors|hardware|general",
  "key_aspects": ["<identifier the diagnosis revolves around>", ...],
  "entities": {"device_name": "...", "interface_name": "...", "ip": "..."},
  "context_params": {"<param>": "<value>"}
}
Omit entity keys that do not appear in the question. Use exact identifiers
from the question; never invent values.`

// Extract returns the goal for question.
//
// # Description
//
// One model call with a low temperature, parsed strictly; any failure
// (transport, parse, empty description) falls back to FromQuestion. The
// fallback path never fails, so neither does Extract.
func (e *Extractor) Extract(ctx context.Context, question string) Goal {
	ctx, span := tracer.Start(ctx, "goal.Extract")
	defer span.End()
	span.SetAttributes(attribute.Bool("goal.model_backed", e.client != nil))

	if e.client == nil {
		return FromQuestion(question)
	}

	resp, err := e.client.Chat(ctx, []providers.Message{
		{Role: "user", Content: fmt.Sprintf(extractPrompt, question)},
	}, providers.ChatOptions{Temperature: 0.1, MaxTokens: 400})
	if err != nil {
		e.logger.Warn("goal extraction call failed, using pattern fallback",
			slog.Any("error", err))
		return FromQuestion(question)
	}

	raw, ok := providers.ExtractJSONObject(resp)
	if !ok {
		e.logger.Warn("goal extraction returned no JSON, using pattern fallback")
		return FromQuestion(question)
	}

	var parsed struct {
		Description   string         `json:"description"`
		ProblemType   string         `json:"problem_type"`
		KeyAspects    []string       `json:"key_aspects"`
		Entities      map[string]any `json:"entities"`
		ContextParams map[string]any `json:"context_params"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Description == "" {
		e.logger.Warn("goal extraction JSON unusable, using pattern fallback",
			slog.Any("error", err))
		return FromQuestion(question)
	}

	g := Goal{
		Description:   parsed.Description,
		ProblemType:   parsed.ProblemType,
		KeyAspects:    parsed.KeyAspects,
		Entities:      kv.Map(parsed.Entities),
		ContextParams: kv.Map(parsed.ContextParams),
	}
	if g.Entities == nil {
		g.Entities = kv.Map{}
	}
	if g.ContextParams == nil {
		g.ContextParams = kv.Map{}
	}
	if err := g.Entities.Validate(); err != nil {
		e.logger.Warn("goal entities failed schema validation, using pattern fallback",
			slog.Any("error", err))
		return FromQuestion(question)
	}

	// The model sometimes drops identifiers the patterns catch; union the
	// pattern hits in so downstream repair has every known value.
	fallback := FromQuestion(question)
	for k, v := range fallback.Entities {
		if g.Entities.String(k) == "" {
			g.Entities[k] = v
		}
	}
	if g.ProblemType == "" {
		g.ProblemType = fallback.ProblemType
	}
	if len(g.KeyAspects) == 0 {
		g.KeyAspects = fallback.KeyAspects
	}
	return g
}
