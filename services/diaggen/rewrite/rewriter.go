// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rewrite normalizes raw fault descriptions into the natural user
// queries that head each generated trace.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/providers"
)

// Strategy selects how far a rewrite may drift from the source text.
// Batch sweeps alternate strategies by run position so repeated questions
// still produce varied queries.
type Strategy string

const (
	// StrategyLight keeps the sentence structure, adjusting tone only.
	StrategyLight Strategy = "light"

	// StrategyMedium rephrases freely as long as identifiers survive.
	StrategyMedium Strategy = "medium"
)

// StrategyForRun picks the rewrite strategy for run index out of total:
// the first half of a sweep stays light, the rest rewrites medium.
func StrategyForRun(index, total int) Strategy {
	if total <= 0 || index < total/2 {
		return StrategyLight
	}
	return StrategyMedium
}

// Rewriter rephrases fault descriptions. A nil client makes Rewrite the
// identity function.
type Rewriter struct {
	client providers.ChatClient
	logger *slog.Logger
}

// NewRewriter creates a rewriter.
func NewRewriter(client providers.ChatClient, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{client: client, logger: logger}
}

const rewritePrompt = `Rewrite this network fault description as a short question a
network operator would type into a diagnosis assistant. Keep every device,
interface, and IP identifier exactly as written. %s Answer with the question
only.

Description: `

// Rewrite returns the user-voice form of description under the given
// strategy. Identifier fidelity is checked: a rewrite that drops or
// mangles tokens containing '/' or '.' is discarded in favor of the
// original.
func (r *Rewriter) Rewrite(ctx context.Context, description string, strategy Strategy) string {
	description = strings.TrimSpace(description)
	if r.client == nil || description == "" {
		return description
	}

	instruction := "Stay close to the original wording."
	temperature := 0.5
	if strategy == StrategyMedium {
		instruction = "Rephrase freely; vary sentence structure and vocabulary."
		temperature = 0.9
	}

	resp, err := r.client.Chat(ctx, []providers.Message{
		{Role: "user", Content: fmt.Sprintf(rewritePrompt, instruction) + description},
	}, providers.ChatOptions{Temperature: temperature, MaxTokens: 120})
	if err != nil {
		r.logger.Debug("question rewrite failed, keeping original", slog.Any("error", err))
		return description
	}

	rewritten := strings.Trim(strings.TrimSpace(resp), "\"'`")
	if rewritten == "" || !keepsIdentifiers(description, rewritten) {
		return description
	}
	return rewritten
}

// keepsIdentifiers verifies every structural token of the original text
// survives the rewrite verbatim.
func keepsIdentifiers(original, rewritten string) bool {
	for _, tok := range strings.Fields(original) {
		tok = strings.Trim(tok, ",;:?!()")
		if tok == "" || !strings.ContainsAny(tok, "/.") {
			continue
		}
		if !strings.Contains(rewritten, tok) {
			return false
		}
	}
	return true
}
