// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers defines the provider-agnostic chat interface used by the
// TraceGen collaborators (planner candidate generation, world model, goal
// extraction, question rewriting, summary generation) plus an adapter for
// OpenAI-compatible endpoints.
//
// Thread Safety:
//
//	All interfaces in this package must be implemented as safe for concurrent use.
package providers

import "context"

// Message is a single chat message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient is the minimal interface all TraceGen collaborators use.
//
// Description:
//
//	The planner, world model, goal extractor, rewriter, and summarizer only
//	need simple chat (no tool calls, no streaming). This minimal interface
//	makes adapters trivial for any provider.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ChatClient interface {
	// Chat sends messages and returns the assistant's response text.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout.
	//   - messages: Conversation messages (system, user, assistant).
	//   - opts: Provider-agnostic chat options.
	//
	// Outputs:
	//   - string: The assistant's response text.
	//   - error: Non-nil on failure.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// ChatOptions holds provider-agnostic options for a chat request.
type ChatOptions struct {
	// Temperature controls randomness (0.0-1.0). The Go zero value (0.0) is
	// treated as an explicit "most deterministic" setting. Set a negative
	// value to omit from the request and use the provider's default.
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int

	// Model overrides the client's default model for this request. Empty
	// uses the default set at client construction time.
	Model string
}
