// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// chatTracerName is the shared OTel tracer name for provider adapters.
const chatTracerName = "tracegen.providers"

// =============================================================================
// OpenAI-Compatible Wire Types
// =============================================================================

const defaultChatCompletionsPath = "/v1/chat/completions"

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// OpenAICompatClient implements ChatClient against any OpenAI-compatible
// Chat Completions endpoint using raw net/http.
//
// Description:
//
//	TraceGen runs against internal OpenAI-compatible gateways as well as
//	the public OpenAI API, so the client takes an arbitrary base URL and
//	speaks the Chat Completions REST API directly without third-party SDKs.
//
// Thread Safety: OpenAICompatClient is safe for concurrent use.
type OpenAICompatClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAICompatClient creates a client from environment variables.
//
// Description:
//
//	Reads TRACEGEN_API_KEY, TRACEGEN_API_BASE, and TRACEGEN_MODEL from the
//	environment. Defaults to "gpt-4o-mini" if TRACEGEN_MODEL is not set and
//	the public OpenAI endpoint if TRACEGEN_API_BASE is not set.
//
// Outputs:
//   - *OpenAICompatClient: The configured client.
//   - error: Non-nil if TRACEGEN_API_KEY is missing.
func NewOpenAICompatClient() (*OpenAICompatClient, error) {
	apiKey := os.Getenv("TRACEGEN_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TRACEGEN_API_KEY is not set")
	}
	model := os.Getenv("TRACEGEN_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := os.Getenv("TRACEGEN_API_BASE")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return NewOpenAICompatClientWithConfig(apiKey, model, baseURL), nil
}

// NewOpenAICompatClientWithConfig creates a client with explicit configuration.
//
// Inputs:
//   - apiKey: The API key (sent as a Bearer token).
//   - model: The default model name (e.g., "gpt-4o-mini").
//   - baseURL: The endpoint base URL, without the /v1/chat/completions path.
//
// Outputs:
//   - *OpenAICompatClient: The configured client.
func NewOpenAICompatClientWithConfig(apiKey, model, baseURL string) *OpenAICompatClient {
	return &OpenAICompatClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Model returns the client's default model name.
func (c *OpenAICompatClient) Model() string {
	return c.model
}

// Chat implements ChatClient.
//
// Description:
//
//	Sends the conversation to the Chat Completions endpoint and returns the
//	first choice's content. Records call duration and outcome metrics and
//	an OTel span per request.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - messages: Conversation messages.
//   - opts: Chat options. A negative Temperature omits the field.
//
// Outputs:
//   - string: The assistant's response text.
//   - error: Non-nil on transport, API, or empty-response failure.
//
// Thread Safety: Safe for concurrent use.
func (c *OpenAICompatClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	ctx, span := otel.Tracer(chatTracerName).Start(ctx, "providers.OpenAICompatClient.Chat",
		trace.WithAttributes(
			attribute.String("provider", "openai_compat"),
			attribute.String("model", model),
			attribute.Int("message_count", len(messages)),
			attribute.Float64("temperature", opts.Temperature),
		),
	)
	defer span.End()

	req := openaiRequest{Model: model}
	for _, m := range messages {
		req.Messages = append(req.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	if opts.Temperature >= 0 {
		temp := float32(opts.Temperature)
		req.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = &opts.MaxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	chatActiveRequests.WithLabelValues("openai_compat").Inc()
	defer chatActiveRequests.WithLabelValues("openai_compat").Dec()

	startTime := time.Now()
	text, err := c.send(ctx, body)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics("openai_compat", duration, err)
		return "", err
	}

	recordChatMetrics("openai_compat", duration, nil)
	span.SetAttributes(attribute.Int("response_length", len(text)))
	return text, nil
}

// send posts the request body and extracts the first choice text.
func (c *OpenAICompatClient) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+defaultChatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed openaiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	text := parsed.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// truncate shortens s to max runes for logs and error messages.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
