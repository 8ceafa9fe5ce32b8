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
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// WarmAll validates connectivity for every configured role client.
//
// Description:
//
//	TraceGen uses separate models for the planner, world model, and goal
//	extractor when configured. Before a generation run begins, all of them
//	are probed concurrently with a one-token request so auth or endpoint
//	problems surface immediately instead of mid-session. Roles sharing one
//	client are probed once per distinct client.
//
// Inputs:
//   - ctx: Context for cancellation. A per-probe timeout is applied on top.
//   - clients: Role name -> client. Nil clients are skipped.
//
// Outputs:
//   - error: Non-nil if any probe fails; the first failure is returned.
//
// Thread Safety: Safe for concurrent use.
func WarmAll(ctx context.Context, clients map[string]ChatClient) error {
	g, gctx := errgroup.WithContext(ctx)

	probed := make(map[ChatClient]bool, len(clients))
	for role, client := range clients {
		if client == nil || probed[client] {
			continue
		}
		probed[client] = true
		role := role
		client := client
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, 15*time.Second)
			defer cancel()

			start := time.Now()
			_, err := client.Chat(probeCtx, []Message{
				{Role: "user", Content: "ok"},
			}, ChatOptions{Temperature: 0, MaxTokens: 1})
			if err != nil {
				return fmt.Errorf("warmup probe for role %q failed: %w", role, err)
			}
			slog.Info("provider warmup probe succeeded",
				slog.String("role", role),
				slog.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}

	return g.Wait()
}
