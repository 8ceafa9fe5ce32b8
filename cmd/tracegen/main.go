// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tracegen generates synthetic network-diagnosis reasoning traces.
//
// Usage:
//
//	# Generate one trace to stdout
//	tracegen generate "interface GE0/0/1 on S1 drops packets"
//
//	# Generate a batch into ./out
//	tracegen batch --questions questions.txt --count 50 --out ./out
//
//	# Run the HTTP API
//	tracegen serve --port 8080
//
// A chat backend is picked up from TRACEGEN_API_KEY / TRACEGEN_API_BASE /
// TRACEGEN_MODEL. Without one, generation runs fully offline on the
// deterministic world model.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/tracegen/services/diaggen/providers"
)

var (
	debugLogging bool
	catalogPath  string
)

func main() {
	root := &cobra.Command{
		Use:   "tracegen",
		Short: "Synthetic diagnostic-trace generator",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(debugLogging)
		},
	}
	root.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "tool catalog file (YAML or numbered text); empty uses the built-in catalog")

	root.AddCommand(newServeCmd(), newGenerateCmd(), newBatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// setupTracing installs a stdout span exporter when TRACEGEN_TRACE_STDOUT
// is set. Returns a shutdown func; tracing stays a no-op otherwise.
func setupTracing() func(context.Context) error {
	if os.Getenv("TRACEGEN_TRACE_STDOUT") == "" {
		return func(context.Context) error { return nil }
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		slog.Warn("failed to create stdout trace exporter", slog.Any("error", err))
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// chatClient builds the configured chat backend, or nil for offline mode.
// An incomplete configuration (base URL without key) also falls back to
// offline with a warning rather than failing the command.
func chatClient() providers.ChatClient {
	if os.Getenv("TRACEGEN_API_KEY") == "" && os.Getenv("TRACEGEN_API_BASE") == "" {
		slog.Info("no chat backend configured, running offline")
		return nil
	}
	client, err := providers.NewOpenAICompatClient()
	if err != nil {
		slog.Warn("chat backend misconfigured, running offline", slog.Any("error", err))
		return nil
	}
	return client
}
