// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tracegen/services/diaggen"
	"github.com/AleutianAI/tracegen/services/diaggen/engine"
	"github.com/AleutianAI/tracegen/services/diaggen/planner"
	"github.com/AleutianAI/tracegen/services/diaggen/worldmodel"
)

func newGenerateCmd() *cobra.Command {
	var (
		maxSteps    int
		mode        string
		profile     string
		temperature float64
		runID       string
		outFile     string
	)

	cmd := &cobra.Command{
		Use:   "generate <question>",
		Short: "Generate one diagnostic trace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			service, err := diaggen.NewService(diaggen.ServiceConfig{
				CatalogPath: catalogPath,
				Client:      chatClient(),
			})
			if err != nil {
				return err
			}

			res, err := service.Generate(cmd.Context(), question, engine.Config{
				MaxSteps:    maxSteps,
				Mode:        planner.ParseMode(mode),
				Profile:     worldmodel.ParseProfile(profile),
				Temperature: temperature,
				RunID:       runID,
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(res.Trace, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render trace: %w", err)
			}
			if outFile != "" {
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outFile, err)
				}
				slog.Info("trace written",
					slog.String("file", outFile),
					slog.String("run_id", res.RunID),
					slog.String("stop_reason", string(res.StopReason)),
				)
				return nil
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSteps, "max-steps", 8, "step limit")
	cmd.Flags().StringVar(&mode, "mode", "balanced", "exploration mode: greedy, balanced, exploratory")
	cmd.Flags().StringVar(&profile, "profile", "medium", "anomaly profile: low, medium, high")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.7, "base generation temperature")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (seeds all randomness; empty generates one)")
	cmd.Flags().StringVar(&outFile, "out", "", "write the trace to a file instead of stdout")
	return cmd
}
