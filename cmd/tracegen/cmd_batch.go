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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tracegen/services/diaggen"
	"github.com/AleutianAI/tracegen/services/diaggen/batch"
)

func newBatchCmd() *cobra.Command {
	var (
		questionsFile string
		count         int
		maxSteps      int
		outDir        string
		batchID       string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate a batch of diagnostic traces",
		RunE: func(cmd *cobra.Command, args []string) error {
			questions := args
			if questionsFile != "" {
				loaded, err := readQuestionsFile(questionsFile)
				if err != nil {
					return err
				}
				questions = append(questions, loaded...)
			}
			if len(questions) == 0 {
				return fmt.Errorf("no questions given: pass them as arguments or via --questions")
			}

			service, err := diaggen.NewService(diaggen.ServiceConfig{
				CatalogPath: catalogPath,
				Client:      chatClient(),
			})
			if err != nil {
				return err
			}

			summary, err := service.GenerateBatch(cmd.Context(), batch.Options{
				Questions: questions,
				Count:     count,
				MaxSteps:  maxSteps,
				OutputDir: outDir,
				BatchID:   batchID,
			})
			if err != nil {
				return err
			}

			slog.Info("batch finished",
				slog.String("batch_id", summary.BatchID),
				slog.Int("total", summary.Total),
				slog.Int("succeeded", summary.Succeeded),
				slog.Int("failed", summary.Failed),
				slog.String("output_dir", outDir),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&questionsFile, "questions", "", "file with one question per line ('#' lines are skipped)")
	cmd.Flags().IntVar(&count, "count", 0, "total runs (0 means one per question)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 8, "per-run step limit")
	cmd.Flags().StringVar(&outDir, "out", "traces", "output directory for run files and the batch summary")
	cmd.Flags().StringVar(&batchID, "batch-id", "", "batch identifier (empty generates one)")
	return cmd
}

func readQuestionsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file: %w", err)
	}
	var questions []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	return questions, nil
}
