// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package batch fans a question list out into many generation runs with a
// spread of exploration and anomaly settings, and writes the resulting
// traces to disk.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/tracegen/services/diaggen/engine"
	"github.com/AleutianAI/tracegen/services/diaggen/planner"
	"github.com/AleutianAI/tracegen/services/diaggen/rewrite"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
	"github.com/AleutianAI/tracegen/services/diaggen/worldmodel"
)

// Options configures one batch.
type Options struct {
	// Questions are the fault descriptions to diagnose. Runs cycle
	// through them when Count exceeds the list.
	Questions []string

	// Count is the total number of runs. Zero means one per question.
	Count int

	// MaxSteps is the per-run step limit passed to the engine.
	MaxSteps int

	// OutputDir receives run_NNN.json files and batch_summary.json.
	// Empty disables writing; results are still returned.
	OutputDir string

	// BatchID seeds per-run identifiers. Empty generates one.
	BatchID string
}

// RunOutcome is one run's entry in the batch summary.
type RunOutcome struct {
	RunID      string             `json:"run_id"`
	Question   string             `json:"question"`
	File       string             `json:"file,omitempty"`
	Mode       planner.Mode       `json:"mode"`
	Profile    worldmodel.Profile `json:"profile"`
	Steps      int                `json:"steps"`
	Findings   int                `json:"findings"`
	StopReason session.StopReason `json:"stop_reason"`
	Error      string             `json:"error,omitempty"`
}

// Summary is the batch-level rollup written to batch_summary.json.
type Summary struct {
	BatchID     string                     `json:"batch_id"`
	Total       int                        `json:"total"`
	Succeeded   int                        `json:"succeeded"`
	Failed      int                        `json:"failed"`
	ByReason    map[session.StopReason]int `json:"by_stop_reason"`
	ByMode      map[planner.Mode]int       `json:"by_mode"`
	ByStep      map[int]int                `json:"step_distribution"`
	UniquePaths int                        `json:"unique_paths"`
	DurationMS  int64                      `json:"duration_ms"`
	Runs        []RunOutcome               `json:"runs"`
}

// stageFor spreads generation settings across the batch: the first 30% of
// runs are conservative, the middle 40% balanced, the final 30% maximally
// exploratory and anomalous.
func stageFor(index, total int) (planner.Mode, worldmodel.Profile, float64) {
	if total <= 0 {
		total = 1
	}
	frac := float64(index) / float64(total)
	switch {
	case frac < 0.3:
		return planner.ModeGreedy, worldmodel.ProfileLow, 0.5
	case frac < 0.7:
		return planner.ModeBalanced, worldmodel.ProfileMedium, 0.7
	default:
		return planner.ModeExploratory, worldmodel.ProfileHigh, 0.9
	}
}

// Runner executes batches against one engine.
type Runner struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewRunner creates a batch runner.
func NewRunner(eng *engine.Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: eng, logger: logger}
}

// Run executes the batch sequentially. Sessions never overlap: each run
// finishes before the next starts, matching the engine's ownership model.
// Per-run failures are recorded in the summary, not fatal; Run itself
// fails only on an empty question list or an unwritable output directory.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if len(opts.Questions) == 0 {
		return nil, fmt.Errorf("batch needs at least one question")
	}
	count := opts.Count
	if count <= 0 {
		count = len(opts.Questions)
	}
	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	start := time.Now()
	summary := &Summary{
		BatchID:  opts.BatchID,
		Total:    count,
		ByReason: make(map[session.StopReason]int),
		ByMode:   make(map[planner.Mode]int),
		ByStep:   make(map[int]int),
	}
	paths := make(map[string]struct{})

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch %s interrupted: %w", opts.BatchID, err)
		}

		question := opts.Questions[i%len(opts.Questions)]
		mode, profile, temp := stageFor(i, count)
		outcome := RunOutcome{
			RunID:    fmt.Sprintf("%s-%03d", opts.BatchID, i),
			Question: question,
			Mode:     mode,
			Profile:  profile,
		}

		res, err := r.engine.Run(ctx, question, engine.Config{
			MaxSteps:        opts.MaxSteps,
			Mode:            mode,
			Profile:         profile,
			Temperature:     temp,
			RunID:           outcome.RunID,
			RewriteStrategy: rewrite.StrategyForRun(i, count),
		})
		if err != nil {
			outcome.Error = err.Error()
			summary.Failed++
			r.logger.Error("batch run failed",
				slog.String("run_id", outcome.RunID),
				slog.Any("error", err))
			summary.Runs = append(summary.Runs, outcome)
			continue
		}

		outcome.Steps = res.Steps
		outcome.Findings = res.Findings
		outcome.StopReason = res.StopReason
		summary.Succeeded++
		summary.ByReason[res.StopReason]++
		summary.ByMode[mode]++
		summary.ByStep[res.Steps]++
		paths[pathSignature(res)] = struct{}{}

		if opts.OutputDir != "" {
			name := fmt.Sprintf("run_%03d.json", i)
			if err := writeJSON(filepath.Join(opts.OutputDir, name), res.Trace); err != nil {
				outcome.Error = err.Error()
				r.logger.Error("failed to write trace",
					slog.String("run_id", outcome.RunID),
					slog.Any("error", err))
			} else {
				outcome.File = name
			}
		}
		summary.Runs = append(summary.Runs, outcome)
	}

	summary.UniquePaths = len(paths)
	summary.DurationMS = time.Since(start).Milliseconds()

	if opts.OutputDir != "" {
		if err := writeJSON(filepath.Join(opts.OutputDir, "batch_summary.json"), summary); err != nil {
			return nil, fmt.Errorf("failed to write batch summary: %w", err)
		}
	}

	r.logger.Info("batch complete",
		slog.String("batch_id", opts.BatchID),
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// pathSignature keys a run by its ordered action names so the summary can
// count how many distinct diagnosis paths the batch produced.
func pathSignature(res *engine.Result) string {
	var names []string
	for _, step := range res.Trace.Response {
		if len(step.COA) > 0 {
			names = append(names, step.COA[0].Action.Name)
		}
	}
	return strings.Join(names, ">")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
