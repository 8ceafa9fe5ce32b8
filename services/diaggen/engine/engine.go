// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine drives one diagnostic run end to end: question rewriting,
// goal extraction, the select-execute-record step loop, batch fan-out, and
// the closing summary step.
package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/tracegen/services/diaggen/catalog"
	"github.com/AleutianAI/tracegen/services/diaggen/goal"
	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/output"
	"github.com/AleutianAI/tracegen/services/diaggen/planner"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
	"github.com/AleutianAI/tracegen/services/diaggen/rewrite"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
	"github.com/AleutianAI/tracegen/services/diaggen/worldmodel"
)

var tracer = otel.Tracer("tracegen.engine")

// Executor answers a selected action with an observation and the anomaly
// level behind it. The engine records error-tagged observations like any
// other and never retries an execution.
type Executor interface {
	Execute(ctx context.Context, actionName string, args kv.Map, step int) (any, worldmodel.Variant)
}

// Config parameterizes one run.
type Config struct {
	// MaxSteps bounds the step loop. Zero selects the default.
	MaxSteps int

	// Mode is the planner's exploration policy.
	Mode planner.Mode

	// Profile sets how anomalous the synthesized world is.
	Profile worldmodel.Profile

	// Temperature is the base randomness for candidate generation.
	Temperature float64

	// RunID seeds all randomness for the run. Empty generates one.
	RunID string

	// RewriteStrategy controls how far the query rewrite may drift.
	// Empty selects the light strategy.
	RewriteStrategy rewrite.Strategy
}

const defaultMaxSteps = 8

// reasonCompleted marks a run the planner itself closed with a terminal
// action, as opposed to the termination policy stopping it.
const reasonCompleted session.StopReason = "diagnosis_complete"

// Result is one completed run.
type Result struct {
	RunID      string
	Trace      *output.Trace
	StopReason session.StopReason
	Steps      int
	Findings   int
	Mode       planner.Mode
	Profile    worldmodel.Profile
}

// Engine generates diagnostic traces against a fixed catalog and chat
// client. Safe to share across runs; all per-run state lives in locals.
type Engine struct {
	catalog   *catalog.Catalog
	client    providers.ChatClient
	extractor *goal.Extractor
	rewriter  *rewrite.Rewriter
	logger    *slog.Logger

	// newExecutor builds the per-run executor. Overridable in tests.
	newExecutor func(rng *rand.Rand, profile worldmodel.Profile, maxSteps int) Executor
}

// New creates an engine. A nil client runs fully offline: pattern goal
// extraction, last-resort planning, and synthesized observations.
func New(cat *catalog.Catalog, client providers.ChatClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		catalog:   cat,
		client:    client,
		extractor: goal.NewExtractor(client, logger),
		rewriter:  rewrite.NewRewriter(client, logger),
		logger:    logger,
	}
	e.newExecutor = func(rng *rand.Rand, profile worldmodel.Profile, maxSteps int) Executor {
		return worldmodel.NewModel(client, profile, rng, maxSteps, logger)
	}
	return e
}

// Run generates one trace for question.
//
// # Description
//
// The step loop evaluates the termination policy before each action. Every
// iteration selects one action, fans it out across known entities when the
// batch decision fires, executes, records exactly one ActionRecord, and
// appends one trace step carrying every observation. The loop cannot spin:
// either the policy stops it or the step counter reaches the limit. The
// only fatal error is an empty catalog.
func (e *Engine) Run(ctx context.Context, question string, cfg Config) (*Result, error) {
	start := time.Now()
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}

	ctx, span := tracer.Start(ctx, "engine.Run",
		trace.WithAttributes(
			attribute.String("run.id", cfg.RunID),
			attribute.String("run.mode", string(cfg.Mode)),
			attribute.String("run.profile", string(cfg.Profile)),
			attribute.Int("run.max_steps", cfg.MaxSteps),
		))
	defer span.End()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	seed := seedFromRunID(cfg.RunID)
	plannerRNG := rand.New(rand.NewSource(seed))
	worldRNG := rand.New(rand.NewSource(seed + 1))

	strategy := cfg.RewriteStrategy
	if strategy == "" {
		strategy = rewrite.StrategyLight
	}
	query := e.rewriter.Rewrite(ctx, question, strategy)
	g := e.extractor.Extract(ctx, question)

	sess := session.New()
	g.Seed(sess.Entities())

	pl := planner.New(e.catalog,
		planner.NewLLMCandidateSource(e.client, e.logger),
		cfg.Mode, plannerRNG, e.logger)
	executor := e.newExecutor(worldRNG, cfg.Profile, cfg.MaxSteps)
	policy := session.NewTerminationPolicy(cfg.MaxSteps)
	tr := output.NewTrace(query)

	var reason session.StopReason
	for {
		var cont bool
		cont, reason = policy.Evaluate(sess)
		if !cont {
			break
		}

		act, err := pl.SelectNextAction(ctx, sess, g, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", cfg.RunID, err)
		}
		if catalog.IsTerminal(act.Name) {
			e.logger.Debug("planner signalled completion",
				slog.String("run_id", cfg.RunID),
				slog.Int("step", sess.StepCount()))
			reason = reasonCompleted
			break
		}

		e.executeStep(ctx, sess, tr, executor, act)
	}

	cot, coa := buildSummaryStep(ctx, e.client, sess, e.logger)
	tr.AppendStep(cot, coa)

	runsTotal.WithLabelValues(string(reason)).Inc()
	runSteps.Observe(float64(sess.StepCount()))
	span.SetAttributes(
		attribute.String("run.stop_reason", string(reason)),
		attribute.Int("run.steps", sess.StepCount()),
	)
	e.logger.Info("run complete",
		slog.String("run_id", cfg.RunID),
		slog.String("reason", string(reason)),
		slog.Int("steps", sess.StepCount()),
		slog.Int("findings", len(sess.Findings())),
	)

	return &Result{
		RunID:      cfg.RunID,
		Trace:      tr,
		StopReason: reason,
		Steps:      sess.StepCount(),
		Findings:   len(sess.Findings()),
		Mode:       cfg.Mode,
		Profile:    cfg.Profile,
	}, nil
}

// executeStep runs one selected action, fanning out when the batch
// decision fires, and commits exactly one step to session and trace.
func (e *Engine) executeStep(ctx context.Context, sess *session.DiagnosticSession, tr *output.Trace, executor Executor, act planner.Action) {
	plan := decideBatch(act, sess.Entities())

	type execution struct {
		args    kv.Map
		obs     any
		variant worldmodel.Variant
	}
	var execs []execution

	if plan.isFanOut() {
		batchFanOuts.Inc()
		for _, id := range plan.entities {
			args := act.Arguments.Clone()
			args[plan.paramKey] = id
			obs, variant := executor.Execute(ctx, act.Name, args, sess.StepCount())
			execs = append(execs, execution{args: args, obs: obs, variant: variant})
		}
	} else {
		obs, variant := executor.Execute(ctx, act.Name, act.Arguments, sess.StepCount())
		execs = append(execs, execution{args: act.Arguments, obs: obs, variant: variant})
	}

	// One ActionRecord per step regardless of fan-out width; the trace
	// step still carries every observation.
	first := execs[0]
	sess.RecordAction(act.Name, first.args, first.obs, act.Rationale)

	variants := make([]worldmodel.Variant, 0, len(execs))
	coa := make([]output.COAEntry, 0, len(execs))
	for _, ex := range execs {
		variants = append(variants, ex.variant)
		sess.Entities().AbsorbObservation(ex.obs)
		coa = append(coa, output.COAEntry{
			Action:      output.ActionCall{Name: act.Name, Args: ex.args},
			Observation: ex.obs,
		})
	}

	worst := worstVariant(variants)
	conclusion := "no anomaly observed"
	if desc, sev, found := classifyFinding(act.Name, first.obs, worst); found {
		sess.RecordFinding(desc, sev)
		conclusion = desc
	}

	resultSummary := summarizeObservation(first.obs)
	sess.UpdateChain(act.Name, resultSummary, conclusion, act.NextFocus)
	tr.AppendStep(buildCOT(act), coa)
}

// buildCOT renders the step's chain-of-thought from the planner's output.
func buildCOT(act planner.Action) string {
	cot := act.Rationale
	if cot == "" {
		cot = fmt.Sprintf("Run %s to gather more signal.", act.Name)
	}
	if act.ExpectedOutcome != "" {
		cot = fmt.Sprintf("%s Expected: %s", cot, act.ExpectedOutcome)
	}
	return cot
}

func summarizeObservation(obs any) string {
	ms := kv.Maps(obs)
	if len(ms) == 0 {
		return "no structured result"
	}
	return ms[0].FormatCompact()
}

// seedFromRunID derives a stable 64-bit seed from the run identifier.
func seedFromRunID(runID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(runID))
	return int64(h.Sum64())
}
