// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/tracegen/services/diaggen/catalog"
	"github.com/AleutianAI/tracegen/services/diaggen/goal"
	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// Mode is the exploration policy applied at selection time.
type Mode string

const (
	// ModeGreedy always takes the highest-scoring candidate.
	ModeGreedy Mode = "greedy"

	// ModeBalanced takes the top candidate with probability 0.7, else one
	// of the rest uniformly at random.
	ModeBalanced Mode = "balanced"

	// ModeExploratory samples over all candidates weighted by score.
	ModeExploratory Mode = "exploratory"
)

// ParseMode maps free text to a Mode, defaulting to balanced.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeGreedy:
		return ModeGreedy
	case ModeExploratory:
		return ModeExploratory
	default:
		return ModeBalanced
	}
}

// Phase is one state of the selection state machine.
type Phase string

const (
	PhaseSampling       Phase = "sampling"
	PhaseRetrying       Phase = "retrying"
	PhaseStrictFallback Phase = "strict_fallback"
	PhaseFuzzyMatch     Phase = "fuzzy_match"
	PhaseLastResort     Phase = "last_resort"
	PhaseFailed         Phase = "failed"
)

const (
	// candidateCalls is how many proposal calls feed one sampling round.
	candidateCalls = 3

	// maxRetries bounds the retry loop after the first sampling round.
	maxRetries = 3

	// explorationWeight scales the bonus for less-used actions.
	explorationWeight = 2.0

	// balancedTopProbability is the chance balanced mode takes rank 0.
	balancedTopProbability = 0.7
)

var tracer = otel.Tracer("tracegen.planner")

// Planner selects the next diagnostic action for one session.
//
// # Thread Safety
//
// Not safe for concurrent use: the random generator is owned by one
// session. Create one planner per run.
type Planner struct {
	catalog *catalog.Catalog
	source  CandidateSource
	mode    Mode
	rng     *rand.Rand
	logger  *slog.Logger
}

// New creates a planner.
//
// Inputs:
//   - cat: The action catalog. Selection fails fast when it is empty.
//   - source: The candidate-generation collaborator.
//   - mode: Exploration policy for this session.
//   - rng: Per-session generator, seeded deterministically from the run
//     identifier by the caller. Never the process-global source.
func New(cat *catalog.Catalog, source CandidateSource, mode Mode, rng *rand.Rand, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{catalog: cat, source: source, mode: mode, rng: rng, logger: logger}
}

// SelectNextAction runs the selection state machine for one step.
//
// # Description
//
// Phases: Sampling gathers up to three candidates (one proposal call each,
// randomness rising per call), scores survivors and picks one under the
// session's mode. An empty round moves to Retrying, which repeats sampling
// up to three times with a higher randomness base. Exhausted retries move
// to StrictFallback (one exact-name re-query), then FuzzyMatch on its
// answer, then LastResort (deterministic pick). Failed is reached only
// when the catalog is empty — every other path yields an action.
func (p *Planner) SelectNextAction(ctx context.Context, state *session.DiagnosticSession, g goal.Goal, temperature float64) (Action, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "planner.SelectNextAction",
		trace.WithAttributes(
			attribute.String("planner.mode", string(p.mode)),
			attribute.Int("session.step", state.StepCount()),
		))
	defer span.End()
	defer func() { selectionDuration.Observe(time.Since(start).Seconds()) }()

	if p.catalog.Len() == 0 {
		span.SetAttributes(attribute.String("planner.phase", string(PhaseFailed)))
		return Action{Phase: PhaseFailed}, ErrEmptyCatalog
	}

	known := collectKnownValues(state, g)

	phase := PhaseSampling
	attempt := 0
	var strictName string

	for {
		switch phase {
		case PhaseSampling, PhaseRetrying:
			cand, err := p.sampleRound(ctx, state, g, temperature+float64(attempt)*0.1)
			if err == nil {
				return p.commit(cand, known, phase), nil
			}
			attempt++
			if attempt > maxRetries {
				p.logger.Warn("sampling retries exhausted, entering strict fallback",
					slog.Int("attempts", attempt),
					slog.Any("error", errors.Join(ErrAllRetriesExhausted, err)))
				phase = PhaseStrictFallback
				continue
			}
			p.logger.Debug("sampling round empty, retrying",
				slog.Int("attempt", attempt), slog.Any("error", err))
			phase = PhaseRetrying

		case PhaseStrictFallback:
			name, err := p.source.ProposeExact(ctx, g, state.ContextSummary(), p.catalog.PromptNameList())
			if err != nil {
				p.logger.Warn("strict fallback call failed", slog.Any("error", err))
				phase = PhaseLastResort
				continue
			}
			if p.catalog.Exists(name) {
				return p.commit(&Candidate{
					ActionName: name,
					Arguments:  kv.Map{},
					Rationale:  "selected by strict re-query",
				}, known, PhaseStrictFallback), nil
			}
			strictName = name
			phase = PhaseFuzzyMatch

		case PhaseFuzzyMatch:
			if matched, ok := FuzzyMatchName(strictName, p.catalog.Names()); ok {
				p.logger.Info("fuzzy-matched invalid action name",
					slog.String("raw", strictName), slog.String("matched", matched))
				return p.commit(&Candidate{
					ActionName: matched,
					Arguments:  kv.Map{},
					Rationale:  "selected by fuzzy name match",
				}, known, PhaseFuzzyMatch), nil
			}
			phase = PhaseLastResort

		case PhaseLastResort:
			return p.commit(p.lastResort(state, g), known, PhaseLastResort), nil
		}
	}
}

// sampleRound makes the proposal calls for one round, scores the valid
// candidates, and selects one under the session's mode.
func (p *Planner) sampleRound(ctx context.Context, state *session.DiagnosticSession, g goal.Goal, baseTemp float64) (*Candidate, error) {
	req := ProposeRequest{
		Goal:           g,
		ContextSummary: state.ContextSummary(),
		History:        state.FormatHistory(5),
		KnownEntities:  state.Entities().All(),
		ToolList:       p.catalog.PromptDetail(),
	}

	var candidates []*Candidate
	for i := 0; i < candidateCalls; i++ {
		req.Temperature = baseTemp + float64(i)*0.05
		cand, err := p.source.Propose(ctx, req)
		if err != nil {
			p.logger.Debug("proposal call failed", slog.Int("call", i), slog.Any("error", err))
			continue
		}
		if cand == nil {
			candidatesDiscarded.WithLabelValues("unparseable").Inc()
			continue
		}
		if !p.catalog.Exists(cand.ActionName) {
			candidatesDiscarded.WithLabelValues("invalid_name").Inc()
			p.logger.Debug("discarding candidate with unknown action",
				slog.String("action", cand.ActionName),
				slog.Any("error", ErrInvalidCandidateName))
			continue
		}
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return nil, ErrCandidateGenerationEmpty
	}

	p.score(candidates, state)
	return p.pick(candidates), nil
}

// score assigns each candidate (K - rankIndex) plus the exploration bonus
// for its action. Less-used actions score higher.
func (p *Planner) score(candidates []*Candidate, state *session.DiagnosticSession) {
	for rank, c := range candidates {
		bonus := explorationWeight / float64(state.UsageCount(c.ActionName)+1)
		c.Score = float64(candidateCalls-rank) + bonus
	}
}

// pick applies the exploration mode over scored candidates. Candidates are
// considered in descending score order; ties keep proposal order.
func (p *Planner) pick(candidates []*Candidate) *Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) == 1 {
		return candidates[0]
	}

	switch p.mode {
	case ModeGreedy:
		return candidates[0]
	case ModeExploratory:
		total := 0.0
		for _, c := range candidates {
			total += c.Score
		}
		r := p.rng.Float64() * total
		for _, c := range candidates {
			r -= c.Score
			if r <= 0 {
				return c
			}
		}
		return candidates[len(candidates)-1]
	default: // balanced
		if p.rng.Float64() < balancedTopProbability {
			return candidates[0]
		}
		rest := candidates[1:]
		return rest[p.rng.Intn(len(rest))]
	}
}

// commit repairs the chosen candidate's arguments and freezes it into the
// planner's output.
func (p *Planner) commit(c *Candidate, known knownValues, phase Phase) Action {
	args := c.Arguments.Clone()
	if args == nil {
		args = kv.Map{}
	}
	unresolved := repairArguments(args, known)
	if len(unresolved) > 0 {
		unresolvedPlaceholders.Add(float64(len(unresolved)))
		p.logger.Warn("placeholder parameters left unresolved",
			slog.String("action", c.ActionName),
			slog.Any("params", unresolved))
	}
	selectionsTotal.WithLabelValues(string(phase), string(p.mode)).Inc()
	return Action{
		Name:             c.ActionName,
		Arguments:        args,
		Rationale:        c.Rationale,
		ExpectedOutcome:  c.ExpectedOutcome,
		NextFocus:        c.NextFocus,
		UnresolvedParams: unresolved,
		Phase:            phase,
	}
}

// lastResort deterministically picks an action when every model-backed
// phase has failed.
//
// On the first step it prefers a read-only query tool; afterwards it takes
// the first unused action, or the one with minimum usage when all have
// been tried. Arguments are filled from the goal's entities where the
// tool's schema names a typed parameter.
func (p *Planner) lastResort(state *session.DiagnosticSession, g goal.Goal) *Candidate {
	names := p.catalog.Names()

	choose := func() string {
		if state.StepCount() == 0 {
			for _, n := range names {
				if strings.HasPrefix(n, "query") || strings.HasPrefix(n, "get") || strings.HasPrefix(n, "show") {
					return n
				}
			}
		}
		for _, n := range names {
			if state.UsageCount(n) == 0 {
				return n
			}
		}
		best := names[0]
		for _, n := range names[1:] {
			if state.UsageCount(n) < state.UsageCount(best) {
				best = n
			}
		}
		return best
	}

	name := choose()
	args := kv.Map{}
	if schema, ok := p.catalog.Schema(name); ok && schema != "" {
		for _, param := range strings.Split(schema, ",") {
			param = strings.TrimSpace(param)
			param = strings.TrimSpace(strings.TrimSuffix(param, "(optional)"))
			if typ, ok := session.EntityTypeForKey(param); ok {
				if v := g.Entity(typ); v != "" {
					args[param] = v
				}
			}
		}
	}

	return &Candidate{
		ActionName: name,
		Arguments:  args,
		Rationale:  "deterministic fallback selection",
	}
}
