// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

// StopReason explains a termination decision.
type StopReason string

const (
	ReasonInProgress          StopReason = "in_progress"
	ReasonStepLimitReached    StopReason = "step_limit_reached"
	ReasonCriticalFinding     StopReason = "critical_finding_found"
	ReasonStagnation          StopReason = "stagnation"
	ReasonSufficientCoverage  StopReason = "sufficient_coverage"
)

// TerminationPolicy decides, from current session state alone, whether the
// step loop continues. It holds no state of its own; every evaluation is
// recomputed from scratch.
type TerminationPolicy struct {
	// MaxSteps stops the loop once StepCount reaches it.
	MaxSteps int

	// StagnationWindow is the number of trailing steps that must contain a
	// finding once the session is past its warm-up. 0 selects the default.
	StagnationWindow int

	// CoverageLimit stops the loop once this many distinct actions have
	// been used. 0 selects the default.
	CoverageLimit int
}

const (
	defaultStagnationWindow = 3
	defaultCoverageLimit    = 8
)

// NewTerminationPolicy returns the standard policy for maxSteps.
func NewTerminationPolicy(maxSteps int) TerminationPolicy {
	return TerminationPolicy{MaxSteps: maxSteps}
}

// Evaluate returns whether the loop should continue. Conditions are checked
// in a fixed order; the first match wins:
//
//  1. step limit
//  2. any high-severity finding
//  3. stagnation (past warm-up, no finding in the trailing window)
//  4. sufficient distinct-action coverage
func (p TerminationPolicy) Evaluate(s *DiagnosticSession) (bool, StopReason) {
	window := p.StagnationWindow
	if window <= 0 {
		window = defaultStagnationWindow
	}
	coverage := p.CoverageLimit
	if coverage <= 0 {
		coverage = defaultCoverageLimit
	}

	if s.StepCount() >= p.MaxSteps {
		return false, ReasonStepLimitReached
	}
	if s.HasFindingWithSeverity(SeverityHigh) {
		return false, ReasonCriticalFinding
	}
	if s.StepCount() >= window && !s.HasFindingInWindow(s.StepCount()-window+1, s.StepCount()) {
		return false, ReasonStagnation
	}
	if s.DistinctActions() >= coverage {
		return false, ReasonSufficientCoverage
	}
	return true, ReasonInProgress
}
