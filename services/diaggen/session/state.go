// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the mutable state of one diagnostic run: the ordered
// action history, findings, the diagnostic chain, per-action usage counts,
// and the entity registry. One session belongs to exactly one run.
package session

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity maps free text onto the closed severity set, defaulting
// to low.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ActionRecord is one executed action. Immutable after creation.
type ActionRecord struct {
	Step        int
	ActionName  string
	Arguments   kv.Map
	Observation any
	Rationale   string
}

// Finding is one diagnostic conclusion, tagged with the step it was made on.
type Finding struct {
	Description string
	Severity    Severity
	Step        int
}

// ChainEntry is one link of the causal narrative, 1:1 with ActionRecord.
type ChainEntry struct {
	Step          int
	Action        string
	ResultSummary string
	Conclusion    string
	NextFocus     string
}

// DiagnosticSession is the state of one run.
//
// # Thread Safety
//
// Not safe for concurrent use. A session is exclusively owned by one run
// loop; the batch runner gives each run its own session.
type DiagnosticSession struct {
	stepCount      int
	actions        []ActionRecord
	findings       []Finding
	chain          []ChainEntry
	usageCounts    map[string]int
	entities       *EntityRegistry
	currentFocus   string
	excludedCauses []string
}

// New creates an empty session.
func New() *DiagnosticSession {
	return &DiagnosticSession{
		usageCounts: make(map[string]int),
		entities:    NewEntityRegistry(),
	}
}

// RecordAction appends an executed action, advancing the step counter and
// the per-action usage count. Side effect only; never fails.
func (s *DiagnosticSession) RecordAction(name string, args kv.Map, observation any, rationale string) {
	s.stepCount++
	s.actions = append(s.actions, ActionRecord{
		Step:        s.stepCount,
		ActionName:  name,
		Arguments:   args.Clone(),
		Observation: observation,
		Rationale:   rationale,
	})
	s.usageCounts[name]++
}

// RecordFinding appends a finding tagged with the current step.
func (s *DiagnosticSession) RecordFinding(description string, severity Severity) {
	s.findings = append(s.findings, Finding{
		Description: description,
		Severity:    severity,
		Step:        s.stepCount,
	})
}

// UpdateChain appends a chain entry. A non-empty nextFocus also becomes the
// session's current focus.
func (s *DiagnosticSession) UpdateChain(action, resultSummary, conclusion, nextFocus string) {
	s.chain = append(s.chain, ChainEntry{
		Step:          s.stepCount,
		Action:        action,
		ResultSummary: resultSummary,
		Conclusion:    conclusion,
		NextFocus:     nextFocus,
	})
	if nextFocus != "" {
		s.currentFocus = nextFocus
	}
}

// ExcludeCause records a root cause ruled out during diagnosis.
func (s *DiagnosticSession) ExcludeCause(cause string) {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		return
	}
	for _, c := range s.excludedCauses {
		if c == cause {
			return
		}
	}
	s.excludedCauses = append(s.excludedCauses, cause)
}

// StepCount returns the number of recorded actions.
func (s *DiagnosticSession) StepCount() int { return s.stepCount }

// UsageCount returns how often name has been executed, 0 if never.
func (s *DiagnosticSession) UsageCount(name string) int { return s.usageCounts[name] }

// DistinctActions returns the number of distinct action names executed.
func (s *DiagnosticSession) DistinctActions() int { return len(s.usageCounts) }

// Actions returns the full ordered action history.
func (s *DiagnosticSession) Actions() []ActionRecord { return s.actions }

// Findings returns all findings in record order.
func (s *DiagnosticSession) Findings() []Finding { return s.findings }

// Chain returns the diagnostic chain in record order.
func (s *DiagnosticSession) Chain() []ChainEntry { return s.chain }

// CurrentFocus returns the latest non-empty next-focus, or "".
func (s *DiagnosticSession) CurrentFocus() string { return s.currentFocus }

// ExcludedCauses returns the ruled-out causes in record order.
func (s *DiagnosticSession) ExcludedCauses() []string { return s.excludedCauses }

// Entities returns the session's entity registry.
func (s *DiagnosticSession) Entities() *EntityRegistry { return s.entities }

// RecentHistory returns the last n action records, oldest first.
func (s *DiagnosticSession) RecentHistory(n int) []ActionRecord {
	if n <= 0 || len(s.actions) == 0 {
		return nil
	}
	if n > len(s.actions) {
		n = len(s.actions)
	}
	return s.actions[len(s.actions)-n:]
}

// HasFindingInWindow reports whether any finding was recorded with a step
// number in [lo, hi].
func (s *DiagnosticSession) HasFindingInWindow(lo, hi int) bool {
	for _, f := range s.findings {
		if f.Step >= lo && f.Step <= hi {
			return true
		}
	}
	return false
}

// HasFindingWithSeverity reports whether any finding has the given severity.
func (s *DiagnosticSession) HasFindingWithSeverity(sev Severity) bool {
	for _, f := range s.findings {
		if f.Severity == sev {
			return true
		}
	}
	return false
}

// ContextSummary renders the planner-facing view of the session: current
// focus, excluded causes, and the last three chain entries.
func (s *DiagnosticSession) ContextSummary() string {
	var sb strings.Builder

	if s.currentFocus != "" {
		fmt.Fprintf(&sb, "Current focus: %s\n", s.currentFocus)
	}
	if len(s.excludedCauses) > 0 {
		fmt.Fprintf(&sb, "Excluded causes: %s\n", strings.Join(s.excludedCauses, "; "))
	}

	start := len(s.chain) - 3
	if start < 0 {
		start = 0
	}
	if len(s.chain) > 0 {
		sb.WriteString("Recent diagnosis:\n")
		for _, e := range s.chain[start:] {
			fmt.Fprintf(&sb, "  step %d: %s -> %s", e.Step, e.Action, e.ResultSummary)
			if e.Conclusion != "" {
				fmt.Fprintf(&sb, " (%s)", e.Conclusion)
			}
			sb.WriteString("\n")
		}
	}

	if sb.Len() == 0 {
		return "No diagnosis performed yet."
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatFindings renders all findings as prompt bullet lines, oldest
// first. Returns "- none recorded" when the session has no findings.
func (s *DiagnosticSession) FormatFindings() string {
	if len(s.findings) == 0 {
		return "- none recorded"
	}
	var sb strings.Builder
	for _, f := range s.findings {
		fmt.Fprintf(&sb, "- step %d [%s]: %s\n", f.Step, f.Severity, f.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatChain renders the full diagnosis chain for prompts, one line per
// step.
func (s *DiagnosticSession) FormatChain() string {
	if len(s.chain) == 0 {
		return "No diagnosis performed yet."
	}
	var sb strings.Builder
	for _, e := range s.chain {
		fmt.Fprintf(&sb, "step %d: %s -> %s", e.Step, e.Action, e.ResultSummary)
		if e.Conclusion != "" {
			fmt.Fprintf(&sb, " (%s)", e.Conclusion)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatHistory renders the last n actions for the candidate-generation
// prompt, including compact observations.
func (s *DiagnosticSession) FormatHistory(n int) string {
	recs := s.RecentHistory(n)
	if len(recs) == 0 {
		return "No actions executed yet."
	}
	var sb strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&sb, "step %d: %s(%s)", r.Step, r.ActionName, r.Arguments.FormatCompact())
		if ms := kv.Maps(r.Observation); len(ms) > 0 {
			fmt.Fprintf(&sb, " => %s", ms[0].FormatCompact())
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
