// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner selects the next diagnostic action: it gathers candidate
// actions from a generation collaborator, scores them with an exploration
// bonus, validates and repairs their parameters, and degrades through
// strict re-query, fuzzy name matching, and a deterministic last resort
// before ever failing.
package planner

import (
	"context"

	"github.com/AleutianAI/tracegen/services/diaggen/goal"
	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// Candidate is one proposed action awaiting scoring. Transient; never
// persisted past selection.
type Candidate struct {
	ActionName      string
	Arguments       kv.Map
	Rationale       string
	ExpectedOutcome string
	NextFocus       string

	// Score is assigned during scoring from rank position and the
	// exploration bonus. Always non-negative.
	Score float64
}

// Action is the planner's committed output for one step.
type Action struct {
	Name            string
	Arguments       kv.Map
	Rationale       string
	ExpectedOutcome string
	NextFocus       string

	// UnresolvedParams names arguments left holding placeholder values
	// because no known source could repair them.
	UnresolvedParams []string

	// Phase records which selection phase produced the action.
	Phase Phase
}

// ProposeRequest is the bundle sent to the candidate-generation
// collaborator for one proposal call.
type ProposeRequest struct {
	Goal           goal.Goal
	ContextSummary string
	History        string
	KnownEntities  map[session.EntityType][]string
	ToolList       string

	// Temperature is the randomness parameter, varied per call.
	Temperature float64
}

// CandidateSource is the candidate-generation collaborator contract.
//
// Propose returns zero or one candidate per call: a nil candidate with a
// nil error means the response did not parse, which the planner treats the
// same as a transport error. Returned names are never trusted; the planner
// re-validates every one against the catalog.
type CandidateSource interface {
	Propose(ctx context.Context, req ProposeRequest) (*Candidate, error)

	// ProposeExact runs the strict fallback query: the full valid-name
	// list is supplied verbatim and the collaborator must answer with one
	// exact name.
	ProposeExact(ctx context.Context, g goal.Goal, contextSummary string, nameList string) (string, error)
}
