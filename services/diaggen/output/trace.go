// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package output assembles the rendered trace document: the rewritten user
// query followed by the ordered chain-of-thought / chain-of-action steps.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
)

// ActionCall is the wire form of one executed action.
type ActionCall struct {
	Name string `json:"name"`
	Args kv.Map `json:"args"`
}

// COAEntry pairs one action invocation with its observation. A batch
// fan-out step carries several entries under a single step.
type COAEntry struct {
	Action      ActionCall `json:"action"`
	Observation any        `json:"observation"`
}

// Step is one reasoning step of the trace.
type Step struct {
	// Index is the 1-based step number; it becomes the JSON key.
	Index int

	// COT is the chain-of-thought text for the step.
	COT string

	// COA is the chain of actions executed within the step.
	COA []COAEntry
}

type stepBody struct {
	COT string     `json:"cot"`
	COA []COAEntry `json:"coa"`
}

// MarshalJSON renders the step as {"stepN": {"cot": ..., "coa": [...]}}.
func (s Step) MarshalJSON() ([]byte, error) {
	coa := s.COA
	if coa == nil {
		coa = []COAEntry{}
	}
	return json.Marshal(map[string]stepBody{
		fmt.Sprintf("step%d", s.Index): {COT: s.COT, COA: coa},
	})
}

// Trace is one complete generated sample.
type Trace struct {
	Query    string `json:"query"`
	Response []Step `json:"response"`
}

// NewTrace starts a trace for query.
func NewTrace(query string) *Trace {
	return &Trace{Query: query, Response: []Step{}}
}

// AppendStep adds the next step, assigning its 1-based index.
func (t *Trace) AppendStep(cot string, coa []COAEntry) {
	t.Response = append(t.Response, Step{
		Index: len(t.Response) + 1,
		COT:   cot,
		COA:   coa,
	})
}

// Steps returns the number of steps assembled so far.
func (t *Trace) Steps() int { return len(t.Response) }
