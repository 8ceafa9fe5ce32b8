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

import "testing"

// JSON arrays decode as []any; a candidate whose arguments carry a list
// must survive parsing instead of being dropped.
func TestParseCandidateListArguments(t *testing.T) {
	cand := parseCandidate(`{
		"action": "query_device_logs",
		"arguments": {
			"device_name": "S1",
			"filters": [{"level": "error"}],
			"vlans": ["100", "200"]
		},
		"rationale": "pull error-level logs"
	}`)
	if cand == nil {
		t.Fatal("candidate with list arguments was rejected")
	}
	if cand.ActionName != "query_device_logs" {
		t.Errorf("ActionName = %q", cand.ActionName)
	}
	if _, ok := cand.Arguments["filters"]; !ok {
		t.Error("list-of-map argument dropped")
	}
	if _, ok := cand.Arguments["vlans"]; !ok {
		t.Error("string-list argument dropped")
	}
}

func TestParseCandidateFieldDrift(t *testing.T) {
	cand := parseCandidate("```json\n" + `{
		"tool_name": "query_ping_tool",
		"args": {"destination": "10.0.0.9"},
		"reasoning": "verify reachability"
	}` + "\n```")
	if cand == nil {
		t.Fatal("drifted field names should still parse")
	}
	if cand.ActionName != "query_ping_tool" || cand.Rationale != "verify reachability" {
		t.Errorf("parsed = %+v", cand)
	}
	if cand.Arguments.String("destination") != "10.0.0.9" {
		t.Errorf("Arguments = %v", cand.Arguments)
	}
}

func TestParseCandidateRejectsNameless(t *testing.T) {
	if cand := parseCandidate(`{"arguments": {"x": "y"}}`); cand != nil {
		t.Errorf("nameless candidate parsed: %+v", cand)
	}
	if cand := parseCandidate("no json here"); cand != nil {
		t.Errorf("non-JSON response parsed: %+v", cand)
	}
}
