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

import (
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
)

func TestRecordActionInvariants(t *testing.T) {
	s := New()
	for i := 0; i < 4; i++ {
		name := "query_interface_info"
		if i == 3 {
			name = "query_device_logs"
		}
		s.RecordAction(name, kv.Map{"device_name": "S1"}, kv.Map{"status": "up"}, "check")
		s.UpdateChain(name, "ok", "normal", "")
	}

	if s.StepCount() != 4 {
		t.Fatalf("StepCount() = %d, want 4", s.StepCount())
	}
	if len(s.Actions()) != s.StepCount() || len(s.Chain()) != s.StepCount() {
		t.Errorf("stepCount=%d actions=%d chain=%d, must all match",
			s.StepCount(), len(s.Actions()), len(s.Chain()))
	}
	if got := s.UsageCount("query_interface_info"); got != 3 {
		t.Errorf("UsageCount(query_interface_info) = %d, want 3", got)
	}
	if got := s.UsageCount("never_used"); got != 0 {
		t.Errorf("UsageCount(never_used) = %d, want 0", got)
	}
	if got := s.DistinctActions(); got != 2 {
		t.Errorf("DistinctActions() = %d, want 2", got)
	}
	for i, a := range s.Actions() {
		if a.Step != i+1 {
			t.Errorf("action %d has step %d", i, a.Step)
		}
	}
}

func TestRecordActionCopiesArguments(t *testing.T) {
	s := New()
	args := kv.Map{"device_name": "S1"}
	s.RecordAction("query_interface_info", args, nil, "")
	args["device_name"] = "mutated"
	if got := s.Actions()[0].Arguments.String("device_name"); got != "S1" {
		t.Errorf("recorded arguments were mutated after the fact: %q", got)
	}
}

func TestFindingsAndFocus(t *testing.T) {
	s := New()
	s.RecordAction("a", nil, nil, "")
	s.RecordFinding("crc errors rising", SeverityMedium)
	s.UpdateChain("a", "errors found", "suspect link", "check optical power")

	if s.CurrentFocus() != "check optical power" {
		t.Errorf("CurrentFocus() = %q", s.CurrentFocus())
	}
	f := s.Findings()[0]
	if f.Step != 1 || f.Severity != SeverityMedium {
		t.Errorf("finding = %+v", f)
	}

	// Empty nextFocus keeps the previous focus.
	s.RecordAction("b", nil, nil, "")
	s.UpdateChain("b", "ok", "", "")
	if s.CurrentFocus() != "check optical power" {
		t.Errorf("empty nextFocus overwrote focus: %q", s.CurrentFocus())
	}
}

func TestRecentHistory(t *testing.T) {
	s := New()
	for i := 1; i <= 5; i++ {
		s.RecordAction(fmt.Sprintf("tool_%d", i), nil, nil, "")
	}
	recs := s.RecentHistory(3)
	if len(recs) != 3 {
		t.Fatalf("RecentHistory(3) returned %d records", len(recs))
	}
	if recs[0].ActionName != "tool_3" || recs[2].ActionName != "tool_5" {
		t.Errorf("RecentHistory order wrong: %s .. %s", recs[0].ActionName, recs[2].ActionName)
	}
	if got := s.RecentHistory(10); len(got) != 5 {
		t.Errorf("RecentHistory(10) returned %d records, want 5", len(got))
	}
	if got := s.RecentHistory(0); got != nil {
		t.Errorf("RecentHistory(0) = %v, want nil", got)
	}
}

func TestContextSummary(t *testing.T) {
	s := New()
	if got := s.ContextSummary(); got != "No diagnosis performed yet." {
		t.Errorf("empty summary = %q", got)
	}

	s.ExcludeCause("physical damage")
	s.ExcludeCause("physical damage") // no dup
	for i := 1; i <= 4; i++ {
		s.RecordAction("a", nil, nil, "")
		s.UpdateChain("a", fmt.Sprintf("result %d", i), "", "focus")
	}
	got := s.ContextSummary()
	if !strings.Contains(got, "Current focus: focus") {
		t.Errorf("summary missing focus:\n%s", got)
	}
	if !strings.Contains(got, "physical damage") {
		t.Errorf("summary missing excluded cause:\n%s", got)
	}
	if strings.Contains(got, "result 1") {
		t.Errorf("summary should only show last 3 chain entries:\n%s", got)
	}
	if !strings.Contains(got, "result 2") || !strings.Contains(got, "result 4") {
		t.Errorf("summary missing recent entries:\n%s", got)
	}
	if got := len(s.ExcludedCauses()); got != 1 {
		t.Errorf("ExcludedCauses length = %d, want 1", got)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"high":    SeverityHigh,
		" HIGH ":  SeverityHigh,
		"medium":  SeverityMedium,
		"low":     SeverityLow,
		"":        SeverityLow,
		"unknown": SeverityLow,
	}
	for in, want := range cases {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", in, got, want)
		}
	}
}
