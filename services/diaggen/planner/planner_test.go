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
	"math"
	"math/rand"
	"testing"

	"github.com/AleutianAI/tracegen/services/diaggen/catalog"
	"github.com/AleutianAI/tracegen/services/diaggen/goal"
	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

type mockSource struct {
	propose      func(ctx context.Context, req ProposeRequest) (*Candidate, error)
	proposeExact func(ctx context.Context, g goal.Goal, contextSummary, nameList string) (string, error)
}

func (m *mockSource) Propose(ctx context.Context, req ProposeRequest) (*Candidate, error) {
	if m.propose == nil {
		return nil, errors.New("propose not configured")
	}
	return m.propose(ctx, req)
}

func (m *mockSource) ProposeExact(ctx context.Context, g goal.Goal, contextSummary, nameList string) (string, error) {
	if m.proposeExact == nil {
		return "", errors.New("proposeExact not configured")
	}
	return m.proposeExact(ctx, g, contextSummary, nameList)
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{Name: "query_interface_info", Parameters: "device_name, interface_name"},
		{Name: "query_device_logs", Parameters: "device_name, keyword (optional)"},
		{Name: "query_interface_traffic", Parameters: "device_name, interface_name"},
		{Name: "execute_traceroute", Parameters: "device_name, destination_ip"},
	})
}

func testRNG() *rand.Rand { return rand.New(rand.NewSource(42)) }

// sequenceSource yields one prepared candidate per Propose call, cycling.
func sequenceSource(cands ...*Candidate) *mockSource {
	i := 0
	return &mockSource{
		propose: func(_ context.Context, _ ProposeRequest) (*Candidate, error) {
			c := cands[i%len(cands)]
			i++
			if c == nil {
				return nil, nil
			}
			cp := *c
			cp.Arguments = c.Arguments.Clone()
			return &cp, nil
		},
	}
}

func TestEmptyCatalogIsFatal(t *testing.T) {
	p := New(catalog.New(nil), &mockSource{}, ModeGreedy, testRNG(), nil)
	// finish pseudo-actions do not count as catalog entries
	_, err := p.SelectNextAction(context.Background(), session.New(), goal.Goal{}, 0.5)
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("err = %v, want ErrEmptyCatalog", err)
	}
}

func TestGreedyPicksTopRank(t *testing.T) {
	src := sequenceSource(
		&Candidate{ActionName: "query_interface_info", Rationale: "first"},
		&Candidate{ActionName: "query_device_logs"},
		&Candidate{ActionName: "query_interface_traffic"},
	)
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), goal.Goal{}, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if act.Name != "query_interface_info" {
		t.Errorf("greedy picked %q, want rank-0 candidate", act.Name)
	}
	if act.Phase != PhaseSampling {
		t.Errorf("Phase = %s, want %s", act.Phase, PhaseSampling)
	}
}

func TestExplorationBonusOverridesRank(t *testing.T) {
	state := session.New()
	// Heavy prior use of the rank-0 action shrinks its bonus below the
	// rank gap... it still wins on rank. Make the gap decisive instead:
	// rank0 used 9 times -> 3 + 0.2 = 3.2; rank1 unused -> 2 + 2 = 4.0.
	for i := 0; i < 9; i++ {
		state.RecordAction("query_interface_info", nil, nil, "")
	}
	src := sequenceSource(
		&Candidate{ActionName: "query_interface_info"},
		&Candidate{ActionName: "query_device_logs"},
		&Candidate{ActionName: "query_interface_info"},
	)
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), state, goal.Goal{}, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if act.Name != "query_device_logs" {
		t.Errorf("picked %q, want under-explored query_device_logs", act.Name)
	}
}

func TestExploratoryFrequenciesTrackScores(t *testing.T) {
	state := session.New()
	p := New(testCatalog(), &mockSource{}, ModeExploratory, testRNG(), nil)

	// Scores with zero usage: 3+2=5, 2+2=4, 1+2=3 -> weights 5/12, 4/12, 3/12.
	const draws = 10000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		cands := []*Candidate{
			{ActionName: "a"},
			{ActionName: "b"},
			{ActionName: "c"},
		}
		p.score(cands, state)
		counts[p.pick(cands).ActionName]++
	}

	want := map[string]float64{"a": 5.0 / 12, "b": 4.0 / 12, "c": 3.0 / 12}
	for name, w := range want {
		got := float64(counts[name]) / draws
		if math.Abs(got-w) > 0.02 {
			t.Errorf("frequency of %s = %.3f, want %.3f ± 0.02", name, got, w)
		}
	}
}

func TestBalancedTakesTopMostOfTheTime(t *testing.T) {
	state := session.New()
	p := New(testCatalog(), &mockSource{}, ModeBalanced, testRNG(), nil)

	const draws = 10000
	top := 0
	for i := 0; i < draws; i++ {
		cands := []*Candidate{{ActionName: "a"}, {ActionName: "b"}, {ActionName: "c"}}
		p.score(cands, state)
		if p.pick(cands).ActionName == "a" {
			top++
		}
	}
	got := float64(top) / draws
	if math.Abs(got-0.7) > 0.02 {
		t.Errorf("top-candidate frequency = %.3f, want 0.7 ± 0.02", got)
	}
}

func TestInvalidNamesDiscardedThenRetry(t *testing.T) {
	calls := 0
	src := &mockSource{
		propose: func(_ context.Context, _ ProposeRequest) (*Candidate, error) {
			calls++
			// First round: all three candidates invalid. Second round:
			// a valid one appears.
			if calls <= 3 {
				return &Candidate{ActionName: "made_up_tool"}, nil
			}
			return &Candidate{ActionName: "query_device_logs"}, nil
		},
	}
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), goal.Goal{}, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if act.Name != "query_device_logs" {
		t.Errorf("picked %q after retry", act.Name)
	}
	if act.Phase != PhaseRetrying {
		t.Errorf("Phase = %s, want %s", act.Phase, PhaseRetrying)
	}
}

func TestStrictFallbackExactName(t *testing.T) {
	src := &mockSource{
		propose: func(_ context.Context, _ ProposeRequest) (*Candidate, error) {
			return nil, errors.New("model down")
		},
		proposeExact: func(_ context.Context, _ goal.Goal, _, _ string) (string, error) {
			return "execute_traceroute", nil
		},
	}
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), goal.Goal{}, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if act.Name != "execute_traceroute" || act.Phase != PhaseStrictFallback {
		t.Errorf("got %q via %s, want execute_traceroute via %s", act.Name, act.Phase, PhaseStrictFallback)
	}
}

func TestFuzzyMatchAfterStrictFallback(t *testing.T) {
	src := &mockSource{
		propose: func(_ context.Context, _ ProposeRequest) (*Candidate, error) {
			return nil, nil // unparseable every time
		},
		proposeExact: func(_ context.Context, _ goal.Goal, _, _ string) (string, error) {
			return "Trace Route", nil
		},
	}
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), goal.Goal{}, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if act.Name != "execute_traceroute" || act.Phase != PhaseFuzzyMatch {
		t.Errorf("got %q via %s, want execute_traceroute via %s", act.Name, act.Phase, PhaseFuzzyMatch)
	}
}

func TestLastResortNeverFails(t *testing.T) {
	src := &mockSource{
		propose: func(_ context.Context, _ ProposeRequest) (*Candidate, error) {
			return nil, errors.New("down")
		},
		proposeExact: func(_ context.Context, _ goal.Goal, _, _ string) (string, error) {
			return "", errors.New("down")
		},
	}
	g := goal.Goal{Entities: kv.Map{"device_name": "S1", "interface_name": "GE0/0/1"}}
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), g, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if act.Phase != PhaseLastResort {
		t.Fatalf("Phase = %s", act.Phase)
	}
	// First step prefers a read-only query tool and fills typed args from
	// the goal.
	if act.Name != "query_interface_info" {
		t.Errorf("last resort picked %q", act.Name)
	}
	if got := act.Arguments.String("device_name"); got != "S1" {
		t.Errorf("device_name = %q", got)
	}
	if got := act.Arguments.String("interface_name"); got != "GE0/0/1" {
		t.Errorf("interface_name = %q", got)
	}
}

func TestLastResortPrefersUnusedAfterFirstStep(t *testing.T) {
	state := session.New()
	state.RecordAction("query_interface_info", nil, nil, "")
	p := New(testCatalog(), &mockSource{}, ModeGreedy, testRNG(), nil)

	c := p.lastResort(state, goal.Goal{})
	if c.ActionName != "query_device_logs" {
		t.Errorf("lastResort = %q, want first unused tool", c.ActionName)
	}

	// All used: minimum usage wins.
	for _, n := range []string{"query_device_logs", "query_interface_traffic", "execute_traceroute"} {
		state.RecordAction(n, nil, nil, "")
		state.RecordAction(n, nil, nil, "")
	}
	state.RecordAction("query_interface_info", nil, nil, "")
	// usage: info=2, logs=2, traffic=2, traceroute=2 -> first name wins ties.
	c = p.lastResort(state, goal.Goal{})
	if c.ActionName != "query_interface_info" {
		t.Errorf("lastResort with all-used = %q", c.ActionName)
	}
}

func TestCommitRepairsPlaceholders(t *testing.T) {
	src := sequenceSource(
		&Candidate{
			ActionName: "query_interface_info",
			Arguments:  kv.Map{"device_name": "设备", "interface_name": "GE0/0/1"},
		},
	)
	g := goal.Goal{Entities: kv.Map{"device": "X1"}}
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), g, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if got := act.Arguments.String("device_name"); got != "X1" {
		t.Errorf("device_name = %q, want X1", got)
	}
	if len(act.UnresolvedParams) != 0 {
		t.Errorf("UnresolvedParams = %v", act.UnresolvedParams)
	}
}

func TestUnresolvedPlaceholderIsFlaggedNotFatal(t *testing.T) {
	src := sequenceSource(
		&Candidate{
			ActionName: "query_device_logs",
			Arguments:  kv.Map{"device_name": "unknown"},
		},
	)
	p := New(testCatalog(), src, ModeGreedy, testRNG(), nil)

	act, err := p.SelectNextAction(context.Background(), session.New(), goal.Goal{}, 0.5)
	if err != nil {
		t.Fatalf("SelectNextAction: %v", err)
	}
	if len(act.UnresolvedParams) != 1 || act.UnresolvedParams[0] != "device_name" {
		t.Errorf("UnresolvedParams = %v", act.UnresolvedParams)
	}
	if got := act.Arguments.String("device_name"); got != "unknown" {
		t.Errorf("placeholder should be left as-is, got %q", got)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("GREEDY") != ModeGreedy {
		t.Error("GREEDY should parse to greedy")
	}
	if ParseMode("exploratory") != ModeExploratory {
		t.Error("exploratory should parse")
	}
	if ParseMode("anything else") != ModeBalanced {
		t.Error("default should be balanced")
	}
}
