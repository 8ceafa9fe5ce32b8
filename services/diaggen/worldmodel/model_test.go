// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worldmodel

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
)

type mockChat struct {
	response string
	err      error
}

func (m *mockChat) Chat(_ context.Context, _ []providers.Message, _ providers.ChatOptions) (string, error) {
	return m.response, m.err
}

func newTestModel(profile Profile, maxSteps int) *Model {
	return NewModel(nil, profile, rand.New(rand.NewSource(7)), maxSteps, nil)
}

func TestVariantString(t *testing.T) {
	if VariantNormal.String() != "normal" || VariantSevereAnomaly.String() != "severe_anomaly" {
		t.Error("variant names wrong")
	}
	if VariantNormal.IsAnomaly() {
		t.Error("normal is not an anomaly")
	}
	if !VariantMildAnomaly.IsAnomaly() {
		t.Error("mild is an anomaly")
	}
}

func TestPickVariantDistribution(t *testing.T) {
	m := newTestModel(ProfileLow, 1000000)

	const draws = 20000
	counts := [4]int{}
	for i := 0; i < draws; i++ {
		counts[m.PickVariant(0)]++
	}
	want := variantWeights[ProfileLow]
	for v := VariantNormal; v <= VariantSevereAnomaly; v++ {
		got := float64(counts[v]) / draws
		if math.Abs(got-want[v]) > 0.02 {
			t.Errorf("frequency of %s = %.3f, want %.3f ± 0.02", v, got, want[v])
		}
	}
	// Low profile never produces severe anomalies.
	if counts[VariantSevereAnomaly] != 0 {
		t.Errorf("low profile drew %d severe anomalies", counts[VariantSevereAnomaly])
	}
}

func TestForcedAnomalyNearStepLimit(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		m := NewModel(nil, ProfileLow, rand.New(rand.NewSource(seed)), 10, nil)
		// Step 8 is maxSteps-2; with no prior anomaly the normal variant
		// must be excluded.
		v := m.PickVariant(8)
		if !v.IsAnomaly() {
			t.Fatalf("seed %d: variant at forced step = %s", seed, v)
		}
	}
}

func TestNoForcingAfterAnomalySeen(t *testing.T) {
	m := newTestModel(ProfileLow, 10)
	m.anomalySeen = true
	sawNormal := false
	for i := 0; i < 200; i++ {
		if m.PickVariant(9) == VariantNormal {
			sawNormal = true
			break
		}
	}
	if !sawNormal {
		t.Error("normal variant should stay available once an anomaly exists")
	}
}

func TestExecuteSynthesizesWithoutClient(t *testing.T) {
	m := newTestModel(ProfileHigh, 10)
	obs, variant := m.Execute(context.Background(), "query_interface_error_statistics",
		kv.Map{"device_name": "S1", "interface_name": "GE0/0/1"}, 0)

	om, ok := obs.(kv.Map)
	if !ok {
		t.Fatalf("observation type %T", obs)
	}
	if om.String("device_name") != "S1" {
		t.Error("observation should echo arguments")
	}
	if _, present := om["crc_errors"]; !present {
		t.Error("error-statistics observation missing crc_errors")
	}
	if variant == VariantSevereAnomaly && om.String("alarm") != "critical" {
		t.Error("severe observation missing alarm field")
	}
}

func TestExecuteUsesModelResponse(t *testing.T) {
	mc := &mockChat{response: `{"status": "down", "last_change": "00:00:12"}`}
	m := NewModel(mc, ProfileMedium, rand.New(rand.NewSource(1)), 10, nil)

	obs, _ := m.Execute(context.Background(), "query_interface_info", kv.Map{}, 0)
	om := obs.(kv.Map)
	if om.String("status") != "down" {
		t.Errorf("status = %q", om.String("status"))
	}
}

func TestExecuteFallsBackOnModelFailure(t *testing.T) {
	mc := &mockChat{err: errors.New("unreachable")}
	m := NewModel(mc, ProfileMedium, rand.New(rand.NewSource(1)), 10, nil)

	obs, _ := m.Execute(context.Background(), "query_ping_tool", kv.Map{"device_name": "S1"}, 0)
	om, ok := obs.(kv.Map)
	if !ok {
		t.Fatalf("observation type %T", obs)
	}
	if _, present := om["packet_loss_percent"]; !present {
		t.Error("fallback ping observation missing packet_loss_percent")
	}
}

func TestParseProfile(t *testing.T) {
	if ParseProfile("low") != ProfileLow || ParseProfile("high") != ProfileHigh {
		t.Error("explicit profiles should parse")
	}
	if ParseProfile("odd") != ProfileMedium {
		t.Error("default profile should be medium")
	}
}
