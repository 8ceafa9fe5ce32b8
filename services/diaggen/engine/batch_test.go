// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"reflect"
	"testing"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/output"
	"github.com/AleutianAI/tracegen/services/diaggen/planner"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
	"github.com/AleutianAI/tracegen/services/diaggen/worldmodel"
)

func registryWith(typ session.EntityType, ids ...string) *session.EntityRegistry {
	r := session.NewEntityRegistry()
	r.Add(typ, ids...)
	return r
}

func TestDecideBatchFansOut(t *testing.T) {
	reg := registryWith(session.EntityInterface, "a", "b", "c")
	act := planner.Action{
		Name:      "query_interface_info",
		Arguments: kv.Map{"device_name": "S1", "interface_name": "a"},
		Rationale: "逐一检查每个接口",
	}
	plan := decideBatch(act, reg)
	if !plan.isFanOut() {
		t.Fatal("expected fan-out")
	}
	if plan.paramKey != "interface_name" {
		t.Errorf("paramKey = %q", plan.paramKey)
	}
	if !reflect.DeepEqual(plan.entities, []string{"a", "b", "c"}) {
		t.Errorf("entities = %v", plan.entities)
	}
}

func TestDecideBatchNeedsCue(t *testing.T) {
	reg := registryWith(session.EntityInterface, "a", "b", "c")
	act := planner.Action{
		Name:      "query_interface_info",
		Arguments: kv.Map{"interface_name": "a"},
		Rationale: "check the uplink specifically",
	}
	if decideBatch(act, reg).isFanOut() {
		t.Error("no cue must mean no fan-out")
	}
}

func TestDecideBatchNeedsMultipleEntities(t *testing.T) {
	reg := registryWith(session.EntityInterface, "a")
	act := planner.Action{
		Name:      "query_interface_info",
		Arguments: kv.Map{"interface_name": "a"},
		Rationale: "check every interface",
	}
	if decideBatch(act, reg).isFanOut() {
		t.Error("a single known entity must not fan out")
	}
}

func TestHasFanOutCueEnglishWholeWord(t *testing.T) {
	if !hasFanOutCue("iterate over the ports") {
		t.Error("iterate should cue")
	}
	if !hasFanOutCue("check ALL interfaces") {
		t.Error("all should cue case-insensitively")
	}
	// 'overall' contains 'all' but is not a cue.
	if hasFanOutCue("overall health looks fine") {
		t.Error("substring of a larger word must not cue")
	}
}

func TestFanOutRecordsOneStepManyObservations(t *testing.T) {
	stub := &stubExecutor{variant: worldmodel.VariantNormal}
	e, _ := testEngine(worldmodel.VariantNormal)

	sess := session.New()
	sess.Entities().Add(session.EntityInterface, "a", "b", "c")
	tr := output.NewTrace("q")

	act := planner.Action{
		Name:      "query_interface_info",
		Arguments: kv.Map{"device_name": "S1", "interface_name": "a"},
		Rationale: "逐一检查每个接口",
	}
	e.executeStep(context.Background(), sess, tr, stub, act)

	if stub.calls != 3 {
		t.Errorf("executor calls = %d, want 3", stub.calls)
	}
	if sess.StepCount() != 1 {
		t.Errorf("StepCount = %d, want 1 (no step inflation)", sess.StepCount())
	}
	if got := len(tr.Response[0].COA); got != 3 {
		t.Errorf("trace observations = %d, want 3", got)
	}
	// Each entry carries its own substituted argument.
	seen := map[string]bool{}
	for _, entry := range tr.Response[0].COA {
		seen[entry.Action.Args.String("interface_name")] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("missing fan-out execution for %q", id)
		}
	}
}

func TestWorstVariant(t *testing.T) {
	got := worstVariant([]worldmodel.Variant{
		worldmodel.VariantNormal,
		worldmodel.VariantModerateAnomaly,
		worldmodel.VariantMildAnomaly,
	})
	if got != worldmodel.VariantModerateAnomaly {
		t.Errorf("worstVariant = %s", got)
	}
}
