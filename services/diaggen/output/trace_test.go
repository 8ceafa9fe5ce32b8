// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
)

func TestTraceShape(t *testing.T) {
	tr := NewTrace("why is GE0/0/1 down?")
	tr.AppendStep("check the interface first", []COAEntry{{
		Action: ActionCall{
			Name: "query_interface_info",
			Args: kv.Map{"device_name": "S1", "interface_name": "GE0/0/1"},
		},
		Observation: kv.Map{"status": "down"},
	}})
	tr.AppendStep("interface is down, conclude", []COAEntry{{
		Action:      ActionCall{Name: "finish_diagnosis", Args: kv.Map{}},
		Observation: kv.Map{"conclusion": "link failure"},
	}})

	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)

	if !strings.Contains(s, `"query":"why is GE0/0/1 down?"`) {
		t.Errorf("missing query field:\n%s", s)
	}
	if !strings.Contains(s, `"step1":{"cot":"check the interface first"`) {
		t.Errorf("step1 shape wrong:\n%s", s)
	}
	if !strings.Contains(s, `"step2":`) {
		t.Errorf("step2 key missing:\n%s", s)
	}
	if !strings.Contains(s, `"action":{"name":"query_interface_info"`) {
		t.Errorf("action shape wrong:\n%s", s)
	}
	if tr.Steps() != 2 {
		t.Errorf("Steps() = %d", tr.Steps())
	}
}

func TestStepMarshalEmptyCOA(t *testing.T) {
	data, err := json.Marshal(Step{Index: 3, COT: "thinking"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"step3":{"cot":"thinking","coa":[]}}` {
		t.Errorf("empty COA renders as %s", data)
	}
}

func TestBatchStepCarriesAllObservations(t *testing.T) {
	tr := NewTrace("check each interface")
	var coa []COAEntry
	for _, iface := range []string{"GE0/0/1", "GE0/0/2", "GE0/0/3"} {
		coa = append(coa, COAEntry{
			Action: ActionCall{
				Name: "query_interface_info",
				Args: kv.Map{"interface_name": iface},
			},
			Observation: kv.Map{"status": "up"},
		})
	}
	tr.AppendStep("sweep all interfaces", coa)

	if got := len(tr.Response[0].COA); got != 3 {
		t.Fatalf("COA length = %d, want 3", got)
	}
}
