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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
	"github.com/AleutianAI/tracegen/services/diaggen/worldmodel"
)

// classifyFinding maps an executed action's anomaly level onto a session
// finding. Normal observations produce none.
//
// Failed executions (error-tagged observations) are findings too: an
// unreachable tool is itself diagnostic signal, classified low.
func classifyFinding(actionName string, obs any, variant worldmodel.Variant) (string, session.Severity, bool) {
	if kv.HasError(obs) {
		msg := "execution failed"
		if ms := kv.Maps(obs); len(ms) > 0 {
			if e := ms[0].String(kv.ErrorKey); e != "" {
				msg = e
			}
		}
		return fmt.Sprintf("%s failed: %s", actionName, msg), session.SeverityLow, true
	}

	switch variant {
	case worldmodel.VariantMildAnomaly:
		return fmt.Sprintf("%s shows a mild deviation", actionName), session.SeverityLow, true
	case worldmodel.VariantModerateAnomaly:
		return fmt.Sprintf("%s shows clear degradation", actionName), session.SeverityMedium, true
	case worldmodel.VariantSevereAnomaly:
		return fmt.Sprintf("%s reveals a critical fault", actionName), session.SeverityHigh, true
	default:
		if desc, ok := scanObservation(obs); ok {
			return fmt.Sprintf("%s: %s", actionName, desc), session.SeverityLow, true
		}
		return "", session.SeverityLow, false
	}
}

// scanObservation looks for explicit fault markers the variant alone does
// not carry: an operational status reported down, or a nonzero error
// counter. Catches model-written observations that depict a fault even
// when the variant sampler chose normal. Keys are visited in sorted order
// so repeated runs describe the same field.
func scanObservation(obs any) (string, bool) {
	for _, m := range kv.Maps(obs) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lk := strings.ToLower(k)
			switch v := m[k].(type) {
			case string:
				if statusKey(lk) && (v == "down" || v == "failed" || v == "error") {
					return fmt.Sprintf("%s reported %s", k, v), true
				}
			case int:
				if counterKey(lk) && v > 0 {
					return fmt.Sprintf("%s is nonzero (%d)", k, v), true
				}
			case int64:
				if counterKey(lk) && v > 0 {
					return fmt.Sprintf("%s is nonzero (%d)", k, v), true
				}
			case float64:
				if counterKey(lk) && v > 0 {
					return fmt.Sprintf("%s is nonzero (%g)", k, v), true
				}
			}
		}
	}
	return "", false
}

func statusKey(key string) bool {
	return key == "status" || key == "state" || strings.HasSuffix(key, "_status")
}

func counterKey(key string) bool {
	for _, marker := range []string{"error", "drop", "loss"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

// worstVariant returns the most severe variant among a fan-out sweep.
func worstVariant(variants []worldmodel.Variant) worldmodel.Variant {
	worst := worldmodel.VariantNormal
	for _, v := range variants {
		if v > worst {
			worst = v
		}
	}
	return worst
}
