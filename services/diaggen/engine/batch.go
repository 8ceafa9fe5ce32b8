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
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/planner"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// fanOutCues are rationale markers meaning "apply this to each entity".
// Chinese cues are matched as substrings, English ones as whole words.
var fanOutCuesCJK = []string{"逐一", "每个", "所有", "批量", "遍历"}

var fanOutCuesEnglish = map[string]bool{
	"each":    true,
	"every":   true,
	"all":     true,
	"iterate": true,
}

// batchPlan describes how one selected action will be executed.
type batchPlan struct {
	// paramKey is the argument substituted per entity; empty means no
	// fan-out.
	paramKey string

	// entities are the identifiers to sweep, in deterministic order.
	entities []string
}

// isFanOut reports whether the plan expands to multiple executions.
func (b batchPlan) isFanOut() bool { return len(b.entities) > 1 }

// decideBatch checks whether act should fan out across known entities: the
// rationale must carry an explicit fan-out cue, and the action must take a
// typed parameter whose entity type has more than one known identifier.
func decideBatch(act planner.Action, reg *session.EntityRegistry) batchPlan {
	if !hasFanOutCue(act.Rationale) {
		return batchPlan{}
	}

	for key := range act.Arguments {
		typ, ok := session.EntityTypeForKey(key)
		if !ok {
			continue
		}
		if ids := reg.Get(typ); len(ids) > 1 {
			return batchPlan{paramKey: key, entities: ids}
		}
	}
	return batchPlan{}
}

func hasFanOutCue(rationale string) bool {
	for _, cue := range fanOutCuesCJK {
		if strings.Contains(rationale, cue) {
			return true
		}
	}
	lower := strings.ToLower(rationale)
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		if fanOutCuesEnglish[word] {
			return true
		}
	}
	return false
}
