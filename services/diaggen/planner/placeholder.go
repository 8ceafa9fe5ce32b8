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
	"strings"
	"unicode/utf8"

	"github.com/AleutianAI/tracegen/services/diaggen/goal"
	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// placeholderMarkers are substrings that mark a generated argument value as
// a stand-in rather than a concrete identifier. Candidate generation sees
// both Chinese and English prompts upstream, so both vocabularies appear.
var placeholderMarkers = []string{
	"设备", "接口", "所在", "某个", "这个", "那个",
	"device", "interface", "ip", "port", "vlan",
	"未知", "待定", "unknown", "tbd", "...", "xxx", "yyy",
}

// placeholderMaxLen bounds how long a value can be and still count as a
// placeholder. Real identifiers longer than this are never flagged.
const placeholderMaxLen = 15

// IsPlaceholder classifies one argument value.
//
// Description:
//
//	A value is a placeholder when it is empty, exactly equals a marker
//	word, or is short, contains a marker substring, and has none of the
//	structural characters ('/' or '.') that concrete identifiers such as
//	GE0/0/1 or 10.0.0.1 carry.
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	lower := strings.ToLower(v)
	for _, marker := range placeholderMarkers {
		if lower == marker {
			return true
		}
	}
	if utf8.RuneCountInString(v) >= placeholderMaxLen {
		return false
	}
	if strings.ContainsAny(v, "/.") {
		return false
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// knownValues is the pool of concrete values available for repair, keyed by
// entity type, with an untyped overflow keyed by raw parameter name.
type knownValues struct {
	byType map[session.EntityType]string
	byKey  map[string]string
}

// collectKnownValues scans, in priority order, the goal's declared
// entities, the goal's context parameters, and the history of prior action
// arguments and observations. The first concrete value per slot wins.
func collectKnownValues(state *session.DiagnosticSession, g goal.Goal) knownValues {
	known := knownValues{
		byType: make(map[session.EntityType]string),
		byKey:  make(map[string]string),
	}

	absorb := func(m kv.Map) {
		for key := range m {
			v := m.String(key)
			if v == "" || IsPlaceholder(v) {
				continue
			}
			if typ, ok := session.EntityTypeForKey(key); ok {
				if _, seen := known.byType[typ]; !seen {
					known.byType[typ] = v
				}
			}
			lk := strings.ToLower(key)
			if _, seen := known.byKey[lk]; !seen {
				known.byKey[lk] = v
			}
		}
	}

	absorb(g.Entities)
	absorb(g.ContextParams)
	for _, rec := range state.Actions() {
		absorb(rec.Arguments)
	}
	for _, rec := range state.Actions() {
		for _, m := range kv.Maps(rec.Observation) {
			absorb(m)
		}
	}
	return known
}

// lookup finds a repair value for the parameter key, preferring the typed
// pool, falling back to the raw-key pool.
func (k knownValues) lookup(key string) (string, bool) {
	if typ, ok := session.EntityTypeForKey(key); ok {
		if v, ok := k.byType[typ]; ok {
			return v, true
		}
	}
	v, ok := k.byKey[strings.ToLower(key)]
	return v, ok
}

// repairArguments substitutes known concrete values for placeholder
// argument values in place.
//
// Outputs:
//   - []string: Parameter names whose placeholders could not be repaired.
//     They stay in the argument map as-is.
func repairArguments(args kv.Map, known knownValues) []string {
	var unresolved []string
	for key := range args {
		v := args.String(key)
		if _, isScalar := args[key].(string); !isScalar && v == "" {
			continue
		}
		if !IsPlaceholder(v) {
			continue
		}
		if repl, ok := known.lookup(key); ok {
			args[key] = repl
			continue
		}
		unresolved = append(unresolved, key)
	}
	return unresolved
}
