// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kv defines the structurally-typed key-value maps used for action
// arguments and observations. Values are restricted to string, number, bool,
// nested map, or list-of-map so that placeholder detection and entity
// extraction can be total instead of best-effort string scanning.
package kv

import (
	"fmt"
	"sort"
	"strings"
)

// Map is a string-keyed payload with a restricted value schema.
type Map map[string]any

// Validate reports the first schema violation in m, or nil.
//
// Allowed value types: string, bool, int, int64, float64, Map,
// map[string]any, []Map, []map[string]any, nil, and []any whose elements
// are themselves allowed (the shape encoding/json produces for arrays).
func (m Map) Validate() error {
	for k, v := range m {
		if err := validateValue(v); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}

func validateValue(v any) error {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64:
		return nil
	case Map:
		return t.Validate()
	case map[string]any:
		return Map(t).Validate()
	case []Map:
		for i, e := range t {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case []map[string]any:
		for i, e := range t {
			if err := Map(e).Validate(); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case []any:
		for i, e := range t {
			if err := validateValue(e); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

// String returns m[key] as a string. Non-string scalars are formatted;
// missing keys and nested values yield "".
func (m Map) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// Clone returns a shallow copy of m with nested maps copied one level deep.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case Map:
			out[k] = t.Clone()
		case map[string]any:
			out[k] = Map(t).Clone()
		default:
			out[k] = v
		}
	}
	return out
}

// StringValues returns the scalar string values of m in sorted-key order,
// descending into nested maps and lists. Used when scanning observations
// for concrete parameter values.
func (m Map) StringValues() []string {
	var out []string
	collectStrings(m, &out)
	return out
}

func collectStrings(m Map, out *[]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch t := m[k].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				*out = append(*out, s)
			}
		case Map:
			collectStrings(t, out)
		case map[string]any:
			collectStrings(Map(t), out)
		case []Map:
			for _, e := range t {
				collectStrings(e, out)
			}
		case []map[string]any:
			for _, e := range t {
				collectStrings(Map(e), out)
			}
		case []any:
			for _, e := range t {
				if s, ok := e.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						*out = append(*out, s)
					}
					continue
				}
				for _, em := range Maps(e) {
					collectStrings(em, out)
				}
			}
		}
	}
}

// FormatCompact renders m as "k1=v1, k2=v2" with sorted keys, for logs and
// prompt context. Nested values render via fmt.
func (m Map) FormatCompact() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, ", ")
}
