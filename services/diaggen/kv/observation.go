// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kv

// Observations are either a single Map, a list of Maps, or nil. An
// observation carrying an "error" key is a failed execution: recorded like
// any other, never retried.

// ErrorKey marks a failed observation.
const ErrorKey = "error"

// ErrorObservation builds an observation tagged as a failed execution.
func ErrorObservation(msg string) Map {
	return Map{ErrorKey: msg}
}

// HasError reports whether obs carries an error marker, checking each
// element when obs is a list.
func HasError(obs any) bool {
	for _, m := range Maps(obs) {
		if _, ok := m[ErrorKey]; ok {
			return true
		}
	}
	return false
}

// Maps normalizes an observation value to a flat slice of Maps. Scalar or
// unrecognized observations yield nil.
func Maps(obs any) []Map {
	switch t := obs.(type) {
	case Map:
		return []Map{t}
	case map[string]any:
		return []Map{Map(t)}
	case []Map:
		return t
	case []map[string]any:
		out := make([]Map, len(t))
		for i, e := range t {
			out[i] = Map(e)
		}
		return out
	case []any:
		// Decoded JSON arrays arrive as []any; keep the map elements.
		var out []Map
		for _, e := range t {
			out = append(out, Maps(e)...)
		}
		return out
	default:
		return nil
	}
}
