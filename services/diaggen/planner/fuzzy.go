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

import "strings"

// fuzzyThreshold is the minimum token-overlap similarity for a fuzzy match.
const fuzzyThreshold = 0.6

// FuzzyMatchName resolves a possibly-mangled action name against the valid
// set. Matching tiers, strongest first:
//
//  1. exact case-insensitive match
//  2. substring containment in either direction
//  3. containment with separators stripped, so "Trace Route" still
//     resolves to execute_traceroute
//  4. token-overlap similarity above the threshold
//
// Outputs:
//   - string: The resolved valid name.
//   - bool: False when no tier produced a match.
func FuzzyMatchName(name string, validNames []string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}

	for _, valid := range validNames {
		if strings.ToLower(valid) == needle {
			return valid, true
		}
	}

	for _, valid := range validNames {
		lv := strings.ToLower(valid)
		if strings.Contains(lv, needle) || strings.Contains(needle, lv) {
			return valid, true
		}
	}

	if sn := stripSeparators(needle); len(sn) >= 4 {
		for _, valid := range validNames {
			sv := stripSeparators(strings.ToLower(valid))
			if strings.Contains(sv, sn) || strings.Contains(sn, sv) {
				return valid, true
			}
		}
	}

	bestScore := 0.0
	bestName := ""
	for _, valid := range validNames {
		score := tokenOverlap(needle, strings.ToLower(valid))
		if score > bestScore {
			bestScore = score
			bestName = valid
		}
	}
	if bestScore > fuzzyThreshold {
		return bestName, true
	}
	return "", false
}

// tokenOverlap computes |intersection| / max(|a|, |b|) over underscore-split
// token sets.
func tokenOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if tb[tok] {
			shared++
		}
	}
	max := len(ta)
	if len(tb) > max {
		max = len(tb)
	}
	return float64(shared) / float64(max)
}

// stripSeparators collapses a name to its letters and digits so spaced or
// hyphenated spellings compare equal to the underscore form.
func stripSeparators(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '_', '-', ' ', '.':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	}) {
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
