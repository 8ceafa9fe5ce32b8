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

import "errors"

// Planning failures. Only ErrEmptyCatalog ever reaches the caller of
// SelectNextAction; the rest drive internal phase transitions and appear
// wrapped in logs.
var (
	// ErrEmptyCatalog is fatal: no selection is possible without tools.
	ErrEmptyCatalog = errors.New("tool catalog is empty")

	// ErrInvalidCandidateName marks a candidate whose action name is not
	// in the catalog. Discarded at scoring time.
	ErrInvalidCandidateName = errors.New("candidate action name not in catalog")

	// ErrCandidateGenerationEmpty marks a sampling round that produced no
	// valid candidates. Triggers the bounded retry loop.
	ErrCandidateGenerationEmpty = errors.New("candidate generation returned nothing usable")

	// ErrAllRetriesExhausted marks the transition from retrying into the
	// strict-fallback phase.
	ErrAllRetriesExhausted = errors.New("all sampling retries exhausted")
)
