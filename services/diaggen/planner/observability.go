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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "planner",
			Name:      "selections_total",
			Help:      "Completed action selections by terminal phase and mode.",
		},
		[]string{"phase", "mode"},
	)

	candidatesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "planner",
			Name:      "candidates_discarded_total",
			Help:      "Candidates discarded during selection, by cause.",
		},
		[]string{"cause"},
	)

	unresolvedPlaceholders = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "planner",
			Name:      "unresolved_placeholders_total",
			Help:      "Placeholder parameters that no known source could repair.",
		},
	)

	selectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracegen",
			Subsystem: "planner",
			Name:      "selection_duration_seconds",
			Help:      "Wall time of one SelectNextAction call including all retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
