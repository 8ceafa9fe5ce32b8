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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Completed generation runs by stop reason.",
		},
		[]string{"reason"},
	)

	runSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracegen",
			Subsystem: "engine",
			Name:      "run_steps",
			Help:      "Recorded steps per completed run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 15),
		},
	)

	batchFanOuts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "engine",
			Name:      "batch_fanouts_total",
			Help:      "Steps that expanded across multiple entities.",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracegen",
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one generation run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)
