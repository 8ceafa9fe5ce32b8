// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level Prometheus metrics for provider chat calls.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// chatCallDuration measures the duration of chat API calls.
	//
	// Labels:
	//   - provider: "openai_compat"
	//   - status: "success" or "error"
	chatCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracegen",
			Subsystem: "chat",
			Name:      "call_duration_seconds",
			Help:      "Duration of chat API calls in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "status"},
	)

	// chatCallsTotal counts chat API calls by outcome.
	chatCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "chat",
			Name:      "calls_total",
			Help:      "Total number of chat API calls.",
		},
		[]string{"provider", "status"},
	)

	// chatErrorsTotal counts chat errors by type.
	//
	// Labels:
	//   - error_type: "timeout", "auth", "rate_limit", "server",
	//     "empty_response", "unknown"
	chatErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracegen",
			Subsystem: "chat",
			Name:      "errors_total",
			Help:      "Total chat errors by type.",
		},
		[]string{"provider", "error_type"},
	)

	// chatActiveRequests tracks in-flight chat requests.
	chatActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tracegen",
			Subsystem: "chat",
			Name:      "active_requests",
			Help:      "Number of currently active chat requests.",
		},
		[]string{"provider"},
	)
)

// classifyError maps an error to a label-safe error type string.
//
// Description:
//
//	Inspects the error to categorize it into one of the predefined error
//	types used as Prometheus label values. This avoids high-cardinality
//	labels from raw error messages.
//
// Inputs:
//
//	err - The error to classify. May be nil.
//
// Outputs:
//
//	string - One of: "timeout", "auth", "rate_limit", "server",
//	         "empty_response", "unknown". Returns empty string for nil.
//
// Thread Safety: Safe for concurrent use.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key") || strings.Contains(msg, "auth"):
		return "auth"
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return "rate_limit"
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503"):
		return "server"
	case strings.Contains(msg, "empty response") || strings.Contains(msg, "no choices"):
		return "empty_response"
	default:
		return "unknown"
	}
}

// recordChatMetrics records duration and outcome metrics for one chat call.
func recordChatMetrics(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		chatErrorsTotal.WithLabelValues(provider, classifyError(err)).Inc()
	}
	chatCallDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	chatCallsTotal.WithLabelValues(provider, status).Inc()
}
