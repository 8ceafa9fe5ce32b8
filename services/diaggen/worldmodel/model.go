// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worldmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
)

var tracer = otel.Tracer("tracegen.worldmodel")

// Model synthesizes observations for one run.
//
// # Thread Safety
//
// Not safe for concurrent use: the random generator and the anomaly flag
// belong to one run. Create one model per session.
type Model struct {
	client   providers.ChatClient
	profile  Profile
	rng      *rand.Rand
	maxSteps int
	logger   *slog.Logger

	anomalySeen bool
}

// NewModel creates a model for one run.
//
// Inputs:
//   - client: Optional chat model for richer observations; nil selects the
//     deterministic synthesizer only.
//   - rng: Per-run generator seeded from the run identifier.
//   - maxSteps: The run's step limit, used to force an anomaly near the
//     end of anomaly-free runs.
func NewModel(client providers.ChatClient, profile Profile, rng *rand.Rand, maxSteps int, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		client:   client,
		profile:  profile,
		rng:      rng,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// PickVariant draws the anomaly level for the observation at step.
//
// Description:
//
//	Weighted sampling under the run's profile. When the run is within two
//	steps of its limit and has produced no anomaly yet, the normal variant
//	is excluded so every generated trace contains something to find.
func (m *Model) PickVariant(step int) Variant {
	weights := variantWeights[m.profile]

	if step >= m.maxSteps-2 && !m.anomalySeen {
		weights[VariantNormal] = 0
		if weights[VariantMildAnomaly]+weights[VariantModerateAnomaly]+weights[VariantSevereAnomaly] == 0 {
			weights[VariantModerateAnomaly] = 1
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := m.rng.Float64() * total
	for v, w := range weights {
		r -= w
		if r <= 0 && w > 0 {
			variant := Variant(v)
			if variant.IsAnomaly() {
				m.anomalySeen = true
			}
			return variant
		}
	}
	m.anomalySeen = true
	return VariantSevereAnomaly
}

// AnomalySeen reports whether any anomalous observation was produced yet.
func (m *Model) AnomalySeen() bool { return m.anomalySeen }

// Execute answers one action with a synthesized observation.
//
// # Description
//
// Picks a variant, then asks the chat model for an observation consistent
// with the action and that variant. Transport or parse failures fall back
// to the deterministic synthesizer, so an observation is always produced.
// A model refusal is represented as an error-tagged observation, never as
// an executor failure.
func (m *Model) Execute(ctx context.Context, actionName string, args kv.Map, step int) (any, Variant) {
	variant := m.PickVariant(step)

	ctx, span := tracer.Start(ctx, "worldmodel.Execute")
	span.SetAttributes(
		attribute.String("world.action", actionName),
		attribute.String("world.variant", variant.String()),
	)
	defer span.End()

	if m.client == nil {
		return m.synthesize(actionName, args, variant), variant
	}

	obs, err := m.generate(ctx, actionName, args, variant)
	if err != nil {
		m.logger.Debug("model-backed observation failed, synthesizing",
			slog.String("action", actionName),
			slog.Any("error", err))
		return m.synthesize(actionName, args, variant), variant
	}
	return obs, variant
}

const observePrompt = `Simulate the output of a network diagnostic tool.

Tool: %s
Arguments: %s
Condition: the result must look %s.

%s

Respond with a single flat JSON object of field names to values, as the
tool itself would report. No prose.`

var variantInstructions = [...]string{
	VariantNormal:          "completely healthy, all values in normal ranges",
	VariantMildAnomaly:     "mostly healthy with one slightly degraded value",
	VariantModerateAnomaly: "clearly degraded, with error counters or loss visible",
	VariantSevereAnomaly:   "severely broken, with a fault a diagnostician would flag immediately",
}

func (m *Model) generate(ctx context.Context, actionName string, args kv.Map, variant Variant) (kv.Map, error) {
	extra := ""
	if variant.IsAnomaly() {
		extra = "Include the concrete symptom in the fields, not in commentary."
	}
	prompt := fmt.Sprintf(observePrompt, actionName, args.FormatCompact(), variantInstructions[variant], extra)

	resp, err := m.client.Chat(ctx, []providers.Message{
		{Role: "user", Content: prompt},
	}, providers.ChatOptions{Temperature: 0.6, MaxTokens: 400})
	if err != nil {
		return nil, err
	}

	raw, ok := providers.ExtractJSONObject(resp)
	if !ok {
		return nil, fmt.Errorf("observation response had no JSON object")
	}
	var obs map[string]any
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		return nil, fmt.Errorf("failed to parse observation: %w", err)
	}
	observation := kv.Map(obs)
	if err := observation.Validate(); err != nil {
		return nil, fmt.Errorf("observation failed schema validation: %w", err)
	}
	return observation, nil
}

// synthesize builds a deterministic observation from the tool name and the
// drawn variant. Coarse but structurally faithful to real tool output.
func (m *Model) synthesize(actionName string, args kv.Map, variant Variant) kv.Map {
	obs := kv.Map{}
	for k := range args {
		if v := args.String(k); v != "" {
			obs[k] = v
		}
	}

	switch {
	case strings.Contains(actionName, "error"):
		obs["crc_errors"] = []int{0, 12, 871, 15230}[variant]
		obs["input_errors"] = []int{0, 4, 230, 4812}[variant]
	case strings.Contains(actionName, "traffic") || strings.Contains(actionName, "bandwidth"):
		obs["utilization_percent"] = []float64{23.4, 61.0, 88.7, 99.6}[variant]
	case strings.Contains(actionName, "ping"):
		obs["packet_loss_percent"] = []float64{0, 2, 35, 100}[variant]
		obs["avg_rtt_ms"] = []float64{1.2, 18.5, 240.0, 0}[variant]
	case strings.Contains(actionName, "optical"):
		obs["rx_power_dbm"] = []float64{-5.2, -12.8, -21.5, -40.0}[variant]
	case strings.Contains(actionName, "cpu") || strings.Contains(actionName, "memory"):
		obs["cpu_percent"] = []float64{12, 47, 83, 98}[variant]
		obs["memory_percent"] = []float64{35, 60, 85, 97}[variant]
	case strings.Contains(actionName, "log"):
		obs["entries"] = []string{
			"no recent warnings",
			"minor flap recorded 2h ago",
			"repeated interface down/up events",
			"hardware failure alarm active",
		}[variant]
	default:
		obs["status"] = []string{"up", "up", "degraded", "down"}[variant]
	}

	if variant == VariantSevereAnomaly {
		obs["alarm"] = "critical"
	}
	return obs
}
