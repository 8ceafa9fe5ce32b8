// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package worldmodel plays the action-executor collaborator for synthetic
// trace generation: every selected action is answered with a plausible
// observation whose anomaly level is drawn from a configured severity
// profile.
package worldmodel

import "fmt"

// Variant is the anomaly level of one synthesized observation. The set is
// closed; there is no free-form severity text anywhere in the model.
type Variant int

const (
	VariantNormal Variant = iota
	VariantMildAnomaly
	VariantModerateAnomaly
	VariantSevereAnomaly
)

var variantNames = [...]string{
	VariantNormal:          "normal",
	VariantMildAnomaly:     "mild_anomaly",
	VariantModerateAnomaly: "moderate_anomaly",
	VariantSevereAnomaly:   "severe_anomaly",
}

func (v Variant) String() string {
	if v < VariantNormal || v > VariantSevereAnomaly {
		return fmt.Sprintf("variant(%d)", int(v))
	}
	return variantNames[v]
}

// IsAnomaly reports whether v is any anomaly level.
func (v Variant) IsAnomaly() bool { return v != VariantNormal }

// Profile sets how anomalous a whole run should be.
type Profile string

const (
	ProfileLow    Profile = "low"
	ProfileMedium Profile = "medium"
	ProfileHigh   Profile = "high"
)

// variantWeights maps each profile to sampling weights indexed by Variant.
var variantWeights = map[Profile][4]float64{
	ProfileLow:    {0.7, 0.2, 0.1, 0.0},
	ProfileMedium: {0.4, 0.3, 0.2, 0.1},
	ProfileHigh:   {0.25, 0.25, 0.25, 0.25},
}

// ParseProfile maps free text to a Profile, defaulting to medium.
func ParseProfile(s string) Profile {
	switch Profile(s) {
	case ProfileLow:
		return ProfileLow
	case ProfileHigh:
		return ProfileHigh
	default:
		return ProfileMedium
	}
}
