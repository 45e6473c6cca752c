// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package drift

import (
	"log/slog"
	"math"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultZThreshold is the z-score above which a value is flagged.
	// 3.0 corresponds to the classic three-sigma rule.
	DefaultZThreshold = 3.0

	// DefaultWindowSize is the sliding window length for DriftRatio.
	DefaultWindowSize = 100
)

// Config tunes the Detector. The zero value is usable: zero or negative
// fields fall back to the package defaults.
type Config struct {
	// ZThreshold is the z-score above which a value counts as drifted.
	// Default: 3.0
	ZThreshold float64

	// WindowSize is the number of most-recent values DriftRatio considers.
	// Default: 100
	WindowSize int
}

func (c Config) withDefaults() Config {
	if c.ZThreshold <= 0 {
		c.ZThreshold = DefaultZThreshold
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	return c
}

// =============================================================================
// Verdict
// =============================================================================

// Verdict is the result of scoring a single feature value against the
// baseline. Verdicts are data, not errors: a drifted value is returned to
// the caller to act on, never raised.
type Verdict struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	ZScore  float64 `json:"z_score"`
	InRange bool    `json:"in_range"`
	IsDrift bool    `json:"is_drift"`
}

// =============================================================================
// Detector
// =============================================================================

// Detector scores feature values against a reference baseline.
//
// CheckValue and DriftRatio are pure over their inputs plus the Store
// snapshot and are safe for concurrent use.
type Detector struct {
	store *Store
	cfg   Config
}

// NewDetector creates a Detector backed by the given statistics store.
func NewDetector(store *Store, cfg Config) *Detector {
	return &Detector{store: store, cfg: cfg.withDefaults()}
}

// CheckValue scores one feature value.
//
// The z-score is |value-mean|/stddev when stddev > 0, else 0. A value is
// drifted when the z-score exceeds the threshold OR the value falls outside
// the observed [min, max] range. The OR is deliberate: a value can sit
// inside the observed range yet many sigmas from the mean on a skewed
// distribution, or outside the range with a low z-score when the stddev is
// small. Changing this to AND would materially change the flagged rate.
//
// A feature with no baseline entry is never flagged; there is nothing to
// compare against, so the only output is a logged warning.
func (d *Detector) CheckValue(feature string, value float64) Verdict {
	stats, ok := d.store.Snapshot()[feature]
	if !ok {
		slog.Warn("no reference statistics for feature", "feature", feature)
		return Verdict{Feature: feature, Value: value, InRange: true}
	}

	var z float64
	if stats.StdDev > 0 {
		z = math.Abs(value-stats.Mean) / stats.StdDev
	}
	inRange := stats.Min <= value && value <= stats.Max
	isDrift := z > d.cfg.ZThreshold || !inRange

	if isDrift {
		slog.Warn("drift detected",
			"feature", feature,
			"value", value,
			"z_score", z,
			"min", stats.Min,
			"max", stats.Max)
	}

	return Verdict{
		Feature: feature,
		Value:   value,
		ZScore:  z,
		InRange: inRange,
		IsDrift: isDrift,
	}
}

// DriftRatio returns the fraction of drifted values in the most recent
// window of the given sequence.
//
// Only the tail WindowSize values are scored; older values are dropped
// first, making this a sliding window rather than a global average. An
// empty input yields 0.0 — absence of data is not evidence of drift.
func (d *Detector) DriftRatio(feature string, values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	if len(values) > d.cfg.WindowSize {
		values = values[len(values)-d.cfg.WindowSize:]
	}

	drifted := 0
	for _, v := range values {
		if d.CheckValue(feature, v).IsDrift {
			drifted++
		}
	}
	return float64(drifted) / float64(len(values))
}
