// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package drift implements out-of-distribution detection for model inputs.
//
// The package has three parts:
//
//   - ReferenceStatistics: an immutable per-feature baseline (mean, standard
//     deviation, observed min/max) computed from training data.
//   - Detector: scores individual feature values and sliding windows of
//     values against the baseline.
//   - Guard: the serving-time wrapper that annotates an inference request
//     with per-feature drift flags and feeds the observability sink.
//
// # Thread Safety
//
// The Detector and Guard are stateless over their inputs. The baseline is
// held in a Store and replaced wholesale via an atomic pointer swap, so
// concurrent readers always observe a fully-formed snapshot and no locking
// is required on the hot path.
package drift

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/AleutianAI/driftgate/pkg/validation"
)

// =============================================================================
// Reference Statistics
// =============================================================================

// FeatureStats holds the training-data baseline for a single feature.
//
// Invariants, enforced by Validate:
//   - StdDev >= 0
//   - Min <= Max
type FeatureStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ReferenceStatistics maps feature names to their baseline statistics.
//
// A ReferenceStatistics value is treated as immutable once constructed.
// Retraining produces a new map that replaces the old one wholesale via
// Store.Replace; it is never mutated in place.
type ReferenceStatistics map[string]FeatureStats

// Validate checks every feature's invariants.
//
// Returns an error naming the first offending feature, or nil if the
// baseline is well-formed.
func (r ReferenceStatistics) Validate() error {
	for name, fs := range r {
		if err := validation.ValidateFeatureName(name); err != nil {
			return err
		}
		if fs.StdDev < 0 {
			return fmt.Errorf("feature %q: negative stddev %v", name, fs.StdDev)
		}
		if fs.Min > fs.Max {
			return fmt.Errorf("feature %q: min %v exceeds max %v", name, fs.Min, fs.Max)
		}
	}
	return nil
}

// DefaultReferenceStatistics returns the built-in baseline for the insurance
// schema. Used when no statistics artifact is available yet, matching the
// values the training pipeline produces on the reference dataset.
func DefaultReferenceStatistics() ReferenceStatistics {
	return ReferenceStatistics{
		"AnnualPremium": {Mean: 1500, StdDev: 500, Min: 0, Max: 5000},
		"Age":           {Mean: 45, StdDev: 15, Min: 18, Max: 100},
		"RegionID":      {Mean: 50, StdDev: 20, Min: 1, Max: 100},
	}
}

// LoadReferenceStatistics reads a statistics artifact from disk.
//
// The artifact is a JSON object mapping feature name to
// {"mean","stddev","min","max"}. The loaded baseline is validated before
// being returned; a malformed artifact never replaces a good snapshot.
func LoadReferenceStatistics(path string) (ReferenceStatistics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read statistics artifact: %w", err)
	}

	var stats ReferenceStatistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parse statistics artifact %s: %w", path, err)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statistics artifact %s: %w", path, err)
	}
	return stats, nil
}

// =============================================================================
// Store
// =============================================================================

// Store holds the current ReferenceStatistics snapshot.
//
// Readers call Snapshot and get an immutable map. Replace swaps the whole
// snapshot atomically, so a reader never observes a torn mix of old and new
// baseline values.
type Store struct {
	current atomic.Pointer[ReferenceStatistics]
}

// NewStore creates a Store seeded with the given baseline.
//
// The baseline must already be validated; NewStore does not re-check it.
func NewStore(stats ReferenceStatistics) *Store {
	s := &Store{}
	s.current.Store(&stats)
	return s
}

// Snapshot returns the current baseline.
//
// The returned map must not be mutated.
func (s *Store) Snapshot() ReferenceStatistics {
	return *s.current.Load()
}

// Replace swaps in a new baseline after validating it.
//
// On validation failure the previous snapshot stays in place and the error
// is returned to the caller.
func (s *Store) Replace(stats ReferenceStatistics) error {
	if err := stats.Validate(); err != nil {
		return err
	}
	s.current.Store(&stats)
	return nil
}
