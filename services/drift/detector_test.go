// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package drift

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *Store {
	return NewStore(ReferenceStatistics{
		"AnnualPremium": {Mean: 1500, StdDev: 500, Min: 0, Max: 5000},
		"Age":           {Mean: 45, StdDev: 15, Min: 18, Max: 100},
		"Constant":      {Mean: 7, StdDev: 0, Min: 7, Max: 7},
	})
}

func TestCheckValue(t *testing.T) {
	det := NewDetector(testStore(), Config{})

	tests := []struct {
		name      string
		feature   string
		value     float64
		wantDrift bool
		wantRange bool
	}{
		{
			name:      "value at the mean is never drift",
			feature:   "AnnualPremium",
			value:     1500,
			wantDrift: false,
			wantRange: true,
		},
		{
			name:      "high z-score outside range",
			feature:   "AnnualPremium",
			value:     9000,
			wantDrift: true,
			wantRange: false,
		},
		{
			name:    "out of range but low z-score still drifts",
			feature: "Age",
			// z = |10-45|/15 = 2.33 < 3, but below the observed min of 18.
			value:     10,
			wantDrift: true,
			wantRange: false,
		},
		{
			name:      "in range within threshold",
			feature:   "Age",
			value:     60,
			wantDrift: false,
			wantRange: true,
		},
		{
			name:      "zero stddev pins z to zero",
			feature:   "Constant",
			value:     7,
			wantDrift: false,
			wantRange: true,
		},
		{
			name:      "zero stddev out of range",
			feature:   "Constant",
			value:     8,
			wantDrift: true,
			wantRange: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := det.CheckValue(tc.feature, tc.value)
			assert.Equal(t, tc.wantDrift, v.IsDrift)
			assert.Equal(t, tc.wantRange, v.InRange)
			assert.Equal(t, tc.feature, v.Feature)
		})
	}
}

func TestCheckValueMeanNeverDrifts(t *testing.T) {
	det := NewDetector(testStore(), Config{})

	for feature, fs := range testStore().Snapshot() {
		v := det.CheckValue(feature, fs.Mean)
		assert.False(t, v.IsDrift, "feature %s at its mean flagged as drift", feature)
		assert.Zero(t, v.ZScore)
	}
}

func TestCheckValueUnknownFeature(t *testing.T) {
	det := NewDetector(testStore(), Config{})

	for _, value := range []float64{-1e9, 0, 42, 1e9} {
		v := det.CheckValue("NeverSeen", value)
		assert.False(t, v.IsDrift, "unknown feature must never block, value=%v", value)
	}
}

func TestDriftRatio(t *testing.T) {
	det := NewDetector(testStore(), Config{WindowSize: 4})

	t.Run("empty input is zero, not an error", func(t *testing.T) {
		assert.Equal(t, 0.0, det.DriftRatio("Age", nil))
		assert.Equal(t, 0.0, det.DriftRatio("Age", []float64{}))
	})

	t.Run("sliding window drops oldest values first", func(t *testing.T) {
		// Two drifted values sit outside the tail window of 4; only the
		// final drifted value counts.
		values := []float64{500, 500, 45, 45, 45, 500}
		assert.Equal(t, 0.25, det.DriftRatio("Age", values))
	})

	t.Run("all drifted", func(t *testing.T) {
		assert.Equal(t, 1.0, det.DriftRatio("Age", []float64{500, 500}))
	})
}

// TestDriftRatioFalsePositiveRate draws from the reference distribution
// itself and checks that the flagged rate matches the three-sigma theory
// (~0.27% for a normal distribution).
func TestDriftRatioFalsePositiveRate(t *testing.T) {
	const n = 1000

	store := NewStore(ReferenceStatistics{
		// Wide min/max so only the z-score condition can fire.
		"Gaussian": {Mean: 100, StdDev: 10, Min: -1e9, Max: 1e9},
	})
	det := NewDetector(store, Config{WindowSize: n})

	rng := rand.New(rand.NewSource(42))
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 10*rng.NormFloat64()
	}

	ratio := det.DriftRatio("Gaussian", values)
	require.GreaterOrEqual(t, ratio, 0.0)
	// 0.27% expected; allow generous sampling tolerance for n=1000.
	assert.InDelta(t, 0.0027, ratio, 0.006)
}
