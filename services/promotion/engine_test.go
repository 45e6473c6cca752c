// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package promotion

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/driftgate/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func model(version int, runID string, metrics registry.MetricSet) Model {
	return Model{
		ModelVersion: registry.ModelVersion{
			Name:    "insurance_model",
			Version: version,
			RunID:   runID,
			Stage:   registry.StageStaging,
		},
		Metrics: metrics,
	}
}

func TestCompareVerdicts(t *testing.T) {
	engine := NewEngine(Config{MetricNames: []string{"accuracy", "f1_score"}})

	tests := []struct {
		name      string
		baseline  Model
		candidate Model
		want      OverallVerdict
	}{
		{
			name:      "all improved yields approve",
			baseline:  model(1, "run-a", registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75}),
			candidate: model(2, "run-b", registry.MetricSet{"accuracy": 0.85, "f1_score": 0.78}),
			want:      OverallApprove,
		},
		{
			name:      "one degraded rejects even when others improved",
			baseline:  model(1, "run-a", registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75}),
			candidate: model(2, "run-b", registry.MetricSet{"accuracy": 0.90, "f1_score": 0.70}),
			want:      OverallReject,
		},
		{
			name:      "all within tolerance yields equivalent",
			baseline:  model(1, "run-a", registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75}),
			candidate: model(2, "run-b", registry.MetricSet{"accuracy": 0.80000000005, "f1_score": 0.75}),
			want:      OverallEquivalent,
		},
		{
			name:      "same version overrides metrics",
			baseline:  model(3, "run-a", registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75}),
			candidate: model(3, "run-b", registry.MetricSet{"accuracy": 0.99, "f1_score": 0.99}),
			want:      OverallSameModel,
		},
		{
			name:      "same run id overrides metrics",
			baseline:  model(1, "run-a", registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75}),
			candidate: model(2, "run-a", registry.MetricSet{"accuracy": 0.10, "f1_score": 0.10}),
			want:      OverallSameModel,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := engine.Compare(tc.baseline, tc.candidate)
			assert.Equal(t, tc.want, result.Overall)
		})
	}
}

func TestCompareSameModelIsSymmetric(t *testing.T) {
	engine := NewEngine(Config{})
	a := model(3, "run-x", registry.MetricSet{"accuracy": 0.8})
	b := model(3, "run-y", registry.MetricSet{"accuracy": 0.9})

	assert.Equal(t, OverallSameModel, engine.Compare(a, b).Overall)
	assert.Equal(t, OverallSameModel, engine.Compare(b, a).Overall)
}

func TestComparePerMetricRows(t *testing.T) {
	engine := NewEngine(Config{MetricNames: []string{"accuracy", "f1_score"}})

	result := engine.Compare(
		model(1, "run-a", registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75}),
		model(2, "run-b", registry.MetricSet{"accuracy": 0.85, "f1_score": 0.78}),
	)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "accuracy", result.Rows[0].Metric)
	assert.Equal(t, VerdictImproved, result.Rows[0].Verdict)
	assert.InDelta(t, 0.05, result.Rows[0].Delta, 1e-9)
	assert.Equal(t, VerdictImproved, result.Rows[1].Verdict)
	assert.Equal(t, OverallApprove, result.Overall)
	assert.False(t, result.SameModel)
}

func TestCompareMissingMetricFlagged(t *testing.T) {
	engine := NewEngine(Config{MetricNames: []string{"accuracy", "roc_auc"}})

	result := engine.Compare(
		model(1, "run-a", registry.MetricSet{"accuracy": 0.80, "roc_auc": 0.9}),
		model(2, "run-b", registry.MetricSet{"accuracy": 0.85}),
	)

	// roc_auc absent from the candidate defaults to 0: a Degraded row,
	// but visibly flagged so the 0 is not mistaken for a measurement.
	require.Len(t, result.Rows, 2)
	rocRow := result.Rows[1]
	assert.Equal(t, "roc_auc", rocRow.Metric)
	assert.True(t, rocRow.CandidateMissing)
	assert.False(t, rocRow.BaselineMissing)
	assert.Equal(t, VerdictDegraded, rocRow.Verdict)
	assert.Equal(t, OverallReject, result.Overall)
}

func TestCompareDefaultMetricNames(t *testing.T) {
	engine := NewEngine(Config{})
	result := engine.Compare(model(1, "a", nil), model(2, "b", nil))
	assert.Len(t, result.Rows, len(DefaultMetricNames()))
	assert.Equal(t, OverallEquivalent, result.Overall)
}

func openSeededRegistry(t *testing.T) registry.Registry {
	t.Helper()
	reg, err := registry.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestResolveBaseline(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(Config{})

	t.Run("production preferred", func(t *testing.T) {
		reg := openSeededRegistry(t)
		v1, err := reg.Register(ctx, registry.ModelVersion{Name: "m", RunID: "r1"}, registry.MetricSet{"accuracy": 0.8})
		require.NoError(t, err)
		_, err = reg.Register(ctx, registry.ModelVersion{Name: "m", RunID: "r2"}, registry.MetricSet{"accuracy": 0.85})
		require.NoError(t, err)
		require.NoError(t, reg.Promote(ctx, "m", v1.Version, registry.StageProduction))

		baseline, staging, err := engine.ResolveBaseline(ctx, reg, "m")
		require.NoError(t, err)
		assert.False(t, staging)
		assert.Equal(t, v1.Version, baseline.Version)
		assert.Equal(t, 0.8, baseline.Metrics["accuracy"])
	})

	t.Run("falls back to oldest staging", func(t *testing.T) {
		reg := openSeededRegistry(t)
		v1, err := reg.Register(ctx, registry.ModelVersion{Name: "m", RunID: "r1"}, registry.MetricSet{"accuracy": 0.8})
		require.NoError(t, err)
		_, err = reg.Register(ctx, registry.ModelVersion{Name: "m", RunID: "r2"}, registry.MetricSet{"accuracy": 0.85})
		require.NoError(t, err)

		baseline, staging, err := engine.ResolveBaseline(ctx, reg, "m")
		require.NoError(t, err)
		assert.True(t, staging, "caller must be told the baseline is staging")
		assert.Equal(t, v1.Version, baseline.Version, "oldest staging version wins")
	})

	t.Run("no models at all", func(t *testing.T) {
		reg := openSeededRegistry(t)
		_, _, err := engine.ResolveBaseline(ctx, reg, "m")
		assert.True(t, errors.Is(err, ErrNoBaselineModel))
	})
}

func TestCompareLatest(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(Config{MetricNames: []string{"accuracy"}})
	reg := openSeededRegistry(t)

	v1, err := reg.Register(ctx, registry.ModelVersion{Name: "m", RunID: "r1"}, registry.MetricSet{"accuracy": 0.8})
	require.NoError(t, err)
	require.NoError(t, reg.Promote(ctx, "m", v1.Version, registry.StageProduction))
	_, err = reg.Register(ctx, registry.ModelVersion{Name: "m", RunID: "r2"}, registry.MetricSet{"accuracy": 0.9})
	require.NoError(t, err)

	result, err := engine.CompareLatest(ctx, reg, "m")
	require.NoError(t, err)
	assert.Equal(t, OverallApprove, result.Overall)
	assert.False(t, result.BaselineIsStaging)
}
