// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Test Helper: Create isolated metrics for testing
// ============================================================================

// newTestMetrics creates a ServingMetrics instance with a custom registry.
// This avoids conflicts with the global Prometheus registry and allows
// parallel testing.
func newTestMetrics(t *testing.T) *ServingMetrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRequest("POST", "/v1/predict", 200, 0.01)
	m.RecordRequest("POST", "/v1/predict", 200, 0.02)
	m.RecordRequest("POST", "/v1/predict", 400, 0.001)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.RequestsTotal.WithLabelValues("POST", "/v1/predict", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.RequestsTotal.WithLabelValues("POST", "/v1/predict", "400")))
}

func TestRecordPrediction(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordPrediction("3", true, 0.001)
	m.RecordPrediction("3", true, 0.002)
	m.RecordPrediction("3", false, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.PredictionsTotal.WithLabelValues("3", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.PredictionsTotal.WithLabelValues("3", "error")))
}

func TestOutOfDistributionAndRatio(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordOutOfDistribution("AnnualPremium")
	m.RecordOutOfDistribution("AnnualPremium")
	m.SetDriftRatio("AnnualPremium", 0.25)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.OutOfDistributionTotal.WithLabelValues("AnnualPremium")))
	assert.Equal(t, 0.25, testutil.ToFloat64(
		m.DriftRatio.WithLabelValues("AnnualPremium")))
}

func TestMetricsSink(t *testing.T) {
	m := newTestMetrics(t)
	sink := NewMetricsSink(m)

	sink.RecordDrift("Age", false)
	sink.RecordDrift("Age", true)
	sink.RecordDrift("Age", true)

	// Only drifted observations count.
	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.OutOfDistributionTotal.WithLabelValues("Age")))
}

type countingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSink) RecordDrift(feature string, isDrift bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{}

	MultiSink{a, b}.RecordDrift("Age", true)
	MultiSink{a, b}.RecordDrift("Age", false)

	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestMetricsConcurrentUse(t *testing.T) {
	m := newTestMetrics(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordOutOfDistribution("RegionID")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800.0, testutil.ToFloat64(
		m.OutOfDistributionTotal.WithLabelValues("RegionID")))
}
