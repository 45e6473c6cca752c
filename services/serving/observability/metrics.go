// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// serving shell.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the prediction
// service. Metrics include:
//   - Request counters and latency histograms (by endpoint)
//   - Prediction counters and latency (by model version)
//   - Out-of-distribution counters and drift-ratio gauges (by feature)
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "driftgate"

// Subsystem for serving metrics
const servingSubsystem = "serving"

// ServingMetrics holds all Prometheus metrics for the prediction service.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring prediction
// traffic and input drift. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type ServingMetrics struct {
	// RequestsTotal counts HTTP requests.
	// Labels: method, endpoint, status (numeric HTTP code)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures HTTP request latency.
	// Labels: endpoint
	RequestDurationSeconds *prometheus.HistogramVec

	// PredictionsTotal counts prediction outcomes.
	// Labels: model_version, status (success, error)
	PredictionsTotal *prometheus.CounterVec

	// PredictionDurationSeconds measures model invocation latency.
	// Labels: model_version
	PredictionDurationSeconds *prometheus.HistogramVec

	// OutOfDistributionTotal counts feature values flagged as drifted.
	// Labels: feature
	OutOfDistributionTotal *prometheus.CounterVec

	// DriftRatio tracks the rolling drift ratio per feature.
	// Labels: feature
	DriftRatio *prometheus.GaugeVec
}

// DefaultMetrics is the singleton instance of ServingMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ServingMetrics

// InitMetrics initializes the default metrics instance against the global
// Prometheus registry. Call once at startup; calling twice panics on
// duplicate registration.
func InitMetrics() *ServingMetrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics builds a ServingMetrics registered against the given
// registerer. Tests pass a fresh prometheus.NewRegistry() to stay isolated
// from the global state.
func NewMetrics(reg prometheus.Registerer) *ServingMetrics {
	factory := promauto.With(reg)
	return &ServingMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by method, endpoint and status",
			},
			[]string{"method", "endpoint", "status"},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"endpoint"},
		),

		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "predictions_total",
				Help:      "Total predictions by model version and status",
			},
			[]string{"model_version", "status"},
		),

		PredictionDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "prediction_duration_seconds",
				Help:      "Model invocation latency in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"model_version"},
		),

		OutOfDistributionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "out_of_distribution_total",
				Help:      "Feature values flagged as drifted, by feature",
			},
			[]string{"feature"},
		),

		DriftRatio: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: servingSubsystem,
				Name:      "drift_ratio",
				Help:      "Rolling ratio of drifted values per feature",
			},
			[]string{"feature"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records one completed HTTP request.
func (m *ServingMetrics) RecordRequest(method, endpoint string, status int, seconds float64) {
	m.RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.RequestDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}

// RecordPrediction records one model invocation.
func (m *ServingMetrics) RecordPrediction(modelVersion string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	m.PredictionsTotal.WithLabelValues(modelVersion, status).Inc()
	m.PredictionDurationSeconds.WithLabelValues(modelVersion).Observe(seconds)
}

// RecordOutOfDistribution counts one drifted feature value.
func (m *ServingMetrics) RecordOutOfDistribution(feature string) {
	m.OutOfDistributionTotal.WithLabelValues(feature).Inc()
}

// SetDriftRatio publishes the rolling drift ratio for a feature.
func (m *ServingMetrics) SetDriftRatio(feature string, ratio float64) {
	m.DriftRatio.WithLabelValues(feature).Set(ratio)
}
