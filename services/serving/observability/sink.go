// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import "github.com/AleutianAI/driftgate/services/drift"

// MetricsSink adapts ServingMetrics to the drift guard's sink contract:
// every drifted feature value becomes an out_of_distribution increment.
type MetricsSink struct {
	metrics *ServingMetrics
}

// NewMetricsSink wraps the given metrics instance.
func NewMetricsSink(m *ServingMetrics) *MetricsSink {
	return &MetricsSink{metrics: m}
}

// RecordDrift implements drift.Sink.
func (s *MetricsSink) RecordDrift(feature string, isDrift bool) {
	if isDrift {
		s.metrics.RecordOutOfDistribution(feature)
	}
}

var _ drift.Sink = (*MetricsSink)(nil)

// MultiSink fans one drift observation out to several sinks, so Prometheus
// and the history store both see every event.
type MultiSink []drift.Sink

// RecordDrift implements drift.Sink.
func (s MultiSink) RecordDrift(feature string, isDrift bool) {
	for _, sink := range s {
		sink.RecordDrift(feature, isDrift)
	}
}

var _ drift.Sink = MultiSink(nil)
