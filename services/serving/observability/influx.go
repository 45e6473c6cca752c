// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/AleutianAI/driftgate/services/drift"
)

// HistorySink persists drift events and prediction latencies to InfluxDB,
// giving dashboards a time series to plot alongside the Prometheus gauges.
type HistorySink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

// NewHistorySink dials InfluxDB from the environment. Defaults target the
// local development stack.
func NewHistorySink() *HistorySink {
	url := os.Getenv("INFLUXDB_URL")
	if url == "" {
		url = "http://localhost:8086"
	}

	token := os.Getenv("INFLUXDB_TOKEN")

	org := os.Getenv("INFLUXDB_ORG")
	if org == "" {
		org = "driftgate"
	}

	bucket := os.Getenv("INFLUXDB_BUCKET")
	if bucket == "" {
		bucket = "model-monitoring"
	}

	client := influxdb2.NewClient(url, token)
	return &HistorySink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		bucket:   bucket,
		org:      org,
	}
}

// RecordDrift implements drift.Sink. Write failures are logged, never
// propagated; losing a history point must not fail a prediction.
func (s *HistorySink) RecordDrift(feature string, isDrift bool) {
	drifted := 0
	if isDrift {
		drifted = 1
	}
	p := influxdb2.NewPointWithMeasurement("feature_drift").
		AddTag("feature", feature).
		AddField("drifted", drifted).
		SetTime(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		slog.Warn("failed to write drift point to InfluxDB", "feature", feature, "error", err)
	}
}

// RecordPrediction stores one prediction latency sample.
func (s *HistorySink) RecordPrediction(modelVersion string, seconds float64) {
	p := influxdb2.NewPointWithMeasurement("predictions").
		AddTag("model_version", modelVersion).
		AddField("latency_seconds", seconds).
		SetTime(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		slog.Warn("failed to write prediction point to InfluxDB", "error", err)
	}
}

// Close flushes and shuts down the client.
func (s *HistorySink) Close() {
	s.client.Close()
}

var _ drift.Sink = (*HistorySink)(nil)
