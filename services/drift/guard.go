// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package drift

// Sink receives drift observations for monitoring.
//
// Implementations must support concurrent calls from many simultaneous
// serving requests; the serving shell backs this with Prometheus counters,
// which provide atomic increments.
type Sink interface {
	// RecordDrift records one feature check outcome.
	RecordDrift(feature string, isDrift bool)
}

// NopSink discards all observations. Useful in tests and offline tools.
type NopSink struct{}

// RecordDrift discards the observation.
func (NopSink) RecordDrift(feature string, isDrift bool) {}

var _ Sink = NopSink{}

// Annotation is the Guard's verdict for one inference request.
type Annotation struct {
	// Flags maps each monitored feature present in the request to whether
	// it was flagged as drifted.
	Flags map[string]bool

	// AnyDrift is the OR over all flags.
	AnyDrift bool
}

// Guard is the serving-time counterpart of the Detector.
//
// It checks a fixed, configured subset of monitored features on every
// inference request, reports each outcome to the Sink, and returns the
// aggregate flags so the response can declare whether it was served against
// potentially drifted input. Reporting happens synchronously inside
// Annotate, before the prediction response is assembled — it is not an
// out-of-band afterthought.
type Guard struct {
	detector *Detector
	features []string
	sink     Sink
}

// NewGuard creates a Guard monitoring the given features.
//
// A nil sink is replaced with NopSink.
func NewGuard(detector *Detector, features []string, sink Sink) *Guard {
	if sink == nil {
		sink = NopSink{}
	}
	return &Guard{detector: detector, features: features, sink: sink}
}

// Annotate checks the monitored features of one request record.
//
// Features configured for monitoring but absent from the record are
// skipped. The record itself is not modified; prediction runs on the
// caller's original input.
func (g *Guard) Annotate(record map[string]float64) Annotation {
	ann := Annotation{Flags: make(map[string]bool, len(g.features))}
	for _, feature := range g.features {
		value, ok := record[feature]
		if !ok {
			continue
		}
		verdict := g.detector.CheckValue(feature, value)
		ann.Flags[feature] = verdict.IsDrift
		if verdict.IsDrift {
			ann.AnyDrift = true
		}
		g.sink.RecordDrift(feature, verdict.IsDrift)
	}
	return ann
}
