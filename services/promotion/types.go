// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package promotion decides whether a candidate model may replace the
// currently serving one.
//
// The comparison itself (Engine.Compare) is a pure function over two metric
// sets: no registry, no I/O. Resolving which model serves as the baseline,
// and the act of transitioning a stage, are separate operations against the
// registry collaborator, so the decision logic stays unit-testable in
// isolation.
package promotion

import (
	"github.com/AleutianAI/driftgate/services/registry"
)

// MetricVerdict classifies one metric's delta.
type MetricVerdict string

const (
	// VerdictImproved means the candidate beat the baseline beyond
	// tolerance.
	VerdictImproved MetricVerdict = "Improved"

	// VerdictDegraded means the candidate fell below the baseline beyond
	// tolerance.
	VerdictDegraded MetricVerdict = "Degraded"

	// VerdictNoChange means the delta is within tolerance. Treated as
	// acceptable, not as degradation.
	VerdictNoChange MetricVerdict = "No Change"
)

// OverallVerdict is the engine's recommendation.
type OverallVerdict string

const (
	// OverallApprove: no metric degraded and at least one improved.
	OverallApprove OverallVerdict = "Approve"

	// OverallReject: at least one metric degraded.
	OverallReject OverallVerdict = "Reject"

	// OverallSameModel: baseline and candidate are the same model version
	// or run; promotion makes no sense. Overrides all metric verdicts.
	OverallSameModel OverallVerdict = "SameModel"

	// OverallEquivalent: every metric within tolerance. No promotion
	// required; not an error state.
	OverallEquivalent OverallVerdict = "Equivalent"
)

// Model pairs a registry identity with its evaluation metrics.
type Model struct {
	registry.ModelVersion

	// Metrics are the run's evaluation metrics.
	Metrics registry.MetricSet
}

// MetricRow is one line of the comparison table.
type MetricRow struct {
	Metric    string        `json:"metric"`
	Baseline  float64       `json:"baseline"`
	Candidate float64       `json:"candidate"`
	Delta     float64       `json:"delta"`
	Verdict   MetricVerdict `json:"verdict"`

	// BaselineMissing / CandidateMissing flag rows where a requested
	// metric was absent and defaulted to 0 — such a default can itself
	// look like a large delta, so the row must be distinguishable.
	BaselineMissing  bool `json:"baseline_missing,omitempty"`
	CandidateMissing bool `json:"candidate_missing,omitempty"`
}

// ComparisonResult is the full outcome of one comparison. Produced fresh
// per call; never mutated afterwards.
type ComparisonResult struct {
	Baseline  Model          `json:"baseline"`
	Candidate Model          `json:"candidate"`
	Rows      []MetricRow    `json:"per_metric"`
	Overall   OverallVerdict `json:"overall_verdict"`
	SameModel bool           `json:"same_model"`

	// BaselineIsStaging is set when no Production model existed and the
	// oldest Staging version served as the baseline, so reporting can warn
	// the operator.
	BaselineIsStaging bool `json:"baseline_is_staging,omitempty"`
}
