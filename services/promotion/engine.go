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
	"fmt"
	"log/slog"
	"math"

	"github.com/AleutianAI/driftgate/services/registry"
)

const (
	// DefaultTolerance absorbs floating-point noise when comparing metric
	// values.
	DefaultTolerance = 1e-6
)

// DefaultMetricNames are the metrics compared when the caller does not
// name its own. Higher is better for all of them.
func DefaultMetricNames() []string {
	return []string{"accuracy", "precision", "recall", "f1_score", "roc_auc"}
}

// Config tunes the Engine. Zero fields fall back to package defaults.
type Config struct {
	// Tolerance below which a delta counts as no change. Default: 1e-6
	Tolerance float64

	// MetricNames to compare. Default: DefaultMetricNames()
	MetricNames []string
}

// Engine renders promote/reject verdicts from evaluation metrics.
//
// Compare is pure and safe for concurrent use; the registry-touching
// helpers (ResolveBaseline, CompareLatest) do the I/O before handing off to
// Compare.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if len(cfg.MetricNames) == 0 {
		cfg.MetricNames = DefaultMetricNames()
	}
	return &Engine{cfg: cfg}
}

// Compare renders the verdict for candidate vs. baseline.
//
// Per metric: delta = candidate - baseline; within tolerance → No Change;
// positive → Improved; negative → Degraded. A metric absent from either
// set defaults to 0 and the row is flagged rather than failing the whole
// comparison.
//
// Overall verdict precedence, applied in this exact order:
//
//  1. Same version or same run ID → SameModel, overriding every
//     metric-derived verdict.
//  2. Any Degraded → Reject.
//  3. No Degraded and at least one Improved → Approve.
//  4. All No Change → Equivalent.
//
// Compare has no side effects; transitioning a stage is
// registry.Registry.Promote, invoked by the caller only after an Approve.
func (e *Engine) Compare(baseline, candidate Model) ComparisonResult {
	result := ComparisonResult{
		Baseline:  baseline,
		Candidate: candidate,
	}

	// Zero values mean "unidentified" and never match.
	result.SameModel = (baseline.Version != 0 && baseline.Version == candidate.Version) ||
		(baseline.RunID != "" && baseline.RunID == candidate.RunID)

	anyDegraded := false
	anyImproved := false

	for _, name := range e.cfg.MetricNames {
		baseVal, baseOK := baseline.Metrics[name]
		candVal, candOK := candidate.Metrics[name]

		row := MetricRow{
			Metric:           name,
			Baseline:         baseVal,
			Candidate:        candVal,
			Delta:            candVal - baseVal,
			BaselineMissing:  !baseOK,
			CandidateMissing: !candOK,
		}

		switch {
		case math.Abs(row.Delta) < e.cfg.Tolerance:
			row.Verdict = VerdictNoChange
		case row.Delta > 0:
			row.Verdict = VerdictImproved
			anyImproved = true
		default:
			row.Verdict = VerdictDegraded
			anyDegraded = true
		}

		result.Rows = append(result.Rows, row)
	}

	switch {
	case result.SameModel:
		result.Overall = OverallSameModel
	case anyDegraded:
		result.Overall = OverallReject
	case anyImproved:
		result.Overall = OverallApprove
	default:
		result.Overall = OverallEquivalent
	}

	return result
}

// ResolveBaseline picks the model the candidate is judged against.
//
// Policy: the newest Production version; if none exists, the oldest
// version currently in Staging (the second return is true so reporting can
// warn the operator); if no model exists in either stage,
// ErrNoBaselineModel.
func (e *Engine) ResolveBaseline(ctx context.Context, reg registry.Registry, name string) (Model, bool, error) {
	prod, err := reg.LatestVersion(ctx, name, registry.StageProduction)
	switch {
	case err == nil:
		m, err := e.withMetrics(ctx, reg, prod)
		return m, false, err
	case !errors.Is(err, registry.ErrNotFound):
		return Model{}, false, fmt.Errorf("resolve production baseline: %w", err)
	}

	slog.Warn("no production model, falling back to oldest staging baseline", "model", name)

	versions, err := reg.ListVersions(ctx, name)
	if err != nil {
		return Model{}, false, fmt.Errorf("list versions: %w", err)
	}
	for _, mv := range versions { // oldest first
		if mv.Stage == registry.StageStaging {
			m, err := e.withMetrics(ctx, reg, mv)
			return m, true, err
		}
	}

	return Model{}, false, ErrNoBaselineModel
}

// CompareLatest resolves the baseline and compares it against the newest
// Staging version of the named model.
func (e *Engine) CompareLatest(ctx context.Context, reg registry.Registry, name string) (ComparisonResult, error) {
	baseline, baselineIsStaging, err := e.ResolveBaseline(ctx, reg, name)
	if err != nil {
		return ComparisonResult{}, err
	}

	staged, err := reg.LatestVersion(ctx, name, registry.StageStaging)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return ComparisonResult{}, fmt.Errorf("no staging candidate for %s: %w", name, err)
		}
		return ComparisonResult{}, fmt.Errorf("resolve candidate: %w", err)
	}
	candidate, err := e.withMetrics(ctx, reg, staged)
	if err != nil {
		return ComparisonResult{}, err
	}

	result := e.Compare(baseline, candidate)
	result.BaselineIsStaging = baselineIsStaging

	slog.Info("model comparison complete",
		"model", name,
		"baseline_version", baseline.Version,
		"candidate_version", candidate.Version,
		"verdict", result.Overall)
	return result, nil
}

func (e *Engine) withMetrics(ctx context.Context, reg registry.Registry, mv registry.ModelVersion) (Model, error) {
	metrics, err := reg.GetMetrics(ctx, mv.Name, mv.Version)
	if err != nil {
		return Model{}, fmt.Errorf("metrics for %s v%d: %w", mv.Name, mv.Version, err)
	}
	return Model{ModelVersion: mv, Metrics: metrics}, nil
}
