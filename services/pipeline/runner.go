// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/driftgate/services/gate"
	"github.com/AleutianAI/driftgate/services/registry"
	"github.com/AleutianAI/driftgate/services/training"
)

// Source extracts one raw batch. Implementations include the synthetic
// generator and LoadCSV.
type Source func(ctx context.Context) (gate.Batch, error)

// RunnerConfig configures one pipeline instance.
type RunnerConfig struct {
	// ModelName is the registry name trained versions are filed under.
	ModelName string

	// WorkDir receives the profile report and the model artifact.
	WorkDir string

	// LabelColumn is the training target. Defaults to "Result".
	LabelColumn string

	// Profile overrides gate profile detection when non-nil.
	Profile *gate.Profile

	// Trainer tunes the reference trainer.
	Trainer training.Config
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.ModelName == "" {
		c.ModelName = "insurance_model"
	}
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.LabelColumn == "" {
		c.LabelColumn = "Result"
	}
	return c
}

// RunSummary reports what one pipeline run produced.
type RunSummary struct {
	RunID      string
	Version    int
	Metrics    registry.MetricSet
	ObjectKey  string
	ReportPath string
	Artifact   string
	RowsIn     int
	RowsKept   int
}

// Runner drives one full batch run: extract, quality-gate, transform,
// profile and store in parallel, train, register to Staging.
//
// # Thread Safety
//
// A Runner is safe to reuse across sequential runs. Concurrent Run calls
// on the same Runner are not supported; schedule runs one at a time.
type Runner struct {
	cfg   RunnerConfig
	store ObjectStore
	reg   registry.Registry
	log   *slog.Logger
}

// NewRunner wires a runner to its object store and registry.
func NewRunner(cfg RunnerConfig, store ObjectStore, reg registry.Registry) *Runner {
	return &Runner{
		cfg:   cfg.withDefaults(),
		store: store,
		reg:   reg,
		log:   slog.Default().With("component", "pipeline"),
	}
}

// Run executes one pipeline pass. A failed quality gate halts the run
// before any transformation happens; the returned error carries the
// *gate.QualityError for callers that want the individual failures.
func (r *Runner) Run(ctx context.Context, extract Source) (RunSummary, error) {
	start := time.Now()

	batch, err := extract(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("pipeline: extract: %w", err)
	}
	r.log.Info("extraction complete", "rows", len(batch.Records), "columns", len(batch.Columns))

	profile := gate.DetectProfile(batch)
	if r.cfg.Profile != nil {
		profile = *r.cfg.Profile
	}
	verdict := gate.Evaluate(batch, profile)
	if err := verdict.Err(); err != nil {
		r.log.Error("quality gate failed, halting run", "profile", profile.Name, "error", err)
		return RunSummary{}, fmt.Errorf("pipeline: quality gate: %w", err)
	}
	r.log.Info("quality gate passed", "profile", profile.Name, "warnings", len(verdict.Warnings))

	clean := Transform(batch)
	r.log.Info("transformation complete",
		"rows_in", len(batch.Records), "rows_kept", len(clean.Records))

	ts := time.Now()
	summary := RunSummary{
		ObjectKey:  ProcessedKey(ts),
		ReportPath: filepath.Join(r.cfg.WorkDir, "profile_"+ts.UTC().Format("20060102T150405")+".html"),
		RowsIn:     len(batch.Records),
		RowsKept:   len(clean.Records),
	}

	// Profiling and object storage are independent of each other; run them
	// in parallel and fail the run if either fails.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := WriteProfile(clean, r.cfg.ModelName+" processed data", summary.ReportPath); err != nil {
			return err
		}
		r.log.Info("profile report written", "path", summary.ReportPath)
		return nil
	})
	g.Go(func() error {
		data, err := MarshalCSV(clean)
		if err != nil {
			return err
		}
		if err := r.store.Put(gctx, summary.ObjectKey, data); err != nil {
			return err
		}
		r.log.Info("processed batch stored", "key", summary.ObjectKey, "bytes", len(data))
		return nil
	})
	if err := g.Wait(); err != nil {
		return RunSummary{}, fmt.Errorf("pipeline: persist stage: %w", err)
	}

	examples := examplesFromBatch(clean, r.cfg.LabelColumn)
	result, err := training.NewTrainer(r.cfg.Trainer).Train(examples)
	if err != nil {
		return RunSummary{}, fmt.Errorf("pipeline: train: %w", err)
	}
	summary.RunID = result.RunID
	summary.Metrics = result.Metrics

	summary.Artifact = filepath.Join(r.cfg.WorkDir, "model_"+result.RunID+".json")
	if err := result.Model.SaveArtifact(summary.Artifact); err != nil {
		return RunSummary{}, fmt.Errorf("pipeline: save artifact: %w", err)
	}

	registered, err := r.reg.Register(ctx, registry.ModelVersion{
		Name:     r.cfg.ModelName,
		RunID:    result.RunID,
		Artifact: summary.Artifact,
	}, result.Metrics)
	if err != nil {
		return RunSummary{}, fmt.Errorf("pipeline: register model: %w", err)
	}
	summary.Version = registered.Version

	r.log.Info("pipeline run complete",
		"model", r.cfg.ModelName,
		"version", summary.Version,
		"run_id", summary.RunID,
		"accuracy", summary.Metrics["accuracy"],
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return summary, nil
}

// examplesFromBatch turns cleaned records into training examples. Numeric
// cells map through directly; the two categorical survivors get fixed
// encodings. Rows without a usable label are skipped.
func examplesFromBatch(batch gate.Batch, label string) []training.Example {
	examples := make([]training.Example, 0, len(batch.Records))
	for _, rec := range batch.Records {
		y, ok := rec[label].Float()
		if !ok {
			continue
		}
		features := make(map[string]float64, len(batch.Columns)-1)
		for _, col := range batch.Columns {
			if col == label {
				continue
			}
			if f, ok := encodeFeature(col, rec[col]); ok {
				features[col] = f
			}
		}
		examples = append(examples, training.Example{Features: features, Label: int(y)})
	}
	return examples
}

func encodeFeature(col string, v gate.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	if v.Kind != gate.KindText {
		return 0, false
	}
	switch col {
	case "Gender":
		if v.Text == "Male" {
			return 1, true
		}
		return 0, true
	case "PastAccident":
		switch v.Text {
		case "Yes":
			return 1, true
		case "No":
			return 0, true
		default:
			return -1, true
		}
	}
	return 0, false
}
