// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/driftgate/cmd/driftgate/config"
	"github.com/AleutianAI/driftgate/pkg/validation"
	"github.com/AleutianAI/driftgate/services/gate"
	"github.com/AleutianAI/driftgate/services/pipeline"
	"github.com/AleutianAI/driftgate/services/registry"
	"github.com/AleutianAI/driftgate/services/training"
)

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := config.Global
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	name, err := resolveModelName(cfg)
	if err != nil {
		return err
	}

	dir := workDir
	if dir == "" {
		dir = config.ExpandPath(cfg.Pipeline.WorkDir)
	}

	store, err := openObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening object store: %w", err)
	}
	defer store.Close()

	reg, err := registry.OpenSQLite(config.ExpandPath(cfg.Registry.Path))
	if err != nil {
		return fmt.Errorf("opening model registry: %w", err)
	}
	defer reg.Close()

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		ModelName:   name,
		WorkDir:     dir,
		LabelColumn: cfg.Pipeline.LabelColumn,
		Trainer: training.Config{
			Epochs:       cfg.Training.Epochs,
			LearningRate: cfg.Training.LearningRate,
			HoldoutRatio: cfg.Training.HoldoutRatio,
			Seed:         cfg.Training.Seed,
		},
	}, store, reg)

	start := time.Now()
	summary, err := runner.Run(ctx, batchSource(cfg))
	if err != nil {
		return err
	}

	logger.Info("pipeline run complete",
		"model", name,
		"run_id", summary.RunID,
		"version", summary.Version,
		"rows_in", summary.RowsIn,
		"rows_kept", summary.RowsKept,
		"elapsed", time.Since(start).Round(time.Millisecond))

	fmt.Printf("Run %s registered %s v%d (Staging)\n", summary.RunID, name, summary.Version)
	fmt.Printf("  rows:     %d in, %d kept\n", summary.RowsIn, summary.RowsKept)
	fmt.Printf("  accuracy: %.4f\n", summary.Metrics["accuracy"])
	fmt.Printf("  batch:    %s\n", summary.ObjectKey)
	fmt.Printf("  profile:  %s\n", summary.ReportPath)
	fmt.Printf("  artifact: %s\n", summary.Artifact)
	return nil
}

// batchSource picks the extraction source: a CSV file when --input is
// given, otherwise a synthetic batch in the insurance schema.
func batchSource(cfg config.DriftgateConfig) pipeline.Source {
	if inputPath != "" {
		return func(ctx context.Context) (gate.Batch, error) {
			return pipeline.LoadCSV(inputPath, cfg.Pipeline.SampleRows, cfg.Training.Seed)
		}
	}

	rows := rowCount
	if rows == 0 {
		rows = cfg.Pipeline.SyntheticN
	}
	gen := pipeline.NewGenerator(pipeline.GeneratorConfig{
		Rows:         rows,
		MissingRatio: cfg.Pipeline.MissingRatio,
		Seed:         cfg.Training.Seed,
	})
	return func(ctx context.Context) (gate.Batch, error) {
		return gen.Batch(), nil
	}
}

// openObjectStore builds the configured batch store backend.
func openObjectStore(ctx context.Context, cfg config.DriftgateConfig) (pipeline.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		bucket := bucketName
		if bucket == "" {
			bucket = cfg.Storage.Bucket
		}
		if bucket == "" {
			return nil, fmt.Errorf("storage backend is gcs but no bucket is configured")
		}
		return pipeline.NewGCSStore(ctx, bucket, config.ExpandPath(cfg.Storage.CredentialsFile))
	case "local", "":
		return pipeline.NewLocalStore(config.ExpandPath(cfg.Storage.LocalRoot))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// resolveModelName applies the --model override and normalizes the name.
func resolveModelName(cfg config.DriftgateConfig) (string, error) {
	name := modelName
	if name == "" {
		name = cfg.Model.Name
	}
	return validation.SanitizeModelName(name)
}
