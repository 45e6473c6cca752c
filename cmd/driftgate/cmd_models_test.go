// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/driftgate/cmd/driftgate/config"
	"github.com/AleutianAI/driftgate/pkg/logging"
	"github.com/AleutianAI/driftgate/services/registry"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logging.Level
	}{
		{"debug", logging.LevelDebug},
		{"info", logging.LevelInfo},
		{"warn", logging.LevelWarn},
		{"warning", logging.LevelWarn},
		{"error", logging.LevelError},
		{"ERROR", logging.LevelError},
		{"", logging.LevelInfo},
		{"verbose", logging.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveModelName(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("config default", func(t *testing.T) {
		name, err := resolveModelName(cfg)
		if err != nil {
			t.Fatalf("resolveModelName() error = %v", err)
		}
		if name != "insurance_model" {
			t.Errorf("name = %q, want insurance_model", name)
		}
	})

	t.Run("flag override normalized", func(t *testing.T) {
		modelName = "  Churn_Model "
		defer func() { modelName = "" }()

		name, err := resolveModelName(cfg)
		if err != nil {
			t.Fatalf("resolveModelName() error = %v", err)
		}
		if name != "churn_model" {
			t.Errorf("name = %q, want churn_model", name)
		}
	})

	t.Run("invalid name rejected", func(t *testing.T) {
		modelName = "bad name'; --"
		defer func() { modelName = "" }()

		if _, err := resolveModelName(cfg); err == nil {
			t.Error("resolveModelName() should reject injection-shaped names")
		}
	})
}

func TestOpenObjectStore_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "s3"

	if _, err := openObjectStore(context.Background(), cfg); err == nil {
		t.Error("openObjectStore() should fail for an unknown backend")
	}
}

func TestOpenObjectStore_GCSRequiresBucket(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "gcs"
	cfg.Storage.Bucket = ""

	if _, err := openObjectStore(context.Background(), cfg); err == nil {
		t.Error("openObjectStore() should fail when gcs has no bucket configured")
	}
}

// setupCLI points the global config at temp paths and seeds the
// registry with two staged versions so compare has work to do.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	config.Global = config.DefaultConfig()
	config.Global.Registry.Path = filepath.Join(dir, "driftgate.db")
	config.Global.Pipeline.WorkDir = dir
	config.Global.Storage.LocalRoot = filepath.Join(dir, "store")
	logger = logging.New(logging.Config{Quiet: true})
	t.Cleanup(func() { logger.Close() })

	reg, err := registry.OpenSQLite(config.Global.Registry.Path)
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	defer reg.Close()

	ctx := context.Background()
	v1, err := reg.Register(ctx, registry.ModelVersion{
		Name: "insurance_model", RunID: "run-baseline",
	}, registry.MetricSet{"accuracy": 0.80, "f1_score": 0.75})
	if err != nil {
		t.Fatalf("registering baseline: %v", err)
	}
	if err := reg.Promote(ctx, "insurance_model", v1.Version, registry.StageProduction); err != nil {
		t.Fatalf("promoting baseline: %v", err)
	}
	if _, err := reg.Register(ctx, registry.ModelVersion{
		Name: "insurance_model", RunID: "run-candidate",
	}, registry.MetricSet{"accuracy": 0.85, "f1_score": 0.78}); err != nil {
		t.Fatalf("registering candidate: %v", err)
	}
	return dir
}

func TestModelsCompare_WritesReport(t *testing.T) {
	dir := setupCLI(t)
	outputPath = filepath.Join(dir, "report.md")
	defer func() { outputPath = "" }()

	if err := runModelsCompare(modelsCompareCmd, nil); err != nil {
		t.Fatalf("runModelsCompare() error = %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	report := string(data)
	if !strings.Contains(report, "# Model Performance Comparison") {
		t.Error("report missing title")
	}
	if !strings.Contains(report, "**APPROVE**") {
		t.Errorf("report should approve the improved candidate:\n%s", report)
	}
}

func TestModelsCompare_RejectExitsNonZero(t *testing.T) {
	dir := setupCLI(t)

	// Register a degraded candidate on top
	reg, err := registry.OpenSQLite(config.Global.Registry.Path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(context.Background(), registry.ModelVersion{
		Name: "insurance_model", RunID: "run-degraded",
	}, registry.MetricSet{"accuracy": 0.60, "f1_score": 0.50}); err != nil {
		t.Fatal(err)
	}
	reg.Close()

	outputPath = filepath.Join(dir, "report.md")
	defer func() { outputPath = "" }()

	if err := runModelsCompare(modelsCompareCmd, nil); err == nil {
		t.Error("runModelsCompare() should return an error for a rejected candidate")
	}
}

func TestModelsPromoteAndBest(t *testing.T) {
	setupCLI(t)

	stageName = "Production"
	if err := runModelsPromote(modelsPromoteCmd, []string{"2"}); err != nil {
		t.Fatalf("runModelsPromote() error = %v", err)
	}

	reg, err := registry.OpenSQLite(config.Global.Registry.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	mv, err := reg.LatestVersion(context.Background(), "insurance_model", registry.StageProduction)
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if mv.Version != 2 {
		t.Errorf("Production version = %d, want 2", mv.Version)
	}

	// v1 must have been archived to keep a single Production version
	versions, err := reg.ListVersions(context.Background(), "insurance_model")
	if err != nil {
		t.Fatal(err)
	}
	if versions[0].Stage != registry.StageArchived {
		t.Errorf("v1 stage = %s, want Archived", versions[0].Stage)
	}

	if err := runModelsBest(modelsBestCmd, nil); err != nil {
		t.Errorf("runModelsBest() error = %v", err)
	}
}

func TestModelsPromote_InvalidStage(t *testing.T) {
	setupCLI(t)

	stageName = "Shipped"
	defer func() { stageName = "Production" }()

	if err := runModelsPromote(modelsPromoteCmd, []string{"1"}); err == nil {
		t.Error("runModelsPromote() should reject an unknown stage")
	}
}
