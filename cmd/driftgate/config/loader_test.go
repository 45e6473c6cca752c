// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Name != "insurance_model" {
		t.Errorf("Model.Name = %q, want insurance_model", cfg.Model.Name)
	}
	if cfg.Registry.Path == "" {
		t.Error("Registry.Path should have a default")
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Storage.Backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.Pipeline.LabelColumn != "Result" {
		t.Errorf("Pipeline.LabelColumn = %q, want Result", cfg.Pipeline.LabelColumn)
	}
	if cfg.Training.Epochs <= 0 {
		t.Error("Training.Epochs should default to a positive value")
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "driftgate.yaml")

	yaml := `
model:
  name: churn_model
registry:
  path: /tmp/test.db
storage:
  backend: gcs
  bucket: my-batches
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Model.Name != "churn_model" {
		t.Errorf("Model.Name = %q, want churn_model", cfg.Model.Name)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.Bucket != "my-batches" {
		t.Errorf("Storage = %+v, want gcs/my-batches", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	// Unset fields keep defaults
	if cfg.Pipeline.LabelColumn != "Result" {
		t.Errorf("Pipeline.LabelColumn = %q, want default Result", cfg.Pipeline.LabelColumn)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFrom() should fail for a missing file")
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("model: [not: closed"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("LoadFrom() should fail for malformed YAML")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	got := ExpandPath("~/.driftgate/driftgate.db")
	want := filepath.Join(home, ".driftgate/driftgate.db")
	if got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	if got := ExpandPath("/var/lib/driftgate.db"); got != "/var/lib/driftgate.db" {
		t.Errorf("absolute path should be unchanged, got %q", got)
	}
}

func TestCreateDefault_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "driftgate.yaml")

	if err := createDefault(path); err != nil {
		t.Fatalf("createDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading created config: %v", err)
	}
	if !strings.Contains(string(data), "insurance_model") {
		t.Error("default config file should contain the default model name")
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom(created default) error = %v", err)
	}
	if cfg.Model.Name != DefaultConfig().Model.Name {
		t.Errorf("round-tripped Model.Name = %q", cfg.Model.Name)
	}
}
