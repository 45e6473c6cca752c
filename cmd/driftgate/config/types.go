// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

type DriftgateConfig struct {
	// Model: the default registry name commands operate on
	Model ModelConfig `yaml:"model"`

	// Registry: SQLite model registry location
	Registry RegistryConfig `yaml:"registry"`

	// Pipeline: batch run defaults
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Storage: where processed batches land
	Storage StorageConfig `yaml:"storage"`

	// Training: reference trainer tuning
	Training TrainingConfig `yaml:"training"`

	// Logging: CLI log output
	Logging LoggingConfig `yaml:"logging"`
}

type ModelConfig struct {
	Name string `yaml:"name"` // e.g. insurance_model
}

type RegistryConfig struct {
	Path string `yaml:"path"` // e.g. ~/.driftgate/driftgate.db
}

type PipelineConfig struct {
	WorkDir      string  `yaml:"work_dir"`      // receives reports and model artifacts
	LabelColumn  string  `yaml:"label_column"`  // training target column
	SampleRows   int     `yaml:"sample_rows"`   // rows sampled from CSV inputs (0 = all)
	SyntheticN   int     `yaml:"synthetic_n"`   // rows generated when no input file given
	MissingRatio float64 `yaml:"missing_ratio"` // null ratio for synthetic batches
}

type StorageConfig struct {
	// Backend can be "local" or "gcs".
	Backend         string `yaml:"backend"`
	LocalRoot       string `yaml:"local_root,omitempty"`
	Bucket          string `yaml:"bucket,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

type TrainingConfig struct {
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	HoldoutRatio float64 `yaml:"holdout_ratio"`
	Seed         int64   `yaml:"seed"`
}

type LoggingConfig struct {
	// Level can be "debug", "info", "warn" or "error".
	Level  string `yaml:"level"`
	LogDir string `yaml:"log_dir,omitempty"`
	JSON   bool   `yaml:"json"`
}

func DefaultConfig() DriftgateConfig {
	return DriftgateConfig{
		Model: ModelConfig{
			Name: "insurance_model",
		},
		Registry: RegistryConfig{
			Path: "~/.driftgate/driftgate.db",
		},
		Pipeline: PipelineConfig{
			WorkDir:      "~/.driftgate/runs",
			LabelColumn:  "Result",
			SyntheticN:   500,
			MissingRatio: 0.005,
		},
		Storage: StorageConfig{
			Backend:   "local",
			LocalRoot: "~/.driftgate/store",
		},
		Training: TrainingConfig{
			Epochs:       200,
			LearningRate: 0.1,
			HoldoutRatio: 0.2,
			Seed:         1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
