// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry defines the model registry contract and its SQLite
// implementation.
//
// The registry tracks model versions, their lifecycle stage, and the
// evaluation metrics logged for each training run. The promotion engine
// only consumes these records; it never computes metrics itself.
package registry

import (
	"context"
	"errors"
	"time"
)

// Stage is a model's lifecycle stage. A model is created in Staging after
// training, transitions to Production only via an explicit
// promotion-approved action, and may be demoted to Archived. The registry
// enforces that at most one version per model name holds Production.
type Stage string

const (
	StageStaging    Stage = "Staging"
	StageProduction Stage = "Production"
	StageArchived   Stage = "Archived"
)

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageStaging, StageProduction, StageArchived:
		return Stage(s), nil
	}
	return "", errors.New("unknown stage: " + s)
}

// MetricSet maps metric name (accuracy, precision, ...) to its value in
// [0, 1]. Produced once per completed training run.
type MetricSet map[string]float64

// ModelVersion identifies one registered model.
type ModelVersion struct {
	// Name is the registered model name ("insurance_model").
	Name string

	// Version is the registry-assigned monotonically increasing number.
	Version int

	// RunID identifies the training run that produced this version.
	RunID string

	// Stage is the current lifecycle stage.
	Stage Stage

	// Artifact is the location of the serialized model.
	Artifact string

	// Created is the registration time.
	Created time.Time
}

// ErrNotFound reports that no model version matches the query.
var ErrNotFound = errors.New("model version not found")

// Registry is the model registry contract consumed by the promotion
// engine, the pipeline and the serving shell.
type Registry interface {
	// Register stores a new version of the named model and assigns it the
	// next version number. The returned ModelVersion carries the assigned
	// version and creation time.
	Register(ctx context.Context, model ModelVersion, metrics MetricSet) (ModelVersion, error)

	// ListVersions returns every version of the named model, ordered by
	// version ascending (oldest first).
	ListVersions(ctx context.Context, name string) ([]ModelVersion, error)

	// LatestVersion returns the newest version of the named model in the
	// given stage, or ErrNotFound.
	LatestVersion(ctx context.Context, name string, stage Stage) (ModelVersion, error)

	// GetMetrics returns the metrics logged for one version, or
	// ErrNotFound.
	GetMetrics(ctx context.Context, name string, version int) (MetricSet, error)

	// Promote transitions a version to the target stage. Promoting to
	// Production archives any version currently in Production for the same
	// model name, atomically.
	Promote(ctx context.Context, name string, version int, target Stage) error

	// Close releases the backing store.
	Close() error
}
