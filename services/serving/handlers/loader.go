// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the serving API endpoints.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/AleutianAI/driftgate/services/registry"
	"github.com/AleutianAI/driftgate/services/training"
)

// ServingModel is one loaded model plus the registry identity it serves
// under.
type ServingModel struct {
	Predictor training.Predictor
	Version   int
	Stage     registry.Stage
	RunID     string
}

// VersionLabel is the model_version label value used in metrics and
// responses.
func (m *ServingModel) VersionLabel() string {
	return strconv.Itoa(m.Version)
}

// ModelHolder holds the currently served model. Swapping a new model in is
// atomic; in-flight requests finish on the version they started with.
type ModelHolder struct {
	current atomic.Pointer[ServingModel]
}

// Get returns the current model, or nil when none is loaded yet.
func (h *ModelHolder) Get() *ServingModel {
	return h.current.Load()
}

// Set replaces the served model.
func (h *ModelHolder) Set(m *ServingModel) {
	h.current.Store(m)
}

// LoadServingModel picks the version to serve: the latest Production
// version when one exists, otherwise the latest Staging version. Serving
// a Staging model is logged loudly so nobody mistakes it for a release.
func LoadServingModel(ctx context.Context, reg registry.Registry, name string) (*ServingModel, error) {
	mv, err := reg.LatestVersion(ctx, name, registry.StageProduction)
	if errors.Is(err, registry.ErrNotFound) {
		mv, err = reg.LatestVersion(ctx, name, registry.StageStaging)
		if err == nil {
			slog.Warn("no Production model found, serving latest Staging version",
				"model", name, "version", mv.Version)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("handlers: resolve serving version for %q: %w", name, err)
	}

	predictor, err := training.LoadArtifact(mv.Artifact)
	if err != nil {
		return nil, fmt.Errorf("handlers: load artifact for %s v%d: %w", name, mv.Version, err)
	}

	slog.Info("model loaded", "model", name, "version", mv.Version, "stage", mv.Stage)
	return &ServingModel{
		Predictor: predictor,
		Version:   mv.Version,
		Stage:     mv.Stage,
		RunID:     mv.RunID,
	}, nil
}
