// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package training

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// LogisticModel is a binary logistic classifier with one weight per
// feature. It is the reference Predictor implementation; anything else
// satisfying Predictor can replace it without touching the pipeline or
// the serving shell.
//
// # Thread Safety
//
// Immutable once fitted. Safe for concurrent prediction.
type LogisticModel struct {
	// FeatureOrder fixes the iteration order over Weights so training is
	// deterministic and artifacts are stable.
	FeatureOrder []string           `json:"feature_order"`
	Weights      map[string]float64 `json:"weights"`
	Bias         float64            `json:"bias"`

	// Threshold converts a probability into a class. 0.5 unless the
	// trainer was configured otherwise.
	Threshold float64 `json:"threshold"`
}

// PredictProba returns the probability of the positive class. Features
// absent from the observation contribute zero, matching how the
// transformation stage encodes unknowns.
func (m *LogisticModel) PredictProba(features map[string]float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, ErrUntrainedModel
	}
	z := m.Bias
	for _, name := range m.FeatureOrder {
		z += m.Weights[name] * features[name]
	}
	return sigmoid(z), nil
}

// Predict returns 1 when the positive-class probability meets the
// threshold, 0 otherwise.
func (m *LogisticModel) Predict(features map[string]float64) (int, error) {
	p, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if p >= m.Threshold {
		return 1, nil
	}
	return 0, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// SaveArtifact writes the fitted model as a JSON document. The registry
// stores the path alongside the version row.
func (m *LogisticModel) SaveArtifact(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("training: marshal model artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("training: write model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a JSON model artifact written by SaveArtifact.
func LoadArtifact(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("training: read model artifact: %w", err)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("training: parse model artifact %q: %w", path, err)
	}
	if m.Threshold == 0 {
		m.Threshold = 0.5
	}
	return &m, nil
}
