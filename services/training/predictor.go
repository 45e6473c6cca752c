// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package training holds the trainer/predictor collaborator used by the
// pipeline and the serving shell. The decision components never care how a
// model was fit; they only need something that satisfies Predictor.
package training

import "errors"

// ErrUntrainedModel is returned when prediction is attempted on a model
// that has no fitted parameters.
var ErrUntrainedModel = errors.New("training: model has not been trained")

// ErrNoExamples is returned when training or evaluation receives an empty
// example set.
var ErrNoExamples = errors.New("training: no examples provided")

// Example is one labeled observation. Features are numeric by the time
// training sees them; upstream transformation has already imputed and
// encoded the raw record.
type Example struct {
	Features map[string]float64
	Label    int
}

// Predictor is the minimal contract the serving shell and the promotion
// pipeline need from a fitted model.
//
// # Thread Safety
//
// Implementations must be safe for concurrent Predict calls once fitted;
// the serving shell calls them from multiple request goroutines.
type Predictor interface {
	// Predict returns the predicted class (0 or 1) for one observation.
	Predict(features map[string]float64) (int, error)

	// PredictProba returns the probability of the positive class.
	PredictProba(features map[string]float64) (float64, error)
}
