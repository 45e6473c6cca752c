// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package training

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/AleutianAI/driftgate/services/registry"
	"github.com/google/uuid"
)

// Default trainer parameters.
const (
	DefaultEpochs       = 200
	DefaultLearningRate = 0.1
	DefaultHoldoutRatio = 0.2
	DefaultThreshold    = 0.5
)

// Config tunes the reference trainer. Zero values take the defaults.
type Config struct {
	Epochs       int
	LearningRate float64
	HoldoutRatio float64
	Threshold    float64

	// Seed makes the holdout split reproducible. Zero means seed 1.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Epochs <= 0 {
		c.Epochs = DefaultEpochs
	}
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
	if c.HoldoutRatio <= 0 || c.HoldoutRatio >= 1 {
		c.HoldoutRatio = DefaultHoldoutRatio
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		c.Threshold = DefaultThreshold
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

// Result is what one training run produces: the fitted model, the run
// identity for the registry, and the holdout metrics.
type Result struct {
	Model   *LogisticModel
	RunID   string
	Metrics registry.MetricSet
}

// Trainer fits the reference classifier with plain gradient descent.
type Trainer struct {
	cfg Config
	log *slog.Logger
}

// NewTrainer returns a trainer with the given config; zero-value fields
// fall back to the package defaults.
func NewTrainer(cfg Config) *Trainer {
	return &Trainer{cfg: cfg.withDefaults(), log: slog.Default()}
}

// Train fits a model on a shuffled split of the examples and evaluates it
// on the holdout. The run ID is a fresh UUID so the registry can tell
// retrained copies of the same data apart.
func (t *Trainer) Train(examples []Example) (Result, error) {
	if len(examples) == 0 {
		return Result{}, ErrNoExamples
	}

	trainSet, holdout := t.split(examples)
	if len(holdout) == 0 {
		// Tiny inputs: evaluate on the training set rather than fail.
		holdout = trainSet
	}

	model := t.fit(trainSet)

	metrics, err := Evaluate(model, holdout)
	if err != nil {
		return Result{}, fmt.Errorf("training: evaluate holdout: %w", err)
	}

	runID := uuid.New().String()
	t.log.Info("training run complete",
		"run_id", runID,
		"train_rows", len(trainSet),
		"holdout_rows", len(holdout),
		"accuracy", metrics["accuracy"],
	)

	return Result{Model: model, RunID: runID, Metrics: metrics}, nil
}

func (t *Trainer) split(examples []Example) (train, holdout []Example) {
	shuffled := make([]Example, len(examples))
	copy(shuffled, examples)
	rng := rand.New(rand.NewSource(t.cfg.Seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := len(shuffled) - int(float64(len(shuffled))*t.cfg.HoldoutRatio)
	return shuffled[:cut], shuffled[cut:]
}

func (t *Trainer) fit(examples []Example) *LogisticModel {
	order := featureOrder(examples)
	model := &LogisticModel{
		FeatureOrder: order,
		Weights:      make(map[string]float64, len(order)),
		Threshold:    t.cfg.Threshold,
	}
	for _, name := range order {
		model.Weights[name] = 0
	}

	n := float64(len(examples))
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		gradBias := 0.0
		grad := make(map[string]float64, len(order))
		for _, ex := range examples {
			p, _ := model.PredictProba(ex.Features)
			diff := p - float64(ex.Label)
			gradBias += diff
			for _, name := range order {
				grad[name] += diff * ex.Features[name]
			}
		}
		model.Bias -= t.cfg.LearningRate * gradBias / n
		for _, name := range order {
			model.Weights[name] -= t.cfg.LearningRate * grad[name] / n
		}
	}
	return model
}

// featureOrder collects every feature name seen in the examples, sorted,
// so repeated runs over the same data produce identical artifacts.
func featureOrder(examples []Example) []string {
	seen := make(map[string]struct{})
	for _, ex := range examples {
		for name := range ex.Features {
			seen[name] = struct{}{}
		}
	}
	order := make([]string, 0, len(seen))
	for name := range seen {
		order = append(order, name)
	}
	sort.Strings(order)
	return order
}
