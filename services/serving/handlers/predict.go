// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/driftgate/services/drift"
	"github.com/AleutianAI/driftgate/services/serving/datatypes"
	"github.com/AleutianAI/driftgate/services/serving/observability"
)

var predictTracer = otel.Tracer("driftgate.serving.handlers")

// PredictDeps bundles what the predict endpoint needs.
type PredictDeps struct {
	Holder   *ModelHolder
	Guard    *drift.Guard
	Detector *drift.Detector
	Metrics  *observability.ServingMetrics
}

// windowTracker keeps a rolling window of recent values per feature so
// the drift-ratio gauge reflects live traffic rather than a single
// request.
type windowTracker struct {
	mu     sync.Mutex
	size   int
	values map[string][]float64
}

func newWindowTracker(size int) *windowTracker {
	if size <= 0 {
		size = drift.DefaultWindowSize
	}
	return &windowTracker{size: size, values: make(map[string][]float64)}
}

// push appends a value and returns a copy of the current window.
func (w *windowTracker) push(feature string, value float64) []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	window := append(w.values[feature], value)
	if len(window) > w.size {
		window = window[len(window)-w.size:]
	}
	w.values[feature] = window
	return append([]float64(nil), window...)
}

// Predict handles POST /v1/predict: validate, annotate for drift, invoke
// the model, and report the drift flags back to the caller. Drift never
// blocks a prediction; it only annotates the response and the metrics.
func Predict(deps PredictDeps) gin.HandlerFunc {
	windows := newWindowTracker(0)

	return func(c *gin.Context) {
		_, span := predictTracer.Start(c.Request.Context(), "handlers.Predict")
		defer span.End()

		var req datatypes.PredictionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		model := deps.Holder.Get()
		if model == nil {
			c.JSON(http.StatusServiceUnavailable,
				datatypes.ErrorResponse{Error: "model not loaded"})
			return
		}

		features := req.Features()
		annotation := deps.Guard.Annotate(features)
		for feature := range annotation.Flags {
			window := windows.push(feature, features[feature])
			deps.Metrics.SetDriftRatio(feature, deps.Detector.DriftRatio(feature, window))
		}

		start := time.Now()
		class, err := model.Predictor.Predict(features)
		if err == nil {
			var proba float64
			proba, err = model.Predictor.PredictProba(features)
			if err == nil {
				deps.Metrics.RecordPrediction(model.VersionLabel(), true, time.Since(start).Seconds())
				c.JSON(http.StatusOK, datatypes.PredictionResponse{
					PredictedClass:        class,
					PredictionProbability: proba,
					ModelVersion:          model.VersionLabel(),
					DriftDetected:         annotation.AnyDrift,
					DriftDetails:          annotation.Flags,
				})
				return
			}
		}

		deps.Metrics.RecordPrediction(model.VersionLabel(), false, time.Since(start).Seconds())
		slog.Error("prediction failed", "model_version", model.VersionLabel(), "error", err)
		c.JSON(http.StatusInternalServerError,
			datatypes.ErrorResponse{Error: "prediction failed"})
	}
}
