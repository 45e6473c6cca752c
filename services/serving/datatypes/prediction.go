// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the request and response shapes of the
// serving API.
package datatypes

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// PredictionRequest is the POST /v1/predict body. Field names match the
// training schema so clients can forward raw feed records directly.
//
// HasDrivingLicense and Switch are pointers because 0 is a legal value
// and "required" must still reject an absent field.
type PredictionRequest struct {
	Gender            string  `json:"Gender" binding:"required,oneof=Male Female"`
	Age               float64 `json:"Age" binding:"required,gte=18,lte=110"`
	HasDrivingLicense *int    `json:"HasDrivingLicense" binding:"required,oneof=0 1"`
	RegionID          float64 `json:"RegionID" binding:"required,gte=1,lte=60"`
	Switch            *int    `json:"Switch" binding:"required,oneof=-1 0 1"`
	PastAccident      string  `json:"PastAccident" binding:"omitempty,oneof=Yes No Unknown"`
	AnnualPremium     float64 `json:"AnnualPremium" binding:"required,gt=0"`
}

// Features flattens the request into the numeric map the model and the
// drift guard consume, using the same categorical encodings as the
// training pipeline.
func (r PredictionRequest) Features() map[string]float64 {
	features := map[string]float64{
		"Age":           r.Age,
		"RegionID":      r.RegionID,
		"AnnualPremium": r.AnnualPremium,
	}
	if r.Gender == "Male" {
		features["Gender"] = 1
	} else {
		features["Gender"] = 0
	}
	if r.HasDrivingLicense != nil {
		features["HasDrivingLicense"] = float64(*r.HasDrivingLicense)
	}
	if r.Switch != nil {
		features["Switch"] = float64(*r.Switch)
	}
	switch r.PastAccident {
	case "Yes":
		features["PastAccident"] = 1
	case "No":
		features["PastAccident"] = 0
	default:
		features["PastAccident"] = -1
	}
	return features
}

// PredictionResponse is the POST /v1/predict reply.
type PredictionResponse struct {
	PredictedClass        int             `json:"predicted_class"`
	PredictionProbability float64         `json:"prediction_probability"`
	ModelVersion          string          `json:"model_version"`
	DriftDetected         bool            `json:"drift_detected"`
	DriftDetails          map[string]bool `json:"drift_details,omitempty"`
}

// HealthResponse is the GET /health reply once a model is loaded.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version,omitempty"`
}

// StatsReloadRequest is the POST /v1/stats/reload body.
type StatsReloadRequest struct {
	Path string `json:"path" binding:"required,notblank"`
}

// NotBlank rejects strings that are empty after trimming whitespace.
// "required" alone accepts a body of spaces, which would then fail
// much later as a file-not-found.
func NotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// RegisterValidators installs the custom binding validators on gin's
// shared validator engine. Call once before routing requests.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("notblank", NotBlank)
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
