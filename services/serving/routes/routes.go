// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/driftgate/services/drift"
	"github.com/AleutianAI/driftgate/services/serving/datatypes"
	"github.com/AleutianAI/driftgate/services/serving/handlers"
	"github.com/AleutianAI/driftgate/services/serving/middleware"
)

// SetupRoutes wires the serving endpoints onto the router.
func SetupRoutes(router *gin.Engine, deps handlers.PredictDeps, store *drift.Store) error {
	if err := datatypes.RegisterValidators(); err != nil {
		return err
	}

	router.Use(middleware.Metrics(deps.Metrics))

	router.GET("/health", handlers.Health(deps.Holder))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/predict", handlers.Predict(deps))
		v1.POST("/stats/reload", handlers.ReloadStats(store))
	}
	return nil
}
