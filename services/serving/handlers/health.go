// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/driftgate/services/serving/datatypes"
)

// Health reports 503 until a model is loaded, then 200 with the served
// version. Orchestrators gate traffic on this endpoint.
func Health(holder *ModelHolder) gin.HandlerFunc {
	return func(c *gin.Context) {
		model := holder.Get()
		if model == nil {
			c.JSON(http.StatusServiceUnavailable,
				datatypes.HealthResponse{Status: "unavailable"})
			return
		}
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:       "ok",
			ModelVersion: model.VersionLabel(),
		})
	}
}
