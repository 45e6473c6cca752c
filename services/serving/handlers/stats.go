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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/driftgate/services/drift"
	"github.com/AleutianAI/driftgate/services/serving/datatypes"
)

// ReloadStats handles POST /v1/stats/reload: load a reference-statistics
// artifact from disk and swap it in. A malformed artifact leaves the
// current statistics serving.
func ReloadStats(store *drift.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StatsReloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		stats, err := drift.LoadReferenceStatistics(req.Path)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity,
				datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if err := store.Replace(stats); err != nil {
			c.JSON(http.StatusUnprocessableEntity,
				datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		slog.Info("reference statistics reloaded", "path", req.Path, "features", len(stats))
		c.JSON(http.StatusOK, gin.H{"status": "reloaded", "features": len(stats)})
	}
}
