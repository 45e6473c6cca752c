// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware holds the serving shell's gin middleware.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/driftgate/services/serving/observability"
)

// Metrics records one requests_total increment and one latency sample per
// request. The endpoint label uses the route template, not the raw path,
// to keep cardinality bounded.
func Metrics(m *observability.ServingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RecordRequest(c.Request.Method, endpoint, c.Writer.Status(),
			time.Since(start).Seconds())
	}
}
