// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diaggen

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all diaggen routes with the router group.
//
// Description:
//
//	Registers all /v1/diaggen/* endpoints with the given Gin router
//	group. The group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/diaggen/generate - Generate one diagnostic trace
//	POST /v1/diaggen/batch - Generate a batch of traces
//	GET  /v1/diaggen/tools - List the loaded tool catalog
//	GET  /v1/diaggen/health - Health check
//	GET  /v1/diaggen/ready - Readiness check
//
// Example:
//
//	service, _ := diaggen.NewService(diaggen.ServiceConfig{})
//	handlers := diaggen.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	diaggen.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	dg := rg.Group("/diaggen")
	{
		dg.POST("/generate", handlers.HandleGenerate)
		dg.POST("/batch", handlers.HandleBatch)
		dg.GET("/tools", handlers.HandleTools)
		dg.GET("/health", handlers.HandleHealth)
		dg.GET("/ready", handlers.HandleReady)
	}
}
