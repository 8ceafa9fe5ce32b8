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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/tracegen/services/diaggen/batch"
)

// Handlers binds the service to gin.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// GenerateRequest is the body of POST /v1/diaggen/generate.
type GenerateRequest struct {
	Question    string  `json:"question" binding:"required"`
	MaxSteps    int     `json:"max_steps"`
	Mode        string  `json:"mode"`
	Profile     string  `json:"profile"`
	Temperature float64 `json:"temperature"`
	RunID       string  `json:"run_id"`
}

// BatchRequest is the body of POST /v1/diaggen/batch.
type BatchRequest struct {
	Questions []string `json:"questions" binding:"required"`
	Count     int      `json:"count"`
	MaxSteps  int      `json:"max_steps"`
	OutputDir string   `json:"output_dir"`
	BatchID   string   `json:"batch_id"`
}

func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleGenerate handles POST /v1/diaggen/generate.
//
// Description:
//
//	Runs one diagnostic trace generation synchronously and returns the
//	trace document together with run metadata. Long runs are bounded by
//	max_steps; the request context bounds wall time.
//
// Response:
//
//	200 OK: {run_id, stop_reason, steps, findings, trace}
//	400 Bad Request: Missing question
//	500 Internal Server Error: Empty catalog or engine failure
func (h *Handlers) HandleGenerate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGenerate")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "question is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	cfg := normalizeConfig(req.MaxSteps, req.Mode, req.Profile, req.Temperature, req.RunID)
	res, err := h.service.Generate(c.Request.Context(), req.Question, cfg)
	if err != nil {
		logger.Error("generation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GENERATION_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      res.RunID,
		"stop_reason": res.StopReason,
		"steps":       res.Steps,
		"findings":    res.Findings,
		"mode":        res.Mode,
		"profile":     res.Profile,
		"trace":       res.Trace,
	})
}

// HandleBatch handles POST /v1/diaggen/batch.
//
// Description:
//
//	Runs a whole batch synchronously and returns the summary. Batches are
//	serialized server-side; clients wanting overlap should shard across
//	instances. output_dir is interpreted on the server's filesystem.
func (h *Handlers) HandleBatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBatch")

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "questions is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	summary, err := h.service.GenerateBatch(c.Request.Context(), batch.Options{
		Questions: req.Questions,
		Count:     req.Count,
		MaxSteps:  req.MaxSteps,
		OutputDir: req.OutputDir,
		BatchID:   req.BatchID,
	})
	if err != nil {
		logger.Error("batch failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "BATCH_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// HandleTools handles GET /v1/diaggen/tools.
func (h *Handlers) HandleTools(c *gin.Context) {
	entries := h.service.Catalog().Entries()
	tools := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		tools = append(tools, gin.H{
			"name":        e.Name,
			"description": e.Description,
			"parameters":  e.Parameters,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}

// HandleHealth handles GET /v1/diaggen/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/diaggen/ready. Ready means a non-empty
// catalog is loaded; the chat backend is optional by design.
func (h *Handlers) HandleReady(c *gin.Context) {
	if h.service.Catalog().Len() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "empty catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
