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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service, err := NewService(ServiceConfig{DefaultMaxSteps: 3})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(service))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleGenerate(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/v1/diaggen/generate", GenerateRequest{
		Question: "check GE0/0/1 on S1",
		Mode:     "greedy",
		Profile:  "low",
		RunID:    "http-test-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID      string          `json:"run_id"`
		StopReason string          `json:"stop_reason"`
		Steps      int             `json:"steps"`
		Trace      json.RawMessage `json:"trace"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response JSON: %v", err)
	}
	if resp.RunID != "http-test-1" || resp.StopReason == "" || len(resp.Trace) == 0 {
		t.Errorf("response = %s", w.Body.String())
	}
}

func TestHandleGenerateRequiresQuestion(t *testing.T) {
	router := newTestRouter(t)
	w := postJSON(t, router, "/v1/diaggen/generate", map[string]any{"mode": "greedy"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error JSON: %v", err)
	}
	if resp.Code != "MISSING_PARAMETER" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestHandleBatch(t *testing.T) {
	router := newTestRouter(t)
	dir := t.TempDir()

	w := postJSON(t, router, "/v1/diaggen/batch", BatchRequest{
		Questions: []string{"check GE0/0/1 on S1"},
		Count:     2,
		OutputDir: dir,
		BatchID:   "http-batch",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		BatchID   string `json:"batch_id"`
		Total     int    `json:"total"`
		Succeeded int    `json:"succeeded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response JSON: %v", err)
	}
	if resp.BatchID != "http-batch" || resp.Total != 2 || resp.Succeeded != 2 {
		t.Errorf("summary = %s", w.Body.String())
	}
}

func TestHandleTools(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/diaggen/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response JSON: %v", err)
	}
	if resp.Count == 0 || len(resp.Tools) != resp.Count {
		t.Errorf("tools response = %s", w.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/v1/diaggen/health", "/v1/diaggen/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}
