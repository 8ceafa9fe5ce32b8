// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diaggen exposes the trace-generation engine over HTTP.
package diaggen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/tracegen/services/diaggen/batch"
	"github.com/AleutianAI/tracegen/services/diaggen/catalog"
	"github.com/AleutianAI/tracegen/services/diaggen/engine"
	"github.com/AleutianAI/tracegen/services/diaggen/planner"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
	"github.com/AleutianAI/tracegen/services/diaggen/worldmodel"
)

// ServiceConfig configures the generation service.
type ServiceConfig struct {
	// CatalogPath loads the tool catalog from a file; empty selects the
	// embedded default catalog.
	CatalogPath string

	// Client is the chat backend. Nil runs the service offline.
	Client providers.ChatClient

	// DefaultMaxSteps is applied when requests omit max_steps.
	DefaultMaxSteps int

	Logger *slog.Logger
}

// Service owns the catalog, engine, and batch runner behind the HTTP
// surface.
//
// # Thread Safety
//
// Single generations may run concurrently (the engine keeps per-run state
// in locals). Batches are serialized with a mutex because each batch run
// writes files and runs sequentially by contract.
type Service struct {
	catalog  *catalog.Catalog
	engine   *engine.Engine
	runner   *batch.Runner
	maxSteps int
	logger   *slog.Logger

	batchMu sync.Mutex
}

// NewService builds the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = loaded
	}

	eng := engine.New(cat, cfg.Client, logger)
	maxSteps := cfg.DefaultMaxSteps
	if maxSteps <= 0 {
		maxSteps = 8
	}

	return &Service{
		catalog:  cat,
		engine:   eng,
		runner:   batch.NewRunner(eng, logger),
		maxSteps: maxSteps,
		logger:   logger,
	}, nil
}

// Catalog returns the loaded tool catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Generate runs one trace generation.
func (s *Service) Generate(ctx context.Context, question string, cfg engine.Config) (*engine.Result, error) {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = s.maxSteps
	}
	return s.engine.Run(ctx, question, cfg)
}

// GenerateBatch runs one batch, serialized against other batches.
func (s *Service) GenerateBatch(ctx context.Context, opts batch.Options) (*batch.Summary, error) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = s.maxSteps
	}
	return s.runner.Run(ctx, opts)
}

// normalizeConfig maps request strings onto the closed engine enums.
func normalizeConfig(maxSteps int, mode, profile string, temperature float64, runID string) engine.Config {
	return engine.Config{
		MaxSteps:    maxSteps,
		Mode:        planner.ParseMode(mode),
		Profile:     worldmodel.ParseProfile(profile),
		Temperature: temperature,
		RunID:       runID,
	}
}
