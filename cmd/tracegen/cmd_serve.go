// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/tracegen/services/diaggen"
	"github.com/AleutianAI/tracegen/services/diaggen/providers"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		maxSteps int
		warmup   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trace-generation HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			shutdownTracing := setupTracing()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(ctx); err != nil {
					slog.Warn("trace exporter shutdown failed", slog.Any("error", err))
				}
			}()

			client := chatClient()
			if client != nil && warmup {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				err := providers.WarmAll(ctx, map[string]providers.ChatClient{"chat": client})
				cancel()
				if err != nil {
					slog.Warn("model warmup failed, continuing anyway", slog.Any("error", err))
				}
			}

			service, err := diaggen.NewService(diaggen.ServiceConfig{
				CatalogPath:     catalogPath,
				Client:          client,
				DefaultMaxSteps: maxSteps,
			})
			if err != nil {
				return err
			}

			if !debugLogging {
				gin.SetMode(gin.ReleaseMode)
			}
			router := gin.New()
			router.Use(gin.Recovery())
			router.Use(otelgin.Middleware("tracegen"))
			if debugLogging {
				router.Use(gin.Logger())
			}

			v1 := router.Group("/v1")
			diaggen.RegisterRoutes(v1, diaggen.NewHandlers(service))
			router.GET("/metrics", gin.WrapH(promhttp.Handler()))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-quit
				slog.Info("shutting down tracegen server")
				os.Exit(0)
			}()

			addr := fmt.Sprintf(":%d", port)
			slog.Info("starting tracegen server", slog.String("address", addr))
			return router.Run(addr)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 8, "default per-run step limit")
	cmd.Flags().BoolVar(&warmup, "warmup", false, "probe the chat backend before serving")
	return cmd
}
