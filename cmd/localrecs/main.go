// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

// Package main is the entry point for LocalRecs.
//
// LocalRecs builds per-user recommendation rows for a Jellyfin server
// entirely on local metadata: TF-IDF vectors over titles, genres, people,
// studios and overviews, user profiles from watch history, and cosine
// ranking. Rows are written back to Jellyfin as collections and kept in
// DuckDB for the status API.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml, environment (Koanf v2)
//  2. Logging: zerolog, JSON by default
//  3. Jellyfin client: rate-limited, optionally behind a circuit breaker
//  4. Run history: DuckDB
//  5. Recommendation engine
//  6. Supervisor tree: scheduler and HTTP API
//
// # Example Usage
//
//	export JELLYFIN_URL=http://jellyfin:8096
//	export JELLYFIN_API_KEY=your-api-key
//	export SCHEDULE_RUN_ON_STARTUP=true
//	./localrecs
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests and any run started through the API, and the engine
// aborts a running task at the next user boundary.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/localrecs/internal/api"
	"github.com/tomtom215/localrecs/internal/config"
	"github.com/tomtom215/localrecs/internal/jellyfin"
	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/metrics"
	"github.com/tomtom215/localrecs/internal/recommend/pipeline"
	"github.com/tomtom215/localrecs/internal/store"
	"github.com/tomtom215/localrecs/internal/supervisor"
	"github.com/tomtom215/localrecs/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("jellyfin_url", logging.RedactURL(cfg.Jellyfin.URL)).
		Str("db_path", cfg.Database.Path).
		Bool("dry_run", cfg.Recommend.DryRun).
		Bool("cf_enabled", cfg.Recommend.CF.Enabled).
		Msg("Starting LocalRecs")

	var client jellyfin.API = jellyfin.NewClient(jellyfin.ClientConfig{
		BaseURL:           cfg.Jellyfin.URL,
		APIKey:            cfg.Jellyfin.APIKey,
		Timeout:           cfg.Jellyfin.Timeout,
		RequestsPerSecond: cfg.Jellyfin.RequestsPerSecond,
		Burst:             cfg.Jellyfin.Burst,
	})
	if cfg.Jellyfin.CircuitBreakerEnabled {
		client = jellyfin.NewCircuitBreakerClient(client)
	}

	source := jellyfin.NewSource(client, cfg.Jellyfin.ItemTypes, logging.WithComponent("jellyfin"))
	writer := jellyfin.NewCollectionsWriter(client, cfg.Jellyfin.CollectionNameTemplate, logging.WithComponent("collections"))

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := source.Ready(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Jellyfin is not reachable yet (runs will retry)")
	} else {
		logging.Info().Msg("Connected to Jellyfin")
	}
	pingCancel()

	history, err := store.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open run history database")
	}
	defer func() {
		if err := history.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing run history database")
		}
	}()

	engine, err := pipeline.NewEngine(cfg.Recommend.ToEngineConfig(), logging.Logger(), source, source, writer, history)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Schedule.Enabled {
		scheduler, err := services.NewRecommendService(engine, services.RecommendServiceConfig{
			RunOnStartup: cfg.Schedule.RunOnStartup,
			DailyAt:      cfg.Schedule.DailyAt,
			Interval:     cfg.Schedule.Interval,
		}, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create recommendation scheduler")
		}
		tree.AddRecommendService(scheduler)
		logging.Info().Msg("Recommendation scheduler added to supervisor tree")
	} else {
		logging.Info().Msg("Scheduler disabled, runs are triggered through the API only")
	}

	if cfg.Server.Enabled {
		handler := api.NewHandler(engine, history, version,
			api.ReadinessCheck{Name: "store", Check: history.Ping},
			api.ReadinessCheck{Name: "jellyfin", Check: source.Ready},
		).WithRunContext(ctx)
		router := api.NewRouter(handler, api.ChiMiddlewareConfigFrom(&cfg.Security))

		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router.SetupChi(),
			ReadTimeout:       cfg.Server.Timeout,
			ReadHeaderTimeout: cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.Logger()).WithDrain(handler.Wait))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("LocalRecs stopped")
}
