// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

// Package logging provides centralized zerolog-based structured logging for LocalRecs.
//
// # Overview
//
// A single global zerolog logger is configured once at startup with Init and
// then shared by every component. Components derive child loggers carrying a
// "component" field; run- and request-scoped values travel in the context.
//
//	import "github.com/tomtom215/localrecs/internal/logging"
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logger := logging.WithComponent("pipeline")
//	logger.Info().Int("users", n).Msg("Run started")
//
//	ctx = logging.ContextWithRunID(ctx, runID)
//	logging.Ctx(ctx).Debug().Str("user", name).Msg("Profile built")
//
// # Context Fields
//
// Ctx adds these fields when present in the context:
//   - correlation_id: short id tying together one unit of work
//   - request_id: HTTP request id set by the API middleware
//   - run_id: recommendation run id set by the pipeline
//
// # slog Interop
//
// SlogHandler adapts zerolog to log/slog so that libraries speaking slog,
// such as sutureslog, write through the same logger.
//
// # Secrets
//
// RedactToken and RedactURL mask the Jellyfin API key before anything that
// may contain it is logged.
package logging
