// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
Package api provides the HTTP status and control surface for LocalRecs.

The API is deliberately small. It reports health, exposes the state of the
recommendation engine, lists persisted runs, serves the latest rows for a
user, and lets an operator trigger a run on demand.

# Endpoints

	GET  /api/v1/health/live          process liveness
	GET  /api/v1/health/ready         store and Jellyfin reachability
	GET  /api/v1/status               engine status and last run summary
	GET  /api/v1/runs                 persisted runs, newest first (limit, offset)
	POST /api/v1/runs                 trigger a run in the background (202, or 409 if busy)
	GET  /api/v1/runs/{runID}         one persisted run
	GET  /api/v1/users/{userID}/rows  latest rows for a user (optional kind filter)
	GET  /metrics                     Prometheus metrics

# Response Envelope

Every JSON response uses the same envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "...", "query_time_ms": 3},
	  "error": null
	}

Errors set status to "error" and fill error with a machine-readable code
(VALIDATION_ERROR, NOT_FOUND, RUN_IN_PROGRESS, DATABASE_ERROR, ...).

# Middleware

The router is built on chi with go-chi/cors for CORS, go-chi/httprate for
per-IP rate limiting, request ID propagation into the logging context, and
a Prometheus middleware that records request counts and latencies by route
pattern.
*/
package api
