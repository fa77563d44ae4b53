// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - Recommendation runs (duration, outcome, users processed, rows written)
  - Feature extraction (catalog size, vocabulary size)
  - Optional collaborative filtering (training outcome)
  - Jellyfin API calls and the circuit breaker guarding them
  - Run history storage (DuckDB query latency)
  - HTTP API latency and throughput

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8096/metrics

# Usage

All collectors are registered with the default registry through promauto.
Callers use the Record* helpers rather than the collectors directly:

	start := time.Now()
	summary, err := engine.Run(ctx)
	metrics.RecordRun(time.Since(start), err)

# Thread Safety

Every helper is safe for concurrent use.
*/
package metrics
