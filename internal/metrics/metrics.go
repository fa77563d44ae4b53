// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Run Metrics
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "localrecs_run_duration_seconds",
			Help:    "Duration of full recommendation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localrecs_runs_total",
			Help: "Total number of recommendation runs",
		},
		[]string{"result"}, // "success", "failure", "cancelled", "skipped"
	)

	RunLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localrecs_run_last_success_timestamp",
			Help: "Unix timestamp of the last successful run",
		},
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localrecs_run_in_progress",
			Help: "1 while a recommendation run is executing",
		},
	)

	UsersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localrecs_users_processed_total",
			Help: "Total number of users handled by recommendation runs",
		},
		[]string{"outcome"}, // "ranked", "no_history", "failed"
	)

	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localrecs_rows_total",
			Help: "Total number of recommendation rows produced",
		},
		[]string{"kind", "mode"}, // mode: "write", "dry_run"
	)

	RowItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "localrecs_row_items",
			Help:    "Number of items in produced recommendation rows",
			Buckets: []float64{1, 5, 10, 20, 30, 50, 100},
		},
		[]string{"kind"},
	)

	// Feature Extraction Metrics
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localrecs_catalog_items",
			Help: "Number of catalog items vectorized in the last run",
		},
	)

	VocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localrecs_vocabulary_size",
			Help: "Number of distinct tokens in the last fitted vocabulary",
		},
	)

	VectorizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "localrecs_vectorize_duration_seconds",
			Help:    "Duration of tokenization and TF-IDF fitting in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Collaborative Filtering Metrics
	CFTrainingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localrecs_cf_training_total",
			Help: "Total number of collaborative filtering training attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Jellyfin Client Metrics
	JellyfinRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "localrecs_jellyfin_request_duration_seconds",
			Help:    "Duration of Jellyfin API requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "status"}, // status: "ok", "error"
	)

	CollectionWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localrecs_collection_writes_total",
			Help: "Total number of Jellyfin collection mutations",
		},
		[]string{"operation"}, // "create", "add", "remove"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordRun records the outcome of a recommendation run.
func RecordRun(duration time.Duration, err error) {
	RunDuration.Observe(duration.Seconds())
	switch {
	case err == nil:
		RunsTotal.WithLabelValues("success").Inc()
		RunLastSuccess.Set(float64(time.Now().Unix()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		RunsTotal.WithLabelValues("cancelled").Inc()
	default:
		RunsTotal.WithLabelValues("failure").Inc()
	}
}

// RecordRunSkipped counts a run that was refused because another was active.
func RecordRunSkipped() {
	RunsTotal.WithLabelValues("skipped").Inc()
}

// TrackRunInProgress sets the in-progress gauge.
func TrackRunInProgress(running bool) {
	if running {
		RunInProgress.Set(1)
	} else {
		RunInProgress.Set(0)
	}
}

// RecordUser counts a processed user by outcome.
func RecordUser(outcome string) {
	UsersProcessed.WithLabelValues(outcome).Inc()
}

// RecordRow counts a produced row and its size.
func RecordRow(kind string, items int, dryRun bool) {
	mode := "write"
	if dryRun {
		mode = "dry_run"
	}
	RowsWritten.WithLabelValues(kind, mode).Inc()
	RowItems.WithLabelValues(kind).Observe(float64(items))
}

// RecordVectorize records feature extraction statistics.
func RecordVectorize(duration time.Duration, items, vocabulary int) {
	VectorizeDuration.Observe(duration.Seconds())
	CatalogItems.Set(float64(items))
	VocabularySize.Set(float64(vocabulary))
}

// RecordCFTraining records a collaborative filtering training attempt.
func RecordCFTraining(err error) {
	if err != nil {
		CFTrainingTotal.WithLabelValues("failure").Inc()
		return
	}
	CFTrainingTotal.WithLabelValues("success").Inc()
}

// RecordJellyfinRequest records a Jellyfin API call.
func RecordJellyfinRequest(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	JellyfinRequestDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordCollectionWrite counts a collection mutation.
func RecordCollectionWrite(operation string) {
	CollectionWrites.WithLabelValues(operation).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
