// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/recommend"
	"github.com/tomtom215/localrecs/internal/recommend/pipeline"
	"github.com/tomtom215/localrecs/internal/store"
)

const readyTimeout = 5 * time.Second

// Engine is the part of the recommendation engine the API drives.
type Engine interface {
	Run(ctx context.Context) (*pipeline.RunSummary, error)
	Status() pipeline.Status
}

// History reads persisted runs and rows.
type History interface {
	ListRuns(ctx context.Context, limit, offset int) ([]pipeline.RunSummary, error)
	CountRuns(ctx context.Context) (int, error)
	GetRun(ctx context.Context, runID string) (*pipeline.RunSummary, error)
	LatestRows(ctx context.Context, userID string) ([]recommend.Row, error)
}

// ReadinessCheck is one named dependency probed by the readiness endpoint.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the API endpoints.
type Handler struct {
	engine  Engine
	history History
	checks  []ReadinessCheck
	version string
	logger  zerolog.Logger

	// runCtx bounds runs started through the API.
	runCtx context.Context

	// runs tracks runs started through the API.
	runs sync.WaitGroup
}

// NewHandler creates a handler. history may be nil when persistence is off;
// the runs and rows endpoints then answer 503.
func NewHandler(engine Engine, history History, version string, checks ...ReadinessCheck) *Handler {
	return &Handler{
		engine:  engine,
		history: history,
		checks:  checks,
		version: version,
		logger:  logging.WithComponent("api"),
		runCtx:  context.Background(),
	}
}

// WithRunContext ties triggered runs to ctx: canceling it aborts them.
func (h *Handler) WithRunContext(ctx context.Context) *Handler {
	h.runCtx = ctx
	return h
}

// Wait blocks until every run triggered through the API has returned.
func (h *Handler) Wait() {
	h.runs.Wait()
}

// runsQuery is the validated pagination of GET /runs.
type runsQuery struct {
	Limit  int `json:"limit" validate:"min=1,max=100"`
	Offset int `json:"offset" validate:"min=0,max=1000000"`
}

// rowsQuery is the validated input of GET /users/{userID}/rows.
type rowsQuery struct {
	UserID string `json:"user_id" validate:"required,jellyfin_id"`
	Kind   string `json:"kind" validate:"omitempty,row_kind"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"version": h.version,
	}, start)
}

// HealthReady probes every dependency and answers 503 if any fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			ready = false
			results[c.Name] = err.Error()
			h.logger.Warn().Err(err).Str("check", c.Name).Msg("Readiness check failed")
			continue
		}
		results[c.Name] = "ok"
	}

	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, &APIResponse{
			Status:   "error",
			Data:     map[string]interface{}{"ready": false, "checks": results},
			Metadata: Metadata{Timestamp: time.Now()},
			Error:    &APIError{Code: codeUnavailable, Message: "One or more dependencies are unavailable"},
		})
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"ready": true, "checks": results}, start)
}

// Status returns the engine's current state and last run.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, h.engine.Status(), start)
}

// TriggerRun starts a run in the background and answers 202. A run already
// in flight answers 409.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.engine.Status().Running {
		respondError(w, http.StatusConflict, codeRunInProgress, pipeline.ErrRunInProgress.Error(), nil)
		return
	}

	// Detach from the request so the run outlives the response but keeps
	// its request and correlation ids for logging.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	stop := context.AfterFunc(h.runCtx, cancel)
	logger := logging.CtxWith(ctx).Logger()

	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		defer stop()
		defer cancel()
		if _, err := h.engine.Run(ctx); err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				logger.Info().Msg("Triggered run skipped, another run is in progress")
				return
			}
			logger.Error().Err(err).Msg("Triggered run failed")
		}
	}()

	logger.Info().Msg("Recommendation run triggered via API")
	respondSuccess(w, http.StatusAccepted, map[string]string{"message": "run started"}, start)
}

// ListRuns returns persisted runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireHistory(w) {
		return
	}

	q := runsQuery{
		Limit:  getIntParam(r, "limit", 20),
		Offset: getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	runs, err := h.history.ListRuns(r.Context(), q.Limit, q.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabase, "Failed to list runs", err)
		return
	}
	total, err := h.history.CountRuns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabase, "Failed to count runs", err)
		return
	}

	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   runs,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Total:       &total,
			Limit:       q.Limit,
			Offset:      q.Offset,
		},
	})
}

// GetRun returns one persisted run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireHistory(w) {
		return
	}

	runID := chi.URLParam(r, "runID")
	run, err := h.history.GetRun(r.Context(), runID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "Run not found", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, codeDatabase, "Failed to load run", err)
		return
	}
	respondSuccess(w, http.StatusOK, run, start)
}

// UserRows returns the rows produced for a user by their latest run,
// optionally filtered by kind.
func (h *Handler) UserRows(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireHistory(w) {
		return
	}

	q := rowsQuery{
		UserID: chi.URLParam(r, "userID"),
		Kind:   r.URL.Query().Get("kind"),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	rows, err := h.history.LatestRows(r.Context(), q.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "No recommendations for user", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, codeDatabase, "Failed to load rows", err)
		return
	}

	if q.Kind != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if string(row.Kind) == q.Kind {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	respondSuccess(w, http.StatusOK, rows, start)
}

func (h *Handler) requireHistory(w http.ResponseWriter) bool {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Run history is not configured", nil)
		return false
	}
	return true
}
