// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

// Package services provides Suture service wrappers for LocalRecs components.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/localrecs/internal/recommend/pipeline"
)

// RecommendEngine is the part of the engine the scheduler drives.
type RecommendEngine interface {
	Run(ctx context.Context) (*pipeline.RunSummary, error)
}

// RecommendServiceConfig holds the run schedule.
type RecommendServiceConfig struct {
	// RunOnStartup triggers a run as soon as the service starts.
	RunOnStartup bool

	// DailyAt is the local HH:MM of the daily run. Ignored when Interval
	// is set.
	DailyAt string

	// Interval runs on a fixed period instead of daily.
	Interval time.Duration
}

// RecommendService runs the recommendation task on a schedule.
type RecommendService struct {
	engine  RecommendEngine
	config  RecommendServiceConfig
	logger  zerolog.Logger
	name    string
	hour    int
	minute  int

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewRecommendService creates a new recommendation service. DailyAt must
// parse as HH:MM unless Interval is set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendService(engine RecommendEngine, cfg RecommendServiceConfig, logger zerolog.Logger) (*RecommendService, error) {
	s := &RecommendService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "recommend").Logger(),
		name:   "recommend-service",
		now:    time.Now,
		after:  time.After,
	}
	if cfg.Interval <= 0 {
		at, err := time.Parse("15:04", cfg.DailyAt)
		if err != nil {
			return nil, fmt.Errorf("invalid daily run time %q: %w", cfg.DailyAt, err)
		}
		s.hour, s.minute = at.Hour(), at.Minute()
	}
	return s, nil
}

// Serve implements suture.Service.
func (s *RecommendService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Str("daily_at", s.config.DailyAt).
		Dur("interval", s.config.Interval).
		Msg("Recommendation scheduler starting")

	if s.config.RunOnStartup {
		s.runOnce(ctx, "startup")
	}

	for {
		next := s.nextRun(s.now())
		s.logger.Debug().Time("next_run", next).Msg("Next recommendation run scheduled")

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Recommendation scheduler shutting down")
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
			s.runOnce(ctx, "schedule")
		}
	}
}

// nextRun returns the next scheduled time strictly after now. Daily runs
// land on the wall-clock HH:MM, including across DST changes.
func (s *RecommendService) nextRun(now time.Time) time.Time {
	if s.config.Interval > 0 {
		return now.Add(s.config.Interval)
	}
	y, m, d := now.Date()
	next := time.Date(y, m, d, s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, s.hour, s.minute, 0, 0, now.Location())
	}
	return next
}

// runOnce runs the engine and logs the outcome. Failures never stop the
// scheduler; the next run retries.
func (s *RecommendService) runOnce(ctx context.Context, trigger string) {
	summary, err := s.engine.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.logger.Info().Str("trigger", trigger).Msg("Scheduled run skipped, another run is in progress")
	case err != nil:
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("Recommendation run failed")
	case summary != nil:
		s.logger.Info().
			Str("trigger", trigger).
			Str("run_id", summary.RunID).
			Int("users", summary.Users).
			Dur("duration", summary.Duration()).
			Msg("Recommendation run complete")
	}
}

// String returns the service name for logging.
func (s *RecommendService) String() string {
	return s.name
}
