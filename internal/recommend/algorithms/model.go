// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package algorithms

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrNotTrained is returned when a model is queried before training.
var ErrNotTrained = errors.New("model not trained")

// modelState guards a trainable model. Train holds the write lock, Predict
// and the accessors the read lock.
type modelState struct {
	mu        sync.RWMutex
	trained   bool
	trainTime time.Duration
}

// Trained reports whether Train has completed.
func (s *modelState) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trained
}

// TrainDuration is how long the last completed Train took.
func (s *modelState) TrainDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trainTime
}

// markTrained must be called with mu held for writing.
func (s *modelState) markTrained(started time.Time) {
	s.trained = true
	s.trainTime = time.Since(started)
}

// normalizeScores rescales scores in place to [0, 1]. Equal scores all
// become 0.5.
func normalizeScores(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, score := range scores {
		lo = min(lo, score)
		hi = max(hi, score)
	}

	span := hi - lo
	for id, score := range scores {
		if span == 0 {
			scores[id] = 0.5
			continue
		}
		scores[id] = (score - lo) / span
	}
	return scores
}

func canceled(ctx context.Context) bool {
	return ctx.Err() != nil
}
