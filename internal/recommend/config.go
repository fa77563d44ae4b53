// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for a recommendation run.
type Config struct {
	// MaxItemsPerRow bounds every ranked row. Values below 1 act as 1.
	// Default: 30.
	MaxItemsPerRow int `json:"max_items_per_row"`

	// RecentItemsToLearnFrom is how many of the newest interactions feed the
	// profile. Values below 1 act as 1.
	// Default: 50.
	RecentItemsToLearnFrom int `json:"recent_items_to_learn_from"`

	// HalfLifeDays is the decay constant of the profile. Values below 1 act as 1.
	// Default: 30.
	HalfLifeDays int `json:"half_life_days"`

	// FinishedWeight is the signal for a completed item.
	// Default: 1.0.
	FinishedWeight float64 `json:"finished_weight"`

	// PartialOver40Weight is the signal for a resume position of at least 40%.
	// Default: 0.5.
	PartialOver40Weight float64 `json:"partial_over_40_weight"`

	// FavoriteOrLikeWeight is the signal for a favorite.
	// Default: 0.25.
	FavoriteOrLikeWeight float64 `json:"favorite_or_like_weight"`

	// RatingWeight scales the user's [0, 1] rating.
	// Default: 0.1.
	RatingWeight float64 `json:"rating_weight"`

	// MinimumScoreThreshold drops candidates scoring below it.
	// Default: 0.05.
	MinimumScoreThreshold float64 `json:"minimum_score_threshold"`

	// CreateTopPicksRow enables the per-user "Top picks" row.
	// Default: true.
	CreateTopPicksRow bool `json:"create_top_picks_row"`

	// CreateBecauseRows enables "Because you watched" rows.
	// Default: true.
	CreateBecauseRows bool `json:"create_because_rows"`

	// BecauseRowsPerUser caps how many finished items become anchors.
	// Default: 5.
	BecauseRowsPerUser int `json:"because_rows_per_user"`

	// DryRun ranks and logs but never writes to the media server.
	// Default: false.
	DryRun bool `json:"dry_run"`

	// Concurrency is how many users are processed at once.
	// Default: 1.
	Concurrency int `json:"concurrency"`

	// UserFilter is an optional CEL expression over `user` selecting who gets
	// recommendations, e.g. `!user.is_disabled && user.name != "guest"`.
	UserFilter string `json:"user_filter,omitempty"`

	// RunTimeout bounds a whole run.
	// Default: 30m.
	RunTimeout time.Duration `json:"run_timeout"`

	// CF configures the optional collaborative-filtering blend.
	CF CFConfig `json:"cf"`
}

// CFConfig configures the optional collaborative-filtering enhancement.
type CFConfig struct {
	// Enabled turns on ALS training and score blending.
	// Default: false.
	Enabled bool `json:"enabled"`

	// BlendWeight is the CF share of the final score: (1-w)*content + w*cf.
	// Default: 0.5.
	BlendWeight float64 `json:"blend_weight"`

	// Factors is the latent dimension.
	// Default: 32.
	Factors int `json:"factors"`

	// Iterations is the number of ALS sweeps.
	// Default: 10.
	Iterations int `json:"iterations"`

	// Regularization is the L2 penalty.
	// Default: 0.01.
	Regularization float64 `json:"regularization"`

	// Alpha scales implicit confidence: c = 1 + alpha*signal.
	// Default: 40.
	Alpha float64 `json:"alpha"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxItemsPerRow:         30,
		RecentItemsToLearnFrom: 50,
		HalfLifeDays:           30,
		FinishedWeight:         1.0,
		PartialOver40Weight:    0.5,
		FavoriteOrLikeWeight:   0.25,
		RatingWeight:           0.1,
		MinimumScoreThreshold:  0.05,
		CreateTopPicksRow:      true,
		CreateBecauseRows:      true,
		BecauseRowsPerUser:     5,
		DryRun:                 false,
		Concurrency:            1,
		RunTimeout:             30 * time.Minute,
		CF: CFConfig{
			Enabled:        false,
			BlendWeight:    0.5,
			Factors:        32,
			Iterations:     10,
			Regularization: 0.01,
			Alpha:          40.0,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.FinishedWeight < 0 {
		return fmt.Errorf("finished_weight must be non-negative, got %f", c.FinishedWeight)
	}
	if c.PartialOver40Weight < 0 {
		return fmt.Errorf("partial_over_40_weight must be non-negative, got %f", c.PartialOver40Weight)
	}
	if c.FavoriteOrLikeWeight < 0 {
		return fmt.Errorf("favorite_or_like_weight must be non-negative, got %f", c.FavoriteOrLikeWeight)
	}
	if c.RatingWeight < 0 {
		return fmt.Errorf("rating_weight must be non-negative, got %f", c.RatingWeight)
	}
	if c.MinimumScoreThreshold < -1 || c.MinimumScoreThreshold > 1 {
		return fmt.Errorf("minimum_score_threshold must be in [-1, 1], got %f", c.MinimumScoreThreshold)
	}
	if c.BecauseRowsPerUser < 0 {
		return fmt.Errorf("because_rows_per_user must be non-negative, got %d", c.BecauseRowsPerUser)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %v", c.RunTimeout)
	}

	if c.CF.BlendWeight < 0 || c.CF.BlendWeight > 1 {
		return fmt.Errorf("cf.blend_weight must be in [0, 1], got %f", c.CF.BlendWeight)
	}
	if c.CF.Enabled {
		if c.CF.Factors < 1 {
			return fmt.Errorf("cf.factors must be positive, got %d", c.CF.Factors)
		}
		if c.CF.Iterations < 1 {
			return fmt.Errorf("cf.iterations must be positive, got %d", c.CF.Iterations)
		}
		if c.CF.Regularization < 0 {
			return fmt.Errorf("cf.regularization must be non-negative, got %f", c.CF.Regularization)
		}
		if c.CF.Alpha < 0 {
			return fmt.Errorf("cf.alpha must be non-negative, got %f", c.CF.Alpha)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All fields are value types.
	clone := *c
	return &clone
}

// SignalWeights returns the profile weights derived from the configuration.
func (c *Config) SignalWeights() SignalWeights {
	return SignalWeights{
		HalfLifeDays:   c.HalfLifeDays,
		Finished:       c.FinishedWeight,
		PartialOver40:  c.PartialOver40Weight,
		FavoriteOrLike: c.FavoriteOrLikeWeight,
		Rating:         c.RatingWeight,
	}
}

// RowLimit returns the effective per-row item cap.
func (c *Config) RowLimit() int {
	return max(1, c.MaxItemsPerRow)
}

// HistoryLimit returns the effective number of interactions to learn from.
func (c *Config) HistoryLimit() int {
	return max(1, c.RecentItemsToLearnFrom)
}
