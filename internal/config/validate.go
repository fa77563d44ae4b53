// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/localrecs/internal/recommend/pipeline"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateJellyfin(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateSchedule(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateJellyfin() error {
	if c.Jellyfin.URL == "" {
		return fmt.Errorf("JELLYFIN_URL is required")
	}
	if err := validateHTTPURL(c.Jellyfin.URL); err != nil {
		return fmt.Errorf("JELLYFIN_URL is invalid: %w", err)
	}
	if c.Jellyfin.APIKey == "" {
		return fmt.Errorf("JELLYFIN_API_KEY is required")
	}
	if c.Jellyfin.Timeout <= 0 {
		return fmt.Errorf("JELLYFIN_TIMEOUT must be positive, got %v", c.Jellyfin.Timeout)
	}
	if c.Jellyfin.RequestsPerSecond < 0 {
		return fmt.Errorf("JELLYFIN_REQUESTS_PER_SECOND must be non-negative, got %f", c.Jellyfin.RequestsPerSecond)
	}
	if c.Jellyfin.RequestsPerSecond > 0 && c.Jellyfin.Burst < 1 {
		return fmt.Errorf("JELLYFIN_BURST must be at least 1 when pacing is enabled, got %d", c.Jellyfin.Burst)
	}
	if len(c.Jellyfin.ItemTypes) == 0 {
		return fmt.Errorf("JELLYFIN_ITEM_TYPES must list at least one item type")
	}
	for _, t := range c.Jellyfin.ItemTypes {
		if t != "Movie" && t != "Series" {
			return fmt.Errorf("JELLYFIN_ITEM_TYPES contains unsupported type %q (allowed: Movie, Series)", t)
		}
	}
	if !strings.Contains(c.Jellyfin.CollectionNameTemplate, "{label}") {
		return fmt.Errorf("JELLYFIN_COLLECTION_NAME_TEMPLATE must contain {label}, got %q", c.Jellyfin.CollectionNameTemplate)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if err := c.Recommend.ToEngineConfig().Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if _, err := pipeline.NewUserFilter(c.Recommend.UserFilter); err != nil {
		return fmt.Errorf("RECS_USER_FILTER: %w", err)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("SCHEDULE_INTERVAL must be non-negative, got %v", c.Schedule.Interval)
	}
	if c.Schedule.Interval == 0 {
		if _, err := time.Parse("15:04", c.Schedule.DailyAt); err != nil {
			return fmt.Errorf("SCHEDULE_DAILY_AT must be HH:MM, got %q", c.Schedule.DailyAt)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.RetainRuns < 0 {
		return fmt.Errorf("DUCKDB_RETAIN_RUNS must be non-negative, got %d", c.Database.RetainRuns)
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks for an http(s) URL with a host.
func validateHTTPURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:8096, jellyfin.example.com)")
	}
	return nil
}
