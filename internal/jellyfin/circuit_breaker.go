// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/metrics"
)

// Ensure CircuitBreakerClient implements API
var _ API = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps an API with the circuit breaker pattern so a
// down or overloaded Jellyfin fails fast instead of stalling every user of a run.
//
// The breaker uses real time (via sony/gobreaker) for its interval and timeout.
// Tests should exercise the wrapped client directly or drive failures through
// an httptest server.
type CircuitBreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps client with a circuit breaker.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(client API) *CircuitBreakerClient {
	cbName := "jellyfin-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening Jellyfin circuit")
			}

			return shouldTrip
		},

		// Cancellation is the caller giving up, not Jellyfin failing.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] Jellyfin state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a Jellyfin API call with circuit breaker protection
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Jellyfin request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			counts := cbc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)

	return result, nil
}

// call runs fn through the breaker and restores its static result type.
func call[T any](cbc *CircuitBreakerClient, op string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cbc.execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type for %s", op)
	}
	return typed, nil
}

// Ping tests connectivity with circuit breaker protection
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// GetSystemInfo retrieves server information with circuit breaker protection
func (cbc *CircuitBreakerClient) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	return call(cbc, "GetSystemInfo", func() (*SystemInfo, error) {
		return cbc.client.GetSystemInfo(ctx)
	})
}

// GetUsers retrieves all users with circuit breaker protection
func (cbc *CircuitBreakerClient) GetUsers(ctx context.Context) ([]User, error) {
	return call(cbc, "GetUsers", func() ([]User, error) {
		return cbc.client.GetUsers(ctx)
	})
}

// GetItems lists library items with circuit breaker protection
func (cbc *CircuitBreakerClient) GetItems(ctx context.Context, userID string, itemTypes []string) ([]Item, error) {
	return call(cbc, "GetItems", func() ([]Item, error) {
		return cbc.client.GetItems(ctx, userID, itemTypes)
	})
}

// FindCollection looks up a collection by name with circuit breaker protection
func (cbc *CircuitBreakerClient) FindCollection(ctx context.Context, name string) (string, error) {
	return call(cbc, "FindCollection", func() (string, error) {
		return cbc.client.FindCollection(ctx, name)
	})
}

// CreateCollection creates a collection with circuit breaker protection
func (cbc *CircuitBreakerClient) CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error) {
	return call(cbc, "CreateCollection", func() (string, error) {
		return cbc.client.CreateCollection(ctx, name, itemIDs)
	})
}

// GetCollectionItemIDs lists collection children with circuit breaker protection
func (cbc *CircuitBreakerClient) GetCollectionItemIDs(ctx context.Context, collectionID string) ([]string, error) {
	return call(cbc, "GetCollectionItemIDs", func() ([]string, error) {
		return cbc.client.GetCollectionItemIDs(ctx, collectionID)
	})
}

// AddToCollection adds items with circuit breaker protection
func (cbc *CircuitBreakerClient) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.AddToCollection(ctx, collectionID, itemIDs)
	})
	return err
}

// RemoveFromCollection removes items with circuit breaker protection
func (cbc *CircuitBreakerClient) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.RemoveFromCollection(ctx, collectionID, itemIDs)
	})
	return err
}

// State returns the current circuit breaker state
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

// Counts returns the current circuit breaker counts
func (cbc *CircuitBreakerClient) Counts() gobreaker.Counts {
	return cbc.cb.Counts()
}

// Name returns the circuit breaker name
func (cbc *CircuitBreakerClient) Name() string {
	return cbc.name
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
