// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

/*
client.go - Jellyfin REST API Client

Read side: users, library items with per-user play state.
Write side: BoxSet collections (find, create, list children, add, remove).

Every request carries the X-Emby-Token header and waits on the optional
request limiter. HTTP 429 is retried with exponential backoff, as are 502, 503
and 504 on reads. Writes are never retried on 5xx since the server may have
applied them.

API Reference: https://api.jellyfin.org/
*/

//nolint:staticcheck // File documentation, not package doc
package jellyfin

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/metrics"
)

// itemFields are the optional fields requested for library items.
const itemFields = "Genres,Tags,People,Studios,Overview,DateCreated"

const (
	defaultPageSize     = 500
	defaultIDChunkSize  = 100
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
)

// API defines the Jellyfin operations used by LocalRecs.
// Both Client and CircuitBreakerClient implement this interface.
type API interface {
	Ping(ctx context.Context) error
	GetSystemInfo(ctx context.Context) (*SystemInfo, error)
	GetUsers(ctx context.Context) ([]User, error)
	GetItems(ctx context.Context, userID string, itemTypes []string) ([]Item, error)
	FindCollection(ctx context.Context, name string) (string, error)
	CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error)
	GetCollectionItemIDs(ctx context.Context, collectionID string) ([]string, error)
	AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error
	RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error
}

// Ensure Client implements API
var _ API = (*Client)(nil)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration

	// RequestsPerSecond paces requests. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client provides access to the Jellyfin REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	pageSize       int
	idChunkSize    int
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a new Jellyfin API client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, cfg.Burst))
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		httpClient:     httpClient,
		limiter:        limiter,
		pageSize:       defaultPageSize,
		idChunkSize:    defaultIDChunkSize,
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBackoff,
	}
}

// requestConfig holds configuration for building HTTP requests
type requestConfig struct {
	operation string
	method    string
	path      string
	query     url.Values
	// accepted lists the success status codes; empty means 200 only.
	accepted []int
}

// StatusError is returned when Jellyfin answers with an unexpected status.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jellyfin %s returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("jellyfin %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Ping tests connectivity to the Jellyfin server
func (c *Client) Ping(ctx context.Context) error {
	return c.doRequest(ctx, requestConfig{
		operation: "ping",
		method:    http.MethodGet,
		path:      "/System/Ping",
	}, nil)
}

// GetSystemInfo retrieves Jellyfin server system information
func (c *Client) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.doRequest(ctx, requestConfig{
		operation: "system_info",
		method:    http.MethodGet,
		path:      "/System/Info",
	}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUsers retrieves all users from Jellyfin
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.doRequest(ctx, requestConfig{
		operation: "users",
		method:    http.MethodGet,
		path:      "/Users",
	}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetItems lists library items of the given types, following pagination.
// When userID is set the items carry that user's UserData.
func (c *Client) GetItems(ctx context.Context, userID string, itemTypes []string) ([]Item, error) {
	query := url.Values{}
	query.Set("Recursive", "true")
	query.Set("IncludeItemTypes", strings.Join(itemTypes, ","))
	query.Set("Fields", itemFields)
	if userID != "" {
		query.Set("userId", userID)
		query.Set("EnableUserData", "true")
	}
	return c.pagedItems(ctx, "items", query)
}

// FindCollection returns the id of the BoxSet named exactly name, or "" if none exists.
func (c *Client) FindCollection(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("Recursive", "true")
	query.Set("IncludeItemTypes", "BoxSet")
	query.Set("SearchTerm", name)

	items, err := c.pagedItems(ctx, "collection_find", query)
	if err != nil {
		return "", err
	}
	for i := range items {
		if items[i].Name == name {
			return items[i].ID, nil
		}
	}
	return "", nil
}

// CreateCollection creates a BoxSet seeded with itemIDs and returns its id.
func (c *Client) CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error) {
	query := url.Values{}
	query.Set("Name", name)
	query.Set("IsLocked", "true")
	first, rest := splitFirstChunk(itemIDs, c.idChunkSize)
	if len(first) > 0 {
		query.Set("Ids", strings.Join(first, ","))
	}

	var created CollectionCreatedResponse
	if err := c.doRequest(ctx, requestConfig{
		operation: "collection_create",
		method:    http.MethodPost,
		path:      "/Collections",
		query:     query,
	}, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("jellyfin collection_create returned no id for %q", name)
	}

	if len(rest) > 0 {
		if err := c.AddToCollection(ctx, created.ID, rest); err != nil {
			return created.ID, err
		}
	}
	return created.ID, nil
}

// GetCollectionItemIDs lists the ids of a collection's children.
func (c *Client) GetCollectionItemIDs(ctx context.Context, collectionID string) ([]string, error) {
	query := url.Values{}
	query.Set("ParentId", collectionID)

	items, err := c.pagedItems(ctx, "collection_items", query)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	return ids, nil
}

// AddToCollection adds items to a collection.
func (c *Client) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	return c.mutateCollection(ctx, "collection_add", http.MethodPost, collectionID, itemIDs)
}

// RemoveFromCollection removes items from a collection.
func (c *Client) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	return c.mutateCollection(ctx, "collection_remove", http.MethodDelete, collectionID, itemIDs)
}

func (c *Client) mutateCollection(ctx context.Context, operation, method, collectionID string, itemIDs []string) error {
	path := "/Collections/" + url.PathEscape(collectionID) + "/Items"
	for start := 0; start < len(itemIDs); start += c.idChunkSize {
		end := min(start+c.idChunkSize, len(itemIDs))
		query := url.Values{}
		query.Set("Ids", strings.Join(itemIDs[start:end], ","))
		if err := c.doRequest(ctx, requestConfig{
			operation: operation,
			method:    method,
			path:      path,
			query:     query,
			accepted:  []int{http.StatusOK, http.StatusNoContent},
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

// pagedItems walks StartIndex/Limit pages of an /Items query.
func (c *Client) pagedItems(ctx context.Context, operation string, base url.Values) ([]Item, error) {
	var all []Item
	for start := 0; ; {
		query := maps.Clone(base)
		query.Set("StartIndex", strconv.Itoa(start))
		query.Set("Limit", strconv.Itoa(c.pageSize))

		var page ItemsResponse
		if err := c.doRequest(ctx, requestConfig{
			operation: operation,
			method:    http.MethodGet,
			path:      "/Items",
			query:     query,
		}, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		start += len(page.Items)
		if len(page.Items) == 0 || start >= page.TotalRecordCount {
			return all, nil
		}
	}
}

// doRequest executes a request and decodes the JSON response into result when non-nil.
func (c *Client) doRequest(ctx context.Context, cfg requestConfig, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordJellyfinRequest(cfg.operation, time.Since(start), err)
	}()

	resp, err := c.doRequestWithRateLimit(ctx, cfg)
	if err != nil {
		return fmt.Errorf("jellyfin %s request failed: %w", cfg.operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !statusAccepted(resp.StatusCode, cfg.accepted) {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return &StatusError{Operation: cfg.operation, StatusCode: resp.StatusCode}
		}
		return &StatusError{
			Operation:  cfg.operation,
			StatusCode: resp.StatusCode,
			Body:       logging.Truncate(strings.TrimSpace(string(body)), 200),
		}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode jellyfin %s: %w", cfg.operation, err)
		}
	}
	return nil
}

// doRequestWithRateLimit paces the request and retries retryable statuses
// with exponential backoff, honoring Retry-After.
func (c *Client) doRequestWithRateLimit(ctx context.Context, cfg requestConfig) (*http.Response, error) {
	reqURL := c.baseURL + cfg.path
	if len(cfg.query) > 0 {
		reqURL += "?" + cfg.query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, cfg.method, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if !retryable(cfg.method, resp.StatusCode) {
			return resp, nil
		}
		_ = resp.Body.Close()

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%s: giving up after %d retries (HTTP %d)", cfg.operation, c.maxRetries, resp.StatusCode)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		logging.Ctx(ctx).Debug().
			Str("operation", cfg.operation).
			Int("attempt", attempt+1).
			Int("status", resp.StatusCode).
			Dur("delay", delay).
			Msg("Jellyfin request failed transiently, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// retryable reports whether a response should be retried. 5xx is only
// retried for reads.
func retryable(method string, code int) bool {
	switch code {
	case http.StatusTooManyRequests:
		return true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return method == http.MethodGet
	default:
		return false
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("X-Emby-Client", "LocalRecs")
	req.Header.Set("X-Emby-Device-Name", "LocalRecs")
	req.Header.Set("X-Emby-Device-Id", "localrecs")
	req.Header.Set("X-Emby-Client-Version", "1.0.0")
	req.Header.Set("Accept", "application/json")
}

func statusAccepted(code int, accepted []int) bool {
	if len(accepted) == 0 {
		return code == http.StatusOK
	}
	return slices.Contains(accepted, code)
}

func splitFirstChunk(ids []string, size int) (first, rest []string) {
	if len(ids) <= size {
		return ids, nil
	}
	return ids[:size], ids[size:]
}
