// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package pipeline

import (
	"context"
	"errors"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// CatalogSource lists the recommendable library items.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]recommend.CatalogItem, error)
}

// InteractionSource lists users and their watch history.
type InteractionSource interface {
	Users(ctx context.Context) ([]recommend.User, error)

	// Interactions returns the user's interactions with catalog items,
	// newest first.
	Interactions(ctx context.Context, user recommend.User, catalog []recommend.CatalogItem) ([]recommend.Interaction, error)
}

// ResultConsumer receives every non-empty row a run produces.
// Rows marked DryRun must not be written to the media server.
type ResultConsumer interface {
	Upsert(ctx context.Context, row recommend.Row) error
}

// RunRecorder is implemented by consumers that persist run summaries.
// RecordRun is called once per run, after the last row.
type RunRecorder interface {
	RecordRun(ctx context.Context, summary *RunSummary) error
}

// ResultConsumerFunc adapts a function to ResultConsumer.
type ResultConsumerFunc func(ctx context.Context, row recommend.Row) error

// Upsert calls f.
func (f ResultConsumerFunc) Upsert(ctx context.Context, row recommend.Row) error {
	return f(ctx, row)
}

// MultiConsumer fans a row out to several consumers. Every consumer sees the
// row even if an earlier one fails; the errors are joined.
type MultiConsumer []ResultConsumer

// Upsert implements ResultConsumer.
func (m MultiConsumer) Upsert(ctx context.Context, row recommend.Row) error {
	var errs []error
	for _, c := range m {
		if err := c.Upsert(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
