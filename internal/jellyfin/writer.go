// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/localrecs/internal/metrics"
	"github.com/tomtom215/localrecs/internal/recommend"
)

// DefaultNameTemplate scopes every collection to its user so that two users
// with the same anchor title never share a "Because you watched" collection.
const DefaultNameTemplate = "{label} ({user})"

// CollectionName renders template for row. Supported placeholders are
// {label}, {user}, {user_id} and {kind}.
func CollectionName(template string, row *recommend.Row) string {
	if template == "" {
		template = DefaultNameTemplate
	}
	r := strings.NewReplacer(
		"{label}", row.Label,
		"{user}", row.User.Name,
		"{user_id}", row.User.ID,
		"{kind}", row.Kind.String(),
	)
	return strings.TrimSpace(r.Replace(template))
}

// CollectionsWriter upserts recommendation rows as Jellyfin BoxSets.
// The collection's children are replaced with the row's items: missing ids
// are added and stale ids removed.
type CollectionsWriter struct {
	api      API
	template string
	logger   zerolog.Logger

	mu    sync.Mutex
	names map[string]*sync.Mutex
}

// NewCollectionsWriter creates a writer using the given name template.
func NewCollectionsWriter(api API, template string, logger zerolog.Logger) *CollectionsWriter {
	if template == "" {
		template = DefaultNameTemplate
	}
	return &CollectionsWriter{
		api:      api,
		template: template,
		logger:   logger.With().Str("component", "collections-writer").Logger(),
		names:    make(map[string]*sync.Mutex),
	}
}

// Upsert writes row to Jellyfin. Dry-run rows return without any request.
func (w *CollectionsWriter) Upsert(ctx context.Context, row recommend.Row) error {
	if row.DryRun {
		return nil
	}

	name := CollectionName(w.template, &row)
	if name == "" {
		return fmt.Errorf("empty collection name for user %s", row.User.ID)
	}

	// Templates without {user} or {user_id} map every user to one collection.
	lock := w.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	want := row.ItemIDs()

	id, err := w.api.FindCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("find collection %q: %w", name, err)
	}
	if id == "" {
		id, err = w.api.CreateCollection(ctx, name, want)
		if err != nil {
			return fmt.Errorf("create collection %q: %w", name, err)
		}
		metrics.RecordCollectionWrite("create")
		w.logger.Info().Str("collection", name).Str("id", id).Int("items", len(want)).Msg("Created collection")
		return nil
	}

	current, err := w.api.GetCollectionItemIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("list collection %q: %w", name, err)
	}

	add, remove := diffIDs(current, want)
	if len(add) > 0 {
		if err := w.api.AddToCollection(ctx, id, add); err != nil {
			return fmt.Errorf("add to collection %q: %w", name, err)
		}
		metrics.RecordCollectionWrite("add")
	}
	if len(remove) > 0 {
		if err := w.api.RemoveFromCollection(ctx, id, remove); err != nil {
			return fmt.Errorf("remove from collection %q: %w", name, err)
		}
		metrics.RecordCollectionWrite("remove")
	}

	w.logger.Debug().
		Str("collection", name).
		Int("added", len(add)).
		Int("removed", len(remove)).
		Int("items", len(want)).
		Msg("Updated collection")
	return nil
}

func (w *CollectionsWriter) lockFor(name string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.names[name]
	if !ok {
		l = &sync.Mutex{}
		w.names[name] = l
	}
	return l
}

// diffIDs returns the ids in want missing from current (in want order) and
// the ids in current absent from want (in current order).
func diffIDs(current, want []string) (add, remove []string) {
	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	keep := make(map[string]struct{}, len(want))
	for _, id := range want {
		keep[id] = struct{}{}
		if _, ok := have[id]; !ok {
			add = append(add, id)
		}
	}
	for _, id := range current {
		if _, ok := keep[id]; !ok {
			remove = append(remove, id)
		}
	}
	return add, remove
}
