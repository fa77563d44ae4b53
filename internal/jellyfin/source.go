// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// Source reads the catalog, users and watch signals from Jellyfin.
// It satisfies the pipeline's CatalogSource and InteractionSource.
type Source struct {
	api       API
	itemTypes []string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSource creates a Source over api restricted to itemTypes.
func NewSource(api API, itemTypes []string, logger zerolog.Logger) *Source {
	if len(itemTypes) == 0 {
		itemTypes = []string{string(recommend.ItemKindMovie), string(recommend.ItemKindSeries)}
	}
	return &Source{
		api:       api,
		itemTypes: itemTypes,
		logger:    logger.With().Str("component", "jellyfin-source").Logger(),
		now:       time.Now,
	}
}

// Catalog lists every movie and series in the library.
func (s *Source) Catalog(ctx context.Context) ([]recommend.CatalogItem, error) {
	items, err := s.api.GetItems(ctx, "", s.itemTypes)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	catalog := make([]recommend.CatalogItem, 0, len(items))
	for i := range items {
		if items[i].ID == "" {
			continue
		}
		catalog = append(catalog, items[i].ToCatalogItem())
	}

	s.logger.Debug().Int("items", len(catalog)).Strs("types", s.itemTypes).Msg("Catalog loaded")
	return catalog, nil
}

// Users lists all Jellyfin users.
func (s *Source) Users(ctx context.Context) ([]recommend.User, error) {
	users, err := s.api.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]recommend.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToUser())
	}
	return out, nil
}

// Interactions returns the user's signals over catalog items, newest first.
// Items without any signal are omitted.
func (s *Source) Interactions(ctx context.Context, user recommend.User, catalog []recommend.CatalogItem) ([]recommend.Interaction, error) {
	items, err := s.api.GetItems(ctx, user.ID, s.itemTypes)
	if err != nil {
		return nil, fmt.Errorf("list items for user %s: %w", user.ID, err)
	}

	known := make(map[string]struct{}, len(catalog))
	for i := range catalog {
		known[catalog[i].ID] = struct{}{}
	}

	now := s.now()
	interactions := make([]recommend.Interaction, 0)
	var finished, favorites int
	for i := range items {
		if _, ok := known[items[i].ID]; !ok {
			continue
		}
		in, ok := InteractionFromItem(user.ID, &items[i], now)
		if !ok {
			continue
		}
		if in.Finished {
			finished++
		}
		if in.Favorite {
			favorites++
		}
		interactions = append(interactions, in)
	}
	SortNewestFirst(interactions)

	s.logger.Debug().
		Str("user", user.Name).
		Int("items", len(items)).
		Int("with_data", len(interactions)).
		Int("finished", finished).
		Int("favorites", favorites).
		Msg("User interactions")

	return interactions, nil
}

// Ready checks that Jellyfin answers.
func (s *Source) Ready(ctx context.Context) error {
	return s.api.Ping(ctx)
}
