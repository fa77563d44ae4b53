// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"slices"
	"time"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// HasSignal reports whether the user data carries any watch signal.
func (d *UserItemData) HasSignal() bool {
	return d != nil && (d.Played || d.PlaybackPositionTicks > 0 || d.IsFavorite || d.Rating != nil)
}

// InteractionFromItem derives an interaction from an item's UserData.
// The second result is false when the item carries no signal for the user.
//
// Interaction time is LastPlayedDate, else DateCreated, else now. The played
// fraction is position over runtime clamped to [0, 1]; the rating is mapped
// from Jellyfin's 0..10 scale to [0, 1].
func InteractionFromItem(userID string, item *Item, now time.Time) (recommend.Interaction, bool) {
	data := item.UserData
	if !data.HasSignal() {
		return recommend.Interaction{}, false
	}

	when := now
	switch {
	case data.LastPlayedDate != nil && !data.LastPlayedDate.IsZero():
		when = *data.LastPlayedDate
	case item.DateCreated != nil && !item.DateCreated.IsZero():
		when = *item.DateCreated
	}

	var fraction float64
	if data.PlaybackPositionTicks > 0 && item.RunTimeTicks > 0 {
		fraction = clamp01(float64(data.PlaybackPositionTicks) / float64(item.RunTimeTicks))
	}

	var rating *float64
	if data.Rating != nil {
		r := clamp01(*data.Rating / 10.0)
		rating = &r
	}

	return recommend.Interaction{
		UserID:         userID,
		ItemID:         item.ID,
		When:           when.UTC(),
		Finished:       data.Played,
		PlayedFraction: fraction,
		Favorite:       data.IsFavorite,
		Rating01:       rating,
	}, true
}

// SortNewestFirst orders interactions by time descending, keeping input order for ties.
func SortNewestFirst(interactions []recommend.Interaction) {
	slices.SortStableFunc(interactions, func(a, b recommend.Interaction) int {
		return b.When.Compare(a.When)
	})
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
