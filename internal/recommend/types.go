// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package recommend

import (
	"iter"
	"time"

	"github.com/tomtom215/localrecs/internal/recommend/vectorize"
)

// ItemKind is the Jellyfin item type of a catalog entry.
type ItemKind string

const (
	// ItemKindMovie is a standalone film.
	ItemKindMovie ItemKind = "Movie"
	// ItemKindSeries is a TV series; episodes are not recommended individually.
	ItemKindSeries ItemKind = "Series"
)

// CatalogItem is a recommendable library item with the metadata used for
// feature extraction.
type CatalogItem struct {
	// ID is the Jellyfin item id.
	ID string `json:"id"`

	// Name is the display title.
	Name string `json:"name"`

	// Kind is the item type (Movie or Series).
	Kind ItemKind `json:"kind"`

	Genres  []string `json:"genres,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	People  []string `json:"people,omitempty"`
	Studios []string `json:"studios,omitempty"`

	// Overview is the plot summary.
	Overview string `json:"overview,omitempty"`

	// ProductionYear is informational only; it is not tokenized.
	ProductionYear int `json:"production_year,omitempty"`
}

// Tokens returns the item's feature token stream.
func (it *CatalogItem) Tokens() iter.Seq[string] {
	return vectorize.Tokenize(vectorize.Fields{
		Genres:   it.Genres,
		Tags:     it.Tags,
		People:   it.People,
		Studios:  it.Studios,
		Title:    it.Name,
		Overview: it.Overview,
	})
}

// PartialPlayThreshold is the played fraction at which a partial watch counts
// as a positive signal.
const PartialPlayThreshold = 0.4

// Interaction is one user's observed engagement with one catalog item.
type Interaction struct {
	// UserID is the Jellyfin user id.
	UserID string `json:"user_id"`

	// ItemID is the Jellyfin item id.
	ItemID string `json:"item_id"`

	// When is the UTC time of the interaction.
	When time.Time `json:"when"`

	// Finished is true when the item was played to completion.
	Finished bool `json:"finished"`

	// PlayedFraction is the resume position over the runtime, in [0, 1].
	PlayedFraction float64 `json:"played_fraction"`

	// Favorite is true when the user marked the item as a favorite or liked it.
	Favorite bool `json:"favorite"`

	// Rating01 is the user's rating scaled to [0, 1], nil when unrated.
	Rating01 *float64 `json:"rating01,omitempty"`
}

// SignalWeights controls how an interaction is turned into an interest signal
// and how fast that signal decays.
type SignalWeights struct {
	HalfLifeDays   int
	Finished       float64
	PartialOver40  float64
	FavoriteOrLike float64
	Rating         float64
}

// Signal returns the undecayed interest signal of the interaction. The terms
// are additive: a finished item with a resume position over 40% earns both.
func (i *Interaction) Signal(w SignalWeights) float64 {
	var s float64
	if i.Finished {
		s += w.Finished
	}
	if i.PlayedFraction >= PartialPlayThreshold {
		s += w.PartialOver40
	}
	if i.Favorite {
		s += w.FavoriteOrLike
	}
	var r float64
	if i.Rating01 != nil {
		r = min(max(*i.Rating01, 0), 1)
	}
	s += r * w.Rating
	return s
}

// User is a library user recommendations are generated for.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IsAdministrator bool   `json:"is_administrator"`
	IsDisabled      bool   `json:"is_disabled"`
	IsHidden        bool   `json:"is_hidden"`
}

// ScoredItem is a ranked candidate.
type ScoredItem struct {
	// ItemID is the Jellyfin item id.
	ItemID string `json:"item_id"`

	// Score is the final ranking score (cosine similarity, or a CF blend).
	Score float64 `json:"score"`
}

// RowKind identifies which recommendation strategy produced a row.
type RowKind string

const (
	// RowTopPicks ranks the whole catalog against the user's profile.
	RowTopPicks RowKind = "top_picks"
	// RowBecauseYouWatched ranks items similar to one finished item.
	RowBecauseYouWatched RowKind = "because_you_watched"
)

// String returns the kind as stored and logged.
func (k RowKind) String() string {
	return string(k)
}

// Row is one named recommendation list for one user.
type Row struct {
	// RunID identifies the run that produced the row.
	RunID string `json:"run_id"`

	// User is the row's owner.
	User User `json:"user"`

	// Kind is the strategy that produced the row.
	Kind RowKind `json:"kind"`

	// AnchorID is the finished item a because-you-watched row is built from.
	AnchorID string `json:"anchor_id,omitempty"`

	// Label is the human-readable row title, also used as collection name.
	Label string `json:"label"`

	// Items is the ranked list, best first.
	Items []ScoredItem `json:"items"`

	// DryRun marks rows that must not be written to the media server.
	DryRun bool `json:"dry_run"`

	// GeneratedAt is when the row was ranked.
	GeneratedAt time.Time `json:"generated_at"`
}

// ItemIDs returns the ranked item ids in order.
func (r *Row) ItemIDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ItemID
	}
	return ids
}

// DefaultAnchorTitle is used when a because-you-watched anchor has no name.
const DefaultAnchorTitle = "Title"

// TopPicksLabel returns the label of a user's top picks row.
func TopPicksLabel(userName string) string {
	return "Top picks for " + userName
}

// BecauseYouWatchedLabel returns the label of an item-to-item row.
func BecauseYouWatchedLabel(title string) string {
	if title == "" {
		title = DefaultAnchorTitle
	}
	return "Because you watched " + title
}
