// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"context"
	"io"
	"net/http"
	"slices"
	"testing"

	"github.com/tomtom215/localrecs/internal/logging"
	"github.com/tomtom215/localrecs/internal/recommend"
)

func testRow(label string, ids ...string) recommend.Row {
	items := make([]recommend.ScoredItem, 0, len(ids))
	for i, id := range ids {
		items = append(items, recommend.ScoredItem{ItemID: id, Score: 1 - float64(i)*0.1})
	}
	return recommend.Row{
		User:  recommend.User{ID: "u1", Name: "alice"},
		Kind:  recommend.RowTopPicks,
		Label: label,
		Items: items,
	}
}

func TestCollectionName(t *testing.T) {
	row := testRow("Top picks for alice")

	tests := []struct {
		template string
		want     string
	}{
		{"", "Top picks for alice (alice)"},
		{"{label}", "Top picks for alice"},
		{"{label} [{user_id}]", "Top picks for alice [u1]"},
		{"{kind}: {user}", "top_picks: alice"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			if got := CollectionName(tt.template, &row); got != tt.want {
				t.Errorf("CollectionName(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestDiffIDs(t *testing.T) {
	add, remove := diffIDs([]string{"a", "b", "c"}, []string{"c", "d", "a", "e"})

	if !slices.Equal(add, []string{"d", "e"}) {
		t.Errorf("add = %v, want [d e]", add)
	}
	if !slices.Equal(remove, []string{"b"}) {
		t.Errorf("remove = %v, want [b]", remove)
	}

	add, remove = diffIDs([]string{"x"}, []string{"x"})
	if len(add) != 0 || len(remove) != 0 {
		t.Errorf("identical sets: add = %v, remove = %v", add, remove)
	}
}

func TestCollectionsWriter_CreatesCollection(t *testing.T) {
	fake, srv := newFakeJellyfin(t)
	w := NewCollectionsWriter(newTestClient(srv), "{label}", logging.NewTestLogger(io.Discard))

	if err := w.Upsert(context.Background(), testRow("Top picks for alice", "m1", "m2")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	c := fake.collectionByName("Top picks for alice")
	if c == nil {
		t.Fatal("collection was not created")
	}
	if !slices.Equal(c.children, []string{"m1", "m2"}) {
		t.Errorf("children = %v, want [m1 m2]", c.children)
	}
}

func TestCollectionsWriter_ReplacesChildren(t *testing.T) {
	fake, srv := newFakeJellyfin(t)
	fake.addCollection("Because you watched Alien", "old1", "m2", "old2")
	w := NewCollectionsWriter(newTestClient(srv), "{label}", logging.NewTestLogger(io.Discard))

	row := testRow("Because you watched Alien", "m2", "m3")
	row.Kind = recommend.RowBecauseYouWatched
	if err := w.Upsert(context.Background(), row); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	c := fake.collectionByName("Because you watched Alien")
	slices.Sort(c.children)
	if !slices.Equal(c.children, []string{"m2", "m3"}) {
		t.Errorf("children = %v, want [m2 m3]", c.children)
	}
	if got := fake.countRequests(http.MethodPost); got != 1 {
		t.Errorf("POST requests = %d, want 1 (add only)", got)
	}
	if got := fake.countRequests(http.MethodDelete); got != 1 {
		t.Errorf("DELETE requests = %d, want 1", got)
	}
}

func TestCollectionsWriter_UnchangedRowWritesNothing(t *testing.T) {
	fake, srv := newFakeJellyfin(t)
	fake.addCollection("Top picks for alice", "m1", "m2")
	w := NewCollectionsWriter(newTestClient(srv), "{label}", logging.NewTestLogger(io.Discard))

	if err := w.Upsert(context.Background(), testRow("Top picks for alice", "m2", "m1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n := fake.countRequests(http.MethodPost) + fake.countRequests(http.MethodDelete); n != 0 {
		t.Errorf("mutating requests = %d, want 0", n)
	}
}

func TestCollectionsWriter_DefaultTemplateKeepsUsersApart(t *testing.T) {
	fake, srv := newFakeJellyfin(t)
	w := NewCollectionsWriter(newTestClient(srv), "", logging.NewTestLogger(io.Discard))

	alice := testRow("Because you watched Alien", "m1", "m2")
	alice.Kind = recommend.RowBecauseYouWatched
	bob := testRow("Because you watched Alien", "m9")
	bob.Kind = recommend.RowBecauseYouWatched
	bob.User = recommend.User{ID: "u2", Name: "bob"}

	for _, row := range []recommend.Row{alice, bob} {
		if err := w.Upsert(context.Background(), row); err != nil {
			t.Fatalf("Upsert(%s) error = %v", row.User.Name, err)
		}
	}

	tests := []struct {
		collection string
		want       []string
	}{
		{"Because you watched Alien (alice)", []string{"m1", "m2"}},
		{"Because you watched Alien (bob)", []string{"m9"}},
	}
	for _, tt := range tests {
		c := fake.collectionByName(tt.collection)
		if c == nil {
			t.Errorf("collection %q was not created", tt.collection)
			continue
		}
		if !slices.Equal(c.children, tt.want) {
			t.Errorf("%q children = %v, want %v", tt.collection, c.children, tt.want)
		}
	}
}

func TestCollectionsWriter_DryRunIssuesNoRequests(t *testing.T) {
	fake, srv := newFakeJellyfin(t)
	w := NewCollectionsWriter(newTestClient(srv), "", logging.NewTestLogger(io.Discard))

	row := testRow("Top picks for alice", "m1")
	row.DryRun = true
	if err := w.Upsert(context.Background(), row); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	fake.mu.Lock()
	n := len(fake.requests)
	fake.mu.Unlock()
	if n != 0 {
		t.Errorf("requests = %d, want 0 in dry run", n)
	}
}
