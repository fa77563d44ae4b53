// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"time"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// User is a Jellyfin user as returned by GET /Users.
type User struct {
	ID     string      `json:"Id"`
	Name   string      `json:"Name"`
	Policy *UserPolicy `json:"Policy,omitempty"`
}

// UserPolicy holds the policy flags used for user selection.
type UserPolicy struct {
	IsAdministrator bool `json:"IsAdministrator"`
	IsDisabled      bool `json:"IsDisabled"`
	IsHidden        bool `json:"IsHidden"`
}

// Person is a cast or crew entry.
type Person struct {
	Name string `json:"Name"`
	Role string `json:"Role,omitempty"`
	Type string `json:"Type,omitempty"`
}

// NameIDPair is used for studios.
type NameIDPair struct {
	Name string `json:"Name"`
	ID   string `json:"Id,omitempty"`
}

// UserItemData is the per-user play state attached when EnableUserData is set.
type UserItemData struct {
	Played                bool       `json:"Played"`
	PlaybackPositionTicks int64      `json:"PlaybackPositionTicks"`
	IsFavorite            bool       `json:"IsFavorite"`
	Rating                *float64   `json:"Rating,omitempty"`
	LastPlayedDate        *time.Time `json:"LastPlayedDate,omitempty"`
}

// Item is a library item with the fields requested by the client.
type Item struct {
	ID             string        `json:"Id"`
	Name           string        `json:"Name"`
	Type           string        `json:"Type"`
	Genres         []string      `json:"Genres,omitempty"`
	Tags           []string      `json:"Tags,omitempty"`
	People         []Person      `json:"People,omitempty"`
	Studios        []NameIDPair  `json:"Studios,omitempty"`
	Overview       string        `json:"Overview,omitempty"`
	ProductionYear int           `json:"ProductionYear,omitempty"`
	RunTimeTicks   int64         `json:"RunTimeTicks,omitempty"`
	DateCreated    *time.Time    `json:"DateCreated,omitempty"`
	UserData       *UserItemData `json:"UserData,omitempty"`
}

// ItemsResponse is the paged envelope of the /Items endpoints.
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// CollectionCreatedResponse is returned by POST /Collections.
type CollectionCreatedResponse struct {
	ID string `json:"Id"`
}

// SystemInfo is the subset of /System/Info used for readiness.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// ToCatalogItem converts an Item into the engine's catalog representation.
func (it *Item) ToCatalogItem() recommend.CatalogItem {
	people := make([]string, 0, len(it.People))
	for i := range it.People {
		if it.People[i].Name != "" {
			people = append(people, it.People[i].Name)
		}
	}
	studios := make([]string, 0, len(it.Studios))
	for i := range it.Studios {
		if it.Studios[i].Name != "" {
			studios = append(studios, it.Studios[i].Name)
		}
	}

	kind := recommend.ItemKindMovie
	if it.Type == string(recommend.ItemKindSeries) {
		kind = recommend.ItemKindSeries
	}

	return recommend.CatalogItem{
		ID:             it.ID,
		Name:           it.Name,
		Kind:           kind,
		Genres:         it.Genres,
		Tags:           it.Tags,
		People:         people,
		Studios:        studios,
		Overview:       it.Overview,
		ProductionYear: it.ProductionYear,
	}
}

// ToUser converts a Jellyfin user into the engine's user representation.
func (u *User) ToUser() recommend.User {
	out := recommend.User{ID: u.ID, Name: u.Name}
	if u.Policy != nil {
		out.IsAdministrator = u.Policy.IsAdministrator
		out.IsDisabled = u.Policy.IsDisabled
		out.IsHidden = u.Policy.IsHidden
	}
	return out
}
