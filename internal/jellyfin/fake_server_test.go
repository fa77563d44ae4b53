// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package jellyfin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

const testAPIKey = "test-api-key"

// fakeJellyfin is an in-memory Jellyfin serving the endpoints the client uses.
type fakeJellyfin struct {
	t *testing.T

	mu          sync.Mutex
	users       []User
	items       []Item
	userData    map[string]map[string]*UserItemData // user -> item -> data
	collections map[string]*fakeCollection
	nextID      int
	requests    []string // "METHOD /path"
}

type fakeCollection struct {
	id       string
	name     string
	children []string
}

func newFakeJellyfin(t *testing.T) (*fakeJellyfin, *httptest.Server) {
	t.Helper()
	f := &fakeJellyfin{
		t:           t,
		userData:    make(map[string]map[string]*UserItemData),
		collections: make(map[string]*fakeCollection),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(ClientConfig{BaseURL: srv.URL + "/", APIKey: testAPIKey})
	c.retryBaseDelay = 0
	return c
}

func (f *fakeJellyfin) setUserData(userID, itemID string, d *UserItemData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userData[userID] == nil {
		f.userData[userID] = make(map[string]*UserItemData)
	}
	f.userData[userID][itemID] = d
}

func (f *fakeJellyfin) addCollection(name string, children ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("col-%d", f.nextID)
	f.collections[id] = &fakeCollection{id: id, name: name, children: children}
	return id
}

func (f *fakeJellyfin) collectionByName(name string) *fakeCollection {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.collections {
		if c.name == name {
			cp := *c
			cp.children = slices.Clone(c.children)
			return &cp
		}
	}
	return nil
}

func (f *fakeJellyfin) countRequests(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, method+" ") {
			n++
		}
	}
	return n
}

func (f *fakeJellyfin) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.Header.Get("X-Emby-Token") != testAPIKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/System/Ping":
		_, _ = w.Write([]byte(`"Jellyfin Server"`))
	case r.Method == http.MethodGet && r.URL.Path == "/System/Info":
		f.writeJSON(w, SystemInfo{ServerName: "fake", Version: "10.10.0", ID: "srv"})
	case r.Method == http.MethodGet && r.URL.Path == "/Users":
		f.writeJSON(w, f.users)
	case r.Method == http.MethodGet && r.URL.Path == "/Items":
		f.serveItems(w, q)
	case r.Method == http.MethodPost && r.URL.Path == "/Collections":
		f.nextID++
		id := fmt.Sprintf("col-%d", f.nextID)
		f.collections[id] = &fakeCollection{id: id, name: q.Get("Name"), children: splitIDs(q.Get("Ids"))}
		f.writeJSON(w, CollectionCreatedResponse{ID: id})
	case strings.HasPrefix(r.URL.Path, "/Collections/") && strings.HasSuffix(r.URL.Path, "/Items"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/Collections/"), "/Items")
		c, ok := f.collections[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		ids := splitIDs(q.Get("Ids"))
		switch r.Method {
		case http.MethodPost:
			for _, id := range ids {
				if !slices.Contains(c.children, id) {
					c.children = append(c.children, id)
				}
			}
		case http.MethodDelete:
			c.children = slices.DeleteFunc(c.children, func(id string) bool { return slices.Contains(ids, id) })
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeJellyfin) serveItems(w http.ResponseWriter, q map[string][]string) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	var all []Item
	switch {
	case get("ParentId") != "":
		c, ok := f.collections[get("ParentId")]
		if ok {
			for _, id := range c.children {
				all = append(all, Item{ID: id})
			}
		}
	case get("IncludeItemTypes") == "BoxSet":
		term := strings.ToLower(get("SearchTerm"))
		ids := make([]string, 0, len(f.collections))
		for id := range f.collections {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			c := f.collections[id]
			if strings.Contains(strings.ToLower(c.name), term) {
				all = append(all, Item{ID: c.id, Name: c.name, Type: "BoxSet"})
			}
		}
	default:
		types := splitIDs(get("IncludeItemTypes"))
		userID := get("userId")
		for _, it := range f.items {
			if len(types) > 0 && !slices.Contains(types, it.Type) {
				continue
			}
			if userID != "" {
				it.UserData = f.userData[userID][it.ID]
			}
			all = append(all, it)
		}
	}

	start, _ := strconv.Atoi(get("StartIndex"))
	limit, _ := strconv.Atoi(get("Limit"))
	if limit <= 0 {
		limit = len(all)
	}
	start = min(start, len(all))
	end := min(start+limit, len(all))

	f.writeJSON(w, ItemsResponse{Items: all[start:end], TotalRecordCount: len(all), StartIndex: start})
}

func (f *fakeJellyfin) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
