// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package pipeline

import (
	"strings"
	"testing"

	"github.com/tomtom215/localrecs/internal/recommend"
)

func TestUserFilter_Match(t *testing.T) {
	admin := recommend.User{ID: "u1", Name: "alice", IsAdministrator: true}
	guest := recommend.User{ID: "u2", Name: "guest", IsHidden: true}
	disabled := recommend.User{ID: "u3", Name: "old", IsDisabled: true}

	tests := []struct {
		name string
		expr string
		user recommend.User
		want bool
	}{
		{"empty matches all", "", disabled, true},
		{"not disabled", "!user.is_disabled", disabled, false},
		{"not disabled passes", "!user.is_disabled", admin, true},
		{"name exclusion", `user.name != "guest"`, guest, false},
		{"admins only", "user.is_administrator", admin, true},
		{"admins only rejects", "user.is_administrator", guest, false},
		{"visible", "!user.is_hidden && !user.is_disabled", guest, false},
		{"id list", `user.id in ["u1", "u3"]`, disabled, true},
		{"prefix", `user.name.startsWith("al")`, admin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewUserFilter(tt.expr)
			if err != nil {
				t.Fatalf("NewUserFilter(%q) error = %v", tt.expr, err)
			}
			got, err := f.Match(tt.user)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match(%s) = %v, want %v", tt.user.Name, got, tt.want)
			}
		})
	}
}

func TestUserFilter_Errors(t *testing.T) {
	if _, err := NewUserFilter("user.name =="); err == nil {
		t.Error("NewUserFilter() expected compile error")
	}

	f, err := NewUserFilter("user.name")
	if err != nil {
		t.Fatalf("NewUserFilter() error = %v", err)
	}
	_, err = f.Match(recommend.User{Name: "alice"})
	if err == nil || !strings.Contains(err.Error(), "must return bool") {
		t.Errorf("Match() error = %v, want non-bool error", err)
	}

	f, err = NewUserFilter("user.missing == 1")
	if err != nil {
		t.Fatalf("NewUserFilter() error = %v", err)
	}
	if _, err := f.Match(recommend.User{}); err == nil {
		t.Error("Match() expected error for unknown key")
	}
}

func TestUserFilter_NilMatchesAll(t *testing.T) {
	var f *UserFilter
	ok, err := f.Match(recommend.User{})
	if err != nil || !ok {
		t.Errorf("nil filter Match() = %v, %v; want true, nil", ok, err)
	}
}
