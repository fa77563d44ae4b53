// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package pipeline

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/tomtom215/localrecs/internal/recommend"
)

// UserFilter selects users with a CEL expression over a `user` map with the
// keys id, name, is_administrator, is_disabled and is_hidden.
//
//	!user.is_disabled && user.name != "guest"
//
// The zero value and an empty expression match every user. A compiled filter
// is safe for concurrent use.
type UserFilter struct {
	expr string
	prg  cel.Program
}

// NewUserFilter compiles expr.
func NewUserFilter(expr string) (*UserFilter, error) {
	if expr == "" {
		return &UserFilter{}, nil
	}

	env, err := cel.NewEnv(cel.Variable("user", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile user filter %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build user filter %q: %w", expr, err)
	}

	return &UserFilter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *UserFilter) String() string {
	return f.expr
}

// Match reports whether the user passes the filter. Expressions that do not
// evaluate to a bool are an error.
func (f *UserFilter) Match(u recommend.User) (bool, error) {
	if f == nil || f.prg == nil {
		return true, nil
	}

	out, _, err := f.prg.Eval(map[string]any{
		"user": map[string]any{
			"id":               u.ID,
			"name":             u.Name,
			"is_administrator": u.IsAdministrator,
			"is_disabled":      u.IsDisabled,
			"is_hidden":        u.IsHidden,
		},
	})
	if err != nil {
		return false, fmt.Errorf("evaluate user filter: %w", err)
	}

	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("user filter must return bool, got %T", out.Value())
	}
	return ok, nil
}
