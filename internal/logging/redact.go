// LocalRecs - Local Content-Based Recommendations for Jellyfin
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/localrecs

package logging

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameters Jellyfin accepts credentials in.
var sensitiveParams = []string{"api_key", "apikey", "x-emby-token", "token"}

// RedactToken masks a secret, keeping only the first and last 4 characters.
// Short secrets are fully masked.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// RedactURL masks credential query parameters and userinfo passwords.
// Unparseable input is returned as "<invalid url>".
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	q := u.Query()
	changed := false
	for key := range q {
		for _, p := range sensitiveParams {
			if strings.EqualFold(key, p) {
				q.Set(key, "***")
				changed = true
			}
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Truncate shortens s to maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
