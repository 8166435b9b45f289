// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package credentials

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Epoch values at or above this are milliseconds (year 2286 in seconds).
const epochMillisCutoff = 10_000_000_000

var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseExpiry parses an ISO-8601 timestamp or an epoch value in seconds or
// milliseconds. Timestamps without a zone are UTC.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse expiry: empty value")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, fmt.Errorf("parse expiry %q: non-positive epoch", s)
		}
		if n >= epochMillisCutoff {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse expiry %q: unrecognised format", s)
}

// FormatExpiry renders t the way CredentialSet.ExpiresAt is persisted.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
