// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package semantic

import (
	"strings"

	"github.com/tomtom215/marquee/internal/models"
)

// Fingerprint identifies a query for similarity lookup. Lookups only compare
// fingerprints within the same Namespace.
type Fingerprint struct {
	// Namespace is "movie" or "movie:fr"; the language is omitted when default.
	Namespace string

	// Query is the normalized query text.
	Query string
}

// NewFingerprint builds the fingerprint for a catalog query.
func NewFingerprint(contentType models.ContentType, language, defaultLanguage, query string) Fingerprint {
	ns := string(contentType)
	if language != "" && language != defaultLanguage {
		ns += ":" + language
	}
	return Fingerprint{Namespace: ns, Query: NormalizeQuery(query)}
}

// String renders the fingerprint, for example "movie:a quiet heist film".
func (f Fingerprint) String() string {
	return f.Namespace + ":" + f.Query
}

// NormalizeQuery lower-cases, trims and collapses whitespace.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
