// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

// LookupQuery asks a metadata provider to resolve one recommended title.
type LookupQuery struct {
	Title       string
	ContentType ContentType
	Language    string

	// MetadataKey overrides the shared provider key when set.
	MetadataKey string
}

// RecommendRequest asks the recommendation provider for titles.
// Exactly one of Query or History drives the prompt.
type RecommendRequest struct {
	Query       string
	History     []string
	ContentType ContentType
	Language    string
	Count       int

	// APIKey overrides the shared provider key when set.
	APIKey string
}

// Recommendation is the provider's answer: titles in recommendation order and
// the language they are written in.
type Recommendation struct {
	Language string   `json:"language"`
	Titles   []string `json:"titles"`
}

// WatchedItem is one entry of a user's watch history.
type WatchedItem struct {
	Title     string
	Year      int
	ContentID string
}
