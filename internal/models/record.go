// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"fmt"
	"strings"
)

// ContentType distinguishes movies from series.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// ParseContentType accepts the common spellings used by catalog clients.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film", "films":
		return ContentTypeMovie, nil
	case "series", "tv", "show", "shows":
		return ContentTypeSeries, nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// Plural returns "movies" or "series".
func (c ContentType) Plural() string {
	if c == ContentTypeMovie {
		return "movies"
	}
	return "series"
}

// Valid reports whether c is a known content type.
func (c ContentType) Valid() bool {
	return c == ContentTypeMovie || c == ContentTypeSeries
}

// PosterShape is the aspect of the poster image.
type PosterShape string

const (
	PosterShapePoster    PosterShape = "poster"
	PosterShapeLandscape PosterShape = "landscape"
	PosterShapeSquare    PosterShape = "square"
)

// ErrorRecordID is the content ID of the synthetic record returned when
// recommendation fails.
const ErrorRecordID = "marquee:error"

// MetadataRecord is one enriched catalog entry.
//
// Example:
//
//	{
//	  "id": "tt0113277",
//	  "displayName": "Heat",
//	  "type": "movie",
//	  "poster": "https://image.tmdb.org/t/p/w500/heat.jpg",
//	  "posterShape": "poster",
//	  "releaseYear": "1995"
//	}
type MetadataRecord struct {
	ContentID     string      `json:"id"`
	DisplayName   string      `json:"displayName"`
	ContentType   ContentType `json:"type"`
	PosterURL     *string     `json:"poster"`
	PosterShape   PosterShape `json:"posterShape"`
	ReleaseYear   string      `json:"releaseYear"`
	Language      string      `json:"language,omitempty"`
	Country       string      `json:"country,omitempty"`
	BackgroundURL string      `json:"background,omitempty"`
	Description   string      `json:"description,omitempty"`
	Runtime       string      `json:"runtime,omitempty"`
	Genres        []string    `json:"genres,omitempty"`
	Website       string      `json:"website,omitempty"`
}

// Poster returns the poster URL or "".
func (r *MetadataRecord) Poster() string {
	if r.PosterURL == nil {
		return ""
	}
	return *r.PosterURL
}

// Cacheable reports whether the record may be persisted.
func (r *MetadataRecord) Cacheable() bool {
	return r.Poster() != "" && r.DisplayName != ""
}

// WithPoster returns a copy of r whose poster is url.
//
//nolint:gocritic // value receiver keeps the original untouched
func (r MetadataRecord) WithPoster(url string) MetadataRecord {
	r.PosterURL = &url
	return r
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ErrorRecord builds the single degraded record returned when the
// recommendation call fails.
func ErrorRecord(contentType ContentType, message string) MetadataRecord {
	return MetadataRecord{
		ContentID:   ErrorRecordID,
		DisplayName: "Recommendations unavailable",
		ContentType: contentType,
		PosterShape: PosterShapePoster,
		Description: message,
	}
}
