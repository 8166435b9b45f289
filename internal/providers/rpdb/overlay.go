// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package rpdb swaps record posters for RatingPosterDB rating posters.
package rpdb

import (
	"context"
	"net/url"
	"strings"

	"github.com/tomtom215/marquee/internal/models"
)

// DefaultBaseURL is the RatingPosterDB API root.
const DefaultBaseURL = "https://api.ratingposterdb.com"

// Overlay implements the poster overlay port.
type Overlay struct {
	baseURL string
}

// New creates an Overlay.
func New(baseURL string) *Overlay {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Overlay{baseURL: strings.TrimRight(baseURL, "/")}
}

// PosterURL returns the rating poster URL for an IMDb id, or "" when the id
// is not an IMDb id or no key is given.
func (o *Overlay) PosterURL(posterKey, contentID string) string {
	if posterKey == "" || !strings.HasPrefix(contentID, "tt") {
		return ""
	}
	return o.baseURL + "/" + url.PathEscape(posterKey) + "/imdb/poster-default/" + url.PathEscape(contentID) + ".jpg?fallback=true"
}

// Apply returns rec with its poster replaced when an overlay exists. The
// fallback=true parameter makes RPDB serve the original poster for titles it
// does not know, so no request is made here.
func (o *Overlay) Apply(_ context.Context, rec models.MetadataRecord, posterKey string) models.MetadataRecord {
	if u := o.PosterURL(posterKey, rec.ContentID); u != "" {
		return rec.WithPoster(u)
	}
	return rec
}
