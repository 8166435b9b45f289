// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SearchRequest holds the validated parameters of a catalog search.
type SearchRequest struct {
	ContentType string `json:"type" validate:"required,contenttype"`
	Query       string `json:"q" validate:"required,max=500"`
	Language    string `json:"lang" validate:"omitempty,lang"`
	UserID      string `json:"user" validate:"omitempty,max=128"`
}

// HistoryRequest holds the validated parameters of a history recommendation.
type HistoryRequest struct {
	ContentType string `json:"type" validate:"required,contenttype"`
	UserID      string `json:"user" validate:"required,max=128"`
	Language    string `json:"lang" validate:"omitempty,lang"`
}

// TrendingRequest holds the validated parameters of a trending read.
type TrendingRequest struct {
	ContentType string `json:"type" validate:"required,contenttype"`
	Language    string `json:"lang" validate:"omitempty,lang"`
}

func parseSearchRequest(r *http.Request) SearchRequest {
	q := r.URL.Query()
	return SearchRequest{
		ContentType: chi.URLParam(r, "type"),
		Query:       strings.TrimSpace(q.Get("q")),
		Language:    strings.TrimSpace(q.Get("lang")),
		UserID:      strings.TrimSpace(q.Get("user")),
	}
}

func parseHistoryRequest(r *http.Request) HistoryRequest {
	q := r.URL.Query()
	return HistoryRequest{
		ContentType: chi.URLParam(r, "type"),
		UserID:      strings.TrimSpace(q.Get("user")),
		Language:    strings.TrimSpace(q.Get("lang")),
	}
}

func parseTrendingRequest(r *http.Request) TrendingRequest {
	return TrendingRequest{
		ContentType: chi.URLParam(r, "type"),
		Language:    strings.TrimSpace(r.URL.Query().Get("lang")),
	}
}
