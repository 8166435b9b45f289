// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// SemanticInfo reports the semantic index size and last reset time.
func (h *Handler) SemanticInfo(w http.ResponseWriter, r *http.Request) {
	if h.deps.Semantic == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SEMANTIC_DISABLED", ErrSemanticDisabled.Error(), nil)
		return
	}
	info, err := h.deps.Semantic.Info(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read semantic index", err)
		return
	}
	respondSuccess(w, info, models.Metadata{})
}

// SemanticReset clears the semantic index.
func (h *Handler) SemanticReset(w http.ResponseWriter, r *http.Request) {
	if h.deps.Semantic == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SEMANTIC_DISABLED", ErrSemanticDisabled.Error(), nil)
		return
	}
	if err := h.deps.Semantic.Reset(r.Context()); err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset semantic index", err)
		return
	}
	metrics.SemanticIndexResets.WithLabelValues("manual").Inc()
	logging.Ctx(r.Context()).Info().Msg("Semantic index reset on request")

	info, err := h.deps.Semantic.Info(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read semantic index", err)
		return
	}
	respondSuccess(w, info, models.Metadata{})
}

// StatsResponse is the payload of GET /api/v1/stats.
type StatsResponse struct {
	Requests      map[models.ContentType]int64 `json:"requests"`
	UptimeSeconds float64                      `json:"uptime_seconds"`
}

// Stats returns per content type request counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.deps.Enricher.Stats(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read stats", err)
		return
	}
	respondSuccess(w, StatsResponse{
		Requests:      counts,
		UptimeSeconds: timeSince(h.startTime).Seconds(),
	}, models.Metadata{})
}
