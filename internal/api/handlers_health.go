// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

var timeSince = time.Since

// HealthStatus is the payload of the health probes.
type HealthStatus struct {
	Status        string  `json:"status"`
	CacheBackend  string  `json:"cache_backend,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthLive reports that the process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, HealthStatus{Status: "ok", UptimeSeconds: timeSince(h.startTime).Seconds()}, models.Metadata{})
}

// HealthReady reports whether the cache backend answers. The semantic index
// and providers degrade gracefully and are not part of readiness.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "ok", CacheBackend: "ok", UptimeSeconds: timeSince(h.startTime).Seconds()}
	if h.deps.Backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Backend.Ping(ctx); err != nil {
			status.Status = "unavailable"
			status.CacheBackend = "unreachable"
			respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
				Status:   "error",
				Data:     status,
				Metadata: models.Metadata{Timestamp: time.Now().UTC()},
				Error:    &models.APIError{Code: "NOT_READY", Message: "Cache backend unreachable"},
			})
			return
		}
	}
	respondSuccess(w, status, models.Metadata{})
}
