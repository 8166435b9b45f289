// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/tomtom215/marquee/internal/models"
)

// Trending returns the trending ring for a content type, most recent first.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	req := parseTrendingRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}
	contentType, _ := models.ParseContentType(req.ContentType)

	records := h.deps.Trending.Read(r.Context(), h.deps.Trending.ListKey(contentType, req.Language))
	respondSuccess(w, catalogPayload(records), models.Metadata{})
}
