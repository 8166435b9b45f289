// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/credentials"
	"github.com/tomtom215/marquee/internal/models"
)

// maxCredentialBody bounds the credentials request body.
const maxCredentialBody = 16 * 1024

// CredentialsSaved is the response to a credentials update. Secrets are
// never echoed back.
type CredentialsSaved struct {
	UserID         string    `json:"userId"`
	HasLLMKey      bool      `json:"hasLlmKey"`
	HasPosterKey   bool      `json:"hasPosterKey"`
	TraktLinked    bool      `json:"traktLinked"`
	UpdatedAt      time.Time `json:"updatedAt"`
	TokenExpiresAt string    `json:"tokenExpiresAt,omitempty"`
}

// PutCredentials replaces the stored credential set of a user.
func (h *Handler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	var creds models.CredentialSet
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialBody))
	if err := dec.Decode(&creds); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON credential set", nil)
		return
	}
	creds.UserID = chi.URLParam(r, "userID")
	if apiErr := validateRequest(&creds); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	var expiry string
	if creds.ExpiresAt != "" {
		t, err := credentials.ParseExpiry(creds.ExpiresAt)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "expiresAt must be ISO-8601 or epoch seconds", nil)
			return
		}
		expiry = credentials.FormatExpiry(t)
		creds.ExpiresAt = expiry
	}

	if err := h.deps.Credentials.Save(r.Context(), creds); err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save credentials", err)
		return
	}

	respondSuccess(w, CredentialsSaved{
		UserID:         creds.UserID,
		HasLLMKey:      creds.LLMKey != "",
		HasPosterKey:   creds.PosterKey != "",
		TraktLinked:    creds.HasOAuth(),
		UpdatedAt:      time.Now().UTC(),
		TokenExpiresAt: expiry,
	}, models.Metadata{})
}
