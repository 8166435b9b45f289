// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/marquee/internal/credentials"
	"github.com/tomtom215/marquee/internal/enrich"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// CatalogSearch returns recommendations for a free-text query.
func (h *Handler) CatalogSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := parseSearchRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}
	contentType, _ := models.ParseContentType(req.ContentType)

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.RequestTimeout)
	defer cancel()

	er := enrich.Request{
		UserID:      req.UserID,
		Query:       req.Query,
		ContentType: contentType,
		Language:    req.Language,
	}
	if req.UserID != "" {
		ctx = logging.ContextWithUserID(ctx, req.UserID)
		creds, err := h.loadCredentials(ctx, req.UserID)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user settings", err)
			return
		}
		applyCredentials(&er, creds)
	}

	h.enrichAndRespond(ctx, w, er, start)
}

// CatalogHistory returns recommendations based on the user's Trakt history.
func (h *Handler) CatalogHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.History == nil {
		respondError(w, r, http.StatusServiceUnavailable, "HISTORY_DISABLED", ErrHistoryDisabled.Error(), nil)
		return
	}
	req := parseHistoryRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}
	contentType, _ := models.ParseContentType(req.ContentType)

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.RequestTimeout)
	defer cancel()
	ctx = logging.ContextWithUserID(ctx, req.UserID)

	creds, err := h.deps.Credentials.Load(ctx, req.UserID)
	if errors.Is(err, credentials.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Unknown user", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user settings", err)
		return
	}
	if !creds.HasOAuth() {
		respondError(w, r, http.StatusPreconditionFailed, "TRAKT_NOT_LINKED", "Link a Trakt account to use history recommendations", nil)
		return
	}

	creds = h.deps.Tokens.Ensure(ctx, creds)

	watched, err := h.deps.History.WatchHistory(ctx, creds.AccessToken, contentType)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logging.Ctx(ctx).Debug().Err(err).Msg("Catalog request abandoned")
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Watch history unavailable")
		respondDegraded(w, contentType, "Your watch history could not be read. Try again shortly.", start)
		return
	}
	if len(watched) == 0 {
		respondSuccess(w, catalogPayload(nil), models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
		return
	}

	er := enrich.Request{
		UserID:      req.UserID,
		History:     historyTitles(watched),
		WatchedIDs:  watchedIDs(watched),
		ContentType: contentType,
		Language:    req.Language,
	}
	applyCredentials(&er, creds)

	h.enrichAndRespond(ctx, w, er, start)
}

func (h *Handler) enrichAndRespond(ctx context.Context, w http.ResponseWriter, er enrich.Request, start time.Time) {
	res, err := h.deps.Enricher.Enrich(ctx, er)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The client went away; nobody reads this response.
			logging.Ctx(ctx).Debug().Err(err).Msg("Catalog request abandoned")
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Enrichment failed")
		respondDegraded(w, er.ContentType, "Recommendations took too long. Try again shortly.", start)
		return
	}
	respondSuccess(w, catalogPayload(res.Records), models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      res.Cached,
	})
}

// respondDegraded answers with a single error record so catalog clients
// still receive a list.
func respondDegraded(w http.ResponseWriter, contentType models.ContentType, message string, start time.Time) {
	records := []models.MetadataRecord{models.ErrorRecord(contentType, message)}
	respondSuccess(w, catalogPayload(records), models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// loadCredentials returns an empty set for unknown users.
func (h *Handler) loadCredentials(ctx context.Context, userID string) (models.CredentialSet, error) {
	if h.deps.Credentials == nil {
		return models.CredentialSet{}, nil
	}
	creds, err := h.deps.Credentials.Load(ctx, userID)
	if errors.Is(err, credentials.ErrNotFound) {
		return models.CredentialSet{UserID: userID}, nil
	}
	return creds, err
}

func applyCredentials(er *enrich.Request, creds models.CredentialSet) {
	er.Provider = creds.Provider
	er.ProviderKey = creds.LLMKey
	er.MetadataKey = creds.MetadataKey
	er.PosterKey = creds.PosterKey
}

func historyTitles(items []models.WatchedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		if it.Year > 0 {
			out[i] = it.Title + " (" + strconv.Itoa(it.Year) + ")"
		} else {
			out[i] = it.Title
		}
	}
	return out
}

func watchedIDs(items []models.WatchedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.ContentID != "" {
			out = append(out, it.ContentID)
		}
	}
	return out
}
