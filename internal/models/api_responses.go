// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Example catalog response:
//
//	{
//	  "status": "success",
//	  "data": {"metas": [{"id": "tt0113277", "displayName": "Heat", ...}]},
//	  "metadata": {"timestamp": "2026-01-05T12:00:00Z", "query_time_ms": 412}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries timing and cache information for a response.
// Cached is set when the semantic query cache answered the request.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes used by the API:
//   - VALIDATION_ERROR: invalid path or query parameters
//   - NOT_FOUND: unknown user or resource
//   - TRAKT_NOT_LINKED: history requested without stored OAuth tokens
//   - HISTORY_DISABLED, SEMANTIC_DISABLED: the feature is turned off
//   - NOT_READY: readiness probe failure
//   - INTERNAL_ERROR: unexpected failure (details are logged, never returned)
//
// Catalog endpoints never answer upstream failures or timeouts with an
// APIError; they return a list holding one error record instead.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CatalogResponse is the data payload for catalog and trending endpoints.
// Metas is always a list, never null.
type CatalogResponse struct {
	Metas []MetadataRecord `json:"metas"`
}
