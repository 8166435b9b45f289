// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import "errors"

var (
	// ErrHistoryDisabled indicates Trakt client credentials are not configured.
	ErrHistoryDisabled = errors.New("watch history is not enabled")

	// ErrSemanticDisabled indicates the semantic query cache is turned off.
	ErrSemanticDisabled = errors.New("semantic cache is not enabled")
)
