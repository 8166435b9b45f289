// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "time"

// CredentialSet holds one user's provider keys and Trakt OAuth tokens.
//
// Empty provider keys mean the shared default keys are used.
type CredentialSet struct {
	UserID string `json:"userId" validate:"required,max=128"`

	// Provider names the recommendation provider; empty selects the default.
	Provider    string `json:"provider,omitempty" validate:"omitempty,max=64"`
	LLMKey      string `json:"llmKey,omitempty" validate:"omitempty,max=512"`
	MetadataKey string `json:"metadataKey,omitempty" validate:"omitempty,max=512"`
	PosterKey   string `json:"posterKey,omitempty" validate:"omitempty,max=512"`

	AccessToken  string `json:"accessToken,omitempty" validate:"omitempty,max=2048"`
	RefreshToken string `json:"refreshToken,omitempty" validate:"omitempty,max=2048"`

	// ExpiresAt is ISO-8601 or epoch seconds/milliseconds.
	ExpiresAt string `json:"expiresAt,omitempty" validate:"omitempty,max=64"`

	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// HasOAuth reports whether the set carries a refreshable Trakt token.
func (c *CredentialSet) HasOAuth() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// UsesCustomLLMKey reports whether recommendations run on the caller's own key.
func (c *CredentialSet) UsesCustomLLMKey() bool {
	return c.LLMKey != ""
}
