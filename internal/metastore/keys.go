// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package metastore

import (
	"strings"

	"github.com/tomtom215/marquee/internal/models"
)

// Key derives the primary key for a title:
//
//	movie:name:heat          (default language)
//	movie:name:fr:la haine   (other languages)
func Key(contentType models.ContentType, language, defaultLanguage, title string) string {
	var b strings.Builder
	b.WriteString(string(contentType))
	b.WriteString(":name:")
	if language != "" && language != defaultLanguage {
		b.WriteString(language)
		b.WriteByte(':')
	}
	b.WriteString(strings.ToLower(strings.TrimSpace(title)))
	return b.String()
}

// IDKey derives the secondary key for a content ID:
//
//	movie:tt0113277
//	movie:fr:tt0113277
func IDKey(contentType models.ContentType, language, defaultLanguage, contentID string) string {
	if language != "" && language != defaultLanguage {
		return string(contentType) + ":" + language + ":" + contentID
	}
	return string(contentType) + ":" + contentID
}
