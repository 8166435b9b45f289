// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package models defines the data types shared across Marquee.

# Catalog Types

  - MetadataRecord: one enriched movie or series, the unit cached by the
    metadata store, the semantic query cache and the trending rings
  - ContentType: movie or series
  - PosterShape: poster, landscape or square

A MetadataRecord is cacheable only when it has both a poster URL and a
display name; records without them are returned to callers but never
persisted.

# Credentials

CredentialSet carries a user's provider keys and Trakt OAuth tokens.
ExpiresAt is kept as the string it was stored with (ISO-8601 or epoch)
and parsed by the credentials package.

# API Envelope

APIResponse, Metadata and APIError give every HTTP endpoint the same
response structure.
*/
package models
