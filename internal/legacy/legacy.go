// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package legacy recognises metadata records written in the historical
// showName/year shape and converts them to models.MetadataRecord.
//
// Raw is the envelope every stored record decodes into. Fields are pointers
// so that presence can be told apart from an empty value:
//
//	raw, err := legacy.Decode(data)
//	if legacy.IsLegacy(raw) {
//	    rec = legacy.Convert(raw, contentType)
//	} else {
//	    rec = raw.Canonical(contentType)
//	}
//
// All functions are pure.
package legacy

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/models"
)

// FlexString decodes from a JSON string or number. Legacy writers stored
// years and ids as numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// Raw is the superset of canonical and legacy record fields.
type Raw struct {
	// Shared
	ID          *FlexString `json:"id"`
	Type        *string     `json:"type"`
	Language    *string     `json:"language"`
	Country     *string     `json:"country"`
	Background  *string     `json:"background"`
	Description *string     `json:"description"`
	Runtime     *FlexString `json:"runtime"`
	Genres      []string    `json:"genres"`
	Website     *string     `json:"website"`
	Poster      *string     `json:"poster"`

	// Canonical only
	DisplayName *string     `json:"displayName"`
	ReleaseYear *FlexString `json:"releaseYear"`
	PosterShape *string     `json:"posterShape"`

	// Legacy only
	ShowName *string     `json:"showName"`
	Name     *string     `json:"name"`
	Year     *FlexString `json:"year"`
	Img      *string     `json:"img"`
}

// Decode parses stored bytes into the envelope.
func Decode(data []byte) (Raw, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Raw{}, fmt.Errorf("decode metadata record: %w", err)
	}
	return raw, nil
}

// IsLegacy reports whether raw is in the historical format: it has showName
// or year, and does not have both displayName and releaseYear.
func IsLegacy(raw Raw) bool {
	hasLegacyField := raw.ShowName != nil || raw.Year != nil
	hasCanonicalPair := raw.DisplayName != nil && raw.ReleaseYear != nil
	return hasLegacyField && !hasCanonicalPair
}

// Convert maps a legacy record to the canonical shape. contentType is used
// when the record does not name a valid type of its own.
func Convert(raw Raw, contentType models.ContentType) models.MetadataRecord {
	rec := shared(raw, contentType)
	rec.DisplayName = firstNonEmpty(raw.ShowName, raw.Name)
	rec.PosterURL = models.StringPtr(firstNonEmpty(raw.Poster, raw.Img))
	rec.ReleaseYear = releaseYear(flex(raw.Year))
	rec.PosterShape = models.PosterShapePoster
	return rec
}

// Canonical maps a current-format record.
func (r Raw) Canonical(contentType models.ContentType) models.MetadataRecord {
	rec := shared(r, contentType)
	rec.DisplayName = deref(r.DisplayName)
	rec.PosterURL = models.StringPtr(deref(r.Poster))
	rec.ReleaseYear = flex(r.ReleaseYear)
	rec.PosterShape = models.PosterShape(deref(r.PosterShape))
	if rec.PosterShape == "" {
		rec.PosterShape = models.PosterShapePoster
	}
	return rec
}

func shared(raw Raw, contentType models.ContentType) models.MetadataRecord {
	ct := models.ContentType(deref(raw.Type))
	if !ct.Valid() {
		ct = contentType
	}
	var genres []string
	if len(raw.Genres) > 0 {
		genres = append(genres, raw.Genres...)
	}
	return models.MetadataRecord{
		ContentID:     flex(raw.ID),
		ContentType:   ct,
		Language:      deref(raw.Language),
		Country:       deref(raw.Country),
		BackgroundURL: deref(raw.Background),
		Description:   deref(raw.Description),
		Runtime:       flex(raw.Runtime),
		Genres:        genres,
		Website:       deref(raw.Website),
	}
}

// releaseYear keeps the part before the first '-', cut to four characters.
// "2008-2013" becomes "2008".
func releaseYear(year string) string {
	year, _, _ = strings.Cut(strings.TrimSpace(year), "-")
	if len(year) > 4 {
		year = year[:4]
	}
	return year
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func flex(f *FlexString) string {
	if f == nil {
		return ""
	}
	return string(*f)
}
