// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		input   string
		want    ContentType
		wantErr bool
	}{
		{"movie", ContentTypeMovie, false},
		{"Movies", ContentTypeMovie, false},
		{" series ", ContentTypeSeries, false},
		{"tv", ContentTypeSeries, false},
		{"anime", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseContentType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseContentType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseContentType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestContentTypePlural(t *testing.T) {
	if ContentTypeMovie.Plural() != "movies" || ContentTypeSeries.Plural() != "series" {
		t.Errorf("unexpected plurals %q %q", ContentTypeMovie.Plural(), ContentTypeSeries.Plural())
	}
}

func TestMetadataRecordCacheable(t *testing.T) {
	tests := []struct {
		name string
		rec  MetadataRecord
		want bool
	}{
		{"poster and name", MetadataRecord{DisplayName: "Heat", PosterURL: StringPtr("p.jpg")}, true},
		{"nil poster", MetadataRecord{DisplayName: "Heat"}, false},
		{"empty poster", MetadataRecord{DisplayName: "Heat", PosterURL: new(string)}, false},
		{"empty name", MetadataRecord{PosterURL: StringPtr("p.jpg")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Cacheable(); got != tt.want {
				t.Errorf("Cacheable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithPosterLeavesOriginal(t *testing.T) {
	orig := MetadataRecord{DisplayName: "Heat", PosterURL: StringPtr("a.jpg")}
	overlaid := orig.WithPoster("b.jpg")

	if orig.Poster() != "a.jpg" {
		t.Errorf("original poster changed to %q", orig.Poster())
	}
	if overlaid.Poster() != "b.jpg" {
		t.Errorf("overlaid poster = %q", overlaid.Poster())
	}
}

func TestMetadataRecordJSONShape(t *testing.T) {
	rec := MetadataRecord{
		ContentID:   "tt0113277",
		DisplayName: "Heat",
		ContentType: ContentTypeMovie,
		PosterShape: PosterShapePoster,
		ReleaseYear: "1995",
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"id", "displayName", "type", "poster", "posterShape", "releaseYear"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in %s", key, data)
		}
	}
	if raw["poster"] != nil {
		t.Errorf("expected null poster, got %v", raw["poster"])
	}
}

func TestErrorRecord(t *testing.T) {
	rec := ErrorRecord(ContentTypeSeries, "provider down")
	if rec.ContentID != ErrorRecordID || rec.ContentType != ContentTypeSeries {
		t.Errorf("unexpected error record %+v", rec)
	}
	if rec.Cacheable() {
		t.Error("error record must never be cacheable")
	}
}
