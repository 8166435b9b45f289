// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/marquee/internal/models"
)

func geminiServer(t *testing.T, status *atomic.Int32, answer string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("missing api key header")
		}
		if status != nil {
			if code := status.Load(); code != 0 {
				status.Store(0)
				w.WriteHeader(int(code))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":` + answer + `}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestRecommend(t *testing.T) {
	srv, _ := geminiServer(t, nil, `"{\"language\":\"FR\",\"titles\":[\"La Haine\",\" \",\"Amélie\",\"Léon\"]}"`)
	c := New(Config{APIKey: "shared", Model: "test-model", BaseURL: srv.URL})

	rec, err := c.Recommend(context.Background(), models.RecommendRequest{
		Query:       "french crime",
		ContentType: models.ContentTypeMovie,
		Language:    "fr",
		Count:       2,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Language != "fr" {
		t.Errorf("Language = %q", rec.Language)
	}
	if len(rec.Titles) != 2 || rec.Titles[0] != "La Haine" || rec.Titles[1] != "Amélie" {
		t.Errorf("Titles = %q", rec.Titles)
	}
}

func TestRecommendRetriesServerErrors(t *testing.T) {
	status := &atomic.Int32{}
	status.Store(http.StatusServiceUnavailable)
	srv, calls := geminiServer(t, status, `"{\"language\":\"en\",\"titles\":[\"Heat\"]}"`)
	c := New(Config{APIKey: "shared", Model: "test-model", BaseURL: srv.URL, MaxRetries: 2})

	rec, err := c.Recommend(context.Background(), models.RecommendRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if calls.Load() != 2 || len(rec.Titles) != 1 {
		t.Errorf("calls = %d, titles = %q", calls.Load(), rec.Titles)
	}
}

func TestRecommendDoesNotRetryClientErrors(t *testing.T) {
	status := &atomic.Int32{}
	status.Store(http.StatusBadRequest)
	srv, calls := geminiServer(t, status, `"{}"`)
	c := New(Config{APIKey: "shared", Model: "test-model", BaseURL: srv.URL, MaxRetries: 3})

	if _, err := c.Recommend(context.Background(), models.RecommendRequest{Query: "q"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRecommendNoKey(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	if _, err := c.Recommend(context.Background(), models.RecommendRequest{Query: "q"}); !errors.Is(err, ErrNoKey) {
		t.Errorf("err = %v, want ErrNoKey", err)
	}
}

func TestParseRecommendation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		titles  int
		wantErr bool
	}{
		{"plain", `{"language":"en","titles":["Heat","Ronin"]}`, 2, false},
		{"fenced", "```json\n{\"language\":\"en\",\"titles\":[\"Heat\"]}\n```", 1, false},
		{"empty titles", `{"language":"en","titles":[]}`, 0, false},
		{"prose", `Sure! Here are some films.`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := ParseRecommendation(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(rec.Titles) != tt.titles {
				t.Errorf("titles = %q", rec.Titles)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	history := BuildPrompt(models.RecommendRequest{History: []string{"Heat", "Ronin"}, ContentType: models.ContentTypeMovie, Count: 20})
	if !strings.Contains(history, "- Heat\n") || !strings.Contains(history, "exactly 20 movies") {
		t.Errorf("history prompt = %s", history)
	}

	query := BuildPrompt(models.RecommendRequest{Query: "space opera", ContentType: models.ContentTypeSeries, Language: "de", Count: 5})
	if !strings.Contains(query, `"space opera"`) || !strings.Contains(query, "TV series") || !strings.Contains(query, `"de"`) {
		t.Errorf("query prompt = %s", query)
	}
}
