// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package tmdb resolves recommended titles to metadata records through The
// Movie Database API.
package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/providers"
)

// Default API roots.
const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
)

// Config configures a Client.
type Config struct {
	APIKey            string
	BaseURL           string
	ImageBaseURL      string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client implements the metadata resolver port.
type Client struct {
	apiKey    string
	baseURL   string
	imageBase string
	httpc     *http.Client
	limiter   *rate.Limiter
	breaker   *providers.Breaker
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		imageBase: strings.TrimRight(cfg.ImageBaseURL, "/"),
		httpc:     &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, max(int(cfg.RequestsPerSecond), 1)),
		breaker:   providers.NewBreaker("tmdb"),
	}
}

type searchResult struct {
	ID int `json:"id"`
}

type details struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Name             string   `json:"name"`
	Overview         string   `json:"overview"`
	ReleaseDate      string   `json:"release_date"`
	FirstAirDate     string   `json:"first_air_date"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	Runtime          int      `json:"runtime"`
	EpisodeRunTime   []int    `json:"episode_run_time"`
	Homepage         string   `json:"homepage"`
	OriginalLanguage string   `json:"original_language"`
	IMDbID           string   `json:"imdb_id"`
	OriginCountry    []string `json:"origin_country"`

	ProductionCountries []struct {
		ISO string `json:"iso_3166_1"`
	} `json:"production_countries"`

	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`

	ExternalIDs struct {
		IMDbID string `json:"imdb_id"`
	} `json:"external_ids"`
}

// Resolve implements the resolver port. It never fails: when the title cannot
// be resolved the returned record carries only the title and is not cacheable.
func (c *Client) Resolve(ctx context.Context, q models.LookupQuery) models.MetadataRecord {
	unresolved := models.MetadataRecord{
		DisplayName: q.Title,
		ContentType: q.ContentType,
		PosterShape: models.PosterShapePoster,
	}

	key := q.MetadataKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" || strings.TrimSpace(q.Title) == "" {
		metrics.ProviderLookups.WithLabelValues("unresolved").Inc()
		return unresolved
	}

	d, err := c.lookup(ctx, key, q)
	if err != nil {
		metrics.ProviderLookups.WithLabelValues("unresolved").Inc()
		logging.Ctx(ctx).Debug().Err(err).Str("title", q.Title).Msg("TMDB lookup failed")
		return unresolved
	}
	if d == nil {
		metrics.ProviderLookups.WithLabelValues("unresolved").Inc()
		return unresolved
	}

	metrics.ProviderLookups.WithLabelValues("resolved").Inc()
	return c.toRecord(d, q)
}

func (c *Client) lookup(ctx context.Context, key string, q models.LookupQuery) (*details, error) {
	kind := "movie"
	if q.ContentType == models.ContentTypeSeries {
		kind = "tv"
	}

	params := url.Values{}
	params.Set("query", q.Title)
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	var search struct {
		Results []searchResult `json:"results"`
	}
	if err := c.get(ctx, key, "search", "/search/"+kind, params, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, nil
	}

	params = url.Values{}
	if kind == "tv" {
		params.Set("append_to_response", "external_ids")
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	var d details
	if err := c.get(ctx, key, "details", fmt.Sprintf("/%s/%d", kind, search.Results[0].ID), params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) get(ctx context.Context, key, operation, path string, params url.Values, dst interface{}) error {
	params.Set("api_key", key)
	reqURL := c.baseURL + path + "?" + params.Encode()

	call := func() (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Accept", "application/json")
		return struct{}{}, providers.DoJSON(c.httpc, "tmdb", operation, req, dst)
	}

	_, err := providers.Retry(ctx, providers.RetryOptions{Attempts: 3}, func() (struct{}, error) {
		return providers.Execute(c.breaker, call)
	})
	return err
}

func (c *Client) toRecord(d *details, q models.LookupQuery) models.MetadataRecord {
	rec := models.MetadataRecord{
		ContentID:   d.IMDbID,
		DisplayName: d.Title,
		ContentType: q.ContentType,
		PosterShape: models.PosterShapePoster,
		ReleaseYear: year(d.ReleaseDate),
		Language:    d.OriginalLanguage,
		Description: d.Overview,
		Website:     d.Homepage,
	}
	if rec.ContentType == models.ContentTypeSeries {
		rec.ContentID = d.ExternalIDs.IMDbID
		rec.DisplayName = d.Name
		rec.ReleaseYear = year(d.FirstAirDate)
	}
	if rec.ContentID == "" {
		rec.ContentID = "tmdb:" + strconv.Itoa(d.ID)
	}
	if rec.DisplayName == "" {
		rec.DisplayName = q.Title
	}
	if d.PosterPath != "" {
		rec.PosterURL = models.StringPtr(c.imageBase + "/w500" + d.PosterPath)
	}
	if d.BackdropPath != "" {
		rec.BackgroundURL = c.imageBase + "/original" + d.BackdropPath
	}

	runtime := d.Runtime
	if runtime == 0 && len(d.EpisodeRunTime) > 0 {
		runtime = d.EpisodeRunTime[0]
	}
	if runtime > 0 {
		rec.Runtime = strconv.Itoa(runtime) + " min"
	}

	switch {
	case len(d.ProductionCountries) > 0:
		rec.Country = d.ProductionCountries[0].ISO
	case len(d.OriginCountry) > 0:
		rec.Country = d.OriginCountry[0]
	}
	for _, g := range d.Genres {
		rec.Genres = append(rec.Genres, g.Name)
	}
	return rec
}

func year(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
