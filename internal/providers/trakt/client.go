// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package trakt refreshes Trakt OAuth tokens and reads watch history.
package trakt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/credentials"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/providers"
)

const (
	DefaultBaseURL = "https://api.trakt.tv"
	apiVersion     = "2"
)

// ErrNotConfigured is returned when no client credentials are set.
var ErrNotConfigured = errors.New("trakt: client credentials not configured")

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HistoryLimit int
	Timeout      time.Duration
}

// Client talks to the Trakt API.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	historyLimit int
	httpc        *http.Client
	breaker      *providers.Breaker
	now          func() time.Time
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		historyLimit: cfg.HistoryLimit,
		httpc:        &http.Client{Timeout: cfg.Timeout},
		breaker:      providers.NewBreaker("trakt"),
		now:          time.Now,
	}
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

// RefreshOAuthToken implements credentials.Refresher.
func (c *Client) RefreshOAuthToken(ctx context.Context, refreshToken string) (credentials.Token, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return credentials.Token{}, ErrNotConfigured
	}
	body, err := json.Marshal(map[string]string{
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  "urn:ietf:wg:oauth:2.0:oob",
		"grant_type":    "refresh_token",
	})
	if err != nil {
		return credentials.Token{}, fmt.Errorf("marshal refresh request: %w", err)
	}

	tok, err := providers.Execute(c.breaker, func() (tokenResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
		if err != nil {
			return tokenResponse{}, err
		}
		c.setHeaders(req, "")
		var tr tokenResponse
		err = providers.DoJSON(c.httpc, "trakt", "refresh", req, &tr)
		return tr, err
	})
	if err != nil {
		return credentials.Token{}, err
	}
	if tok.AccessToken == "" {
		return credentials.Token{}, errors.New("trakt: refresh returned no access token")
	}

	issued := c.now()
	if tok.CreatedAt > 0 {
		issued = time.Unix(tok.CreatedAt, 0)
	}
	return credentials.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    issued.Add(time.Duration(tok.ExpiresIn) * time.Second).UTC(),
	}, nil
}

type ids struct {
	IMDb string `json:"imdb"`
}

type media struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   ids    `json:"ids"`
}

type historyItem struct {
	Type  string `json:"type"`
	Movie *media `json:"movie,omitempty"`
	Show  *media `json:"show,omitempty"`
}

// WatchHistory returns the user's most recently watched movies or shows,
// newest first, one entry per title.
func (c *Client) WatchHistory(ctx context.Context, accessToken string, contentType models.ContentType) ([]models.WatchedItem, error) {
	if c.clientID == "" {
		return nil, ErrNotConfigured
	}
	kind := "movies"
	if contentType == models.ContentTypeSeries {
		kind = "shows"
	}
	endpoint := c.baseURL + "/users/me/history/" + kind + "?limit=" + strconv.Itoa(c.historyLimit)

	items, err := providers.Retry(ctx, providers.RetryOptions{Attempts: 2}, func() ([]historyItem, error) {
		return providers.Execute(c.breaker, func() ([]historyItem, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			c.setHeaders(req, accessToken)
			var out []historyItem
			err = providers.DoJSON(c.httpc, "trakt", "history", req, &out)
			return out, err
		})
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	watched := make([]models.WatchedItem, 0, len(items))
	for _, it := range items {
		m := it.Movie
		if m == nil {
			m = it.Show
		}
		if m == nil || m.Title == "" {
			continue
		}
		dedupe := m.IDs.IMDb
		if dedupe == "" {
			dedupe = strings.ToLower(m.Title)
		}
		if _, dup := seen[dedupe]; dup {
			continue
		}
		seen[dedupe] = struct{}{}
		watched = append(watched, models.WatchedItem{Title: m.Title, Year: m.Year, ContentID: m.IDs.IMDb})
	}
	return watched, nil
}
