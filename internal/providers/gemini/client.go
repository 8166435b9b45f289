// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package gemini asks Google's Gemini API for catalog recommendations.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/providers"
)

// DefaultBaseURL is the Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoKey is returned when neither a shared nor a caller key is available.
var ErrNoKey = errors.New("gemini: api key not configured")

// Config configures a Client.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// Client implements the recommendation port.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *providers.Breaker
	retries uint
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: providers.NewBreaker("gemini"),
		retries: uint(max(cfg.MaxRetries, 0)) + 1,
	}
}

// Provider returns the provider name used in store policies.
func (c *Client) Provider() string { return "gemini" }

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Recommend implements the recommendation port.
func (c *Client) Recommend(ctx context.Context, req models.RecommendRequest) (models.Recommendation, error) {
	key := req.APIKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return models.Recommendation{}, ErrNoKey
	}
	if req.Count <= 0 {
		req.Count = 20
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: BuildPrompt(req)}}}},
		GenerationConfig: &generationConfig{
			Temperature:      0.7,
			MaxOutputTokens:  2048,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	call := func() (models.Recommendation, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Recommendation{}, err
		}
		return c.generate(ctx, key, body)
	}
	// Caller keys bypass the shared breaker so one bad key cannot open it.
	if req.APIKey == "" {
		inner := call
		call = func() (models.Recommendation, error) {
			return providers.Execute(c.breaker, inner)
		}
	}

	rec, err := providers.Retry(ctx, providers.RetryOptions{Attempts: c.retries, Delay: 500 * time.Millisecond}, call)
	if err != nil {
		return models.Recommendation{}, err
	}
	if rec.Language == "" {
		rec.Language = req.Language
	}
	if len(rec.Titles) > req.Count {
		rec.Titles = rec.Titles[:req.Count]
	}
	return rec, nil
}

func (c *Client) generate(ctx context.Context, key string, body []byte) (models.Recommendation, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", key)

	var resp generateResponse
	if err := providers.DoJSON(c.httpc, "gemini", "generate", httpReq, &resp); err != nil {
		return models.Recommendation{}, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return models.Recommendation{}, errors.New("gemini returned empty response")
	}
	return ParseRecommendation(resp.Candidates[0].Content.Parts[0].Text)
}

// ParseRecommendation decodes the model's JSON answer, tolerating a Markdown
// code fence around it. Blank titles are dropped.
func ParseRecommendation(text string) (models.Recommendation, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var rec models.Recommendation
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return models.Recommendation{}, fmt.Errorf("parse gemini recommendation: %w (raw: %.200s)", err, text)
	}

	titles := rec.Titles[:0]
	for _, t := range rec.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	rec.Titles = titles
	rec.Language = strings.ToLower(strings.TrimSpace(rec.Language))
	return rec, nil
}
