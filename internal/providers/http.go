// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/metrics"
)

// maxErrorBodySize bounds how much of an error response is kept.
const maxErrorBodySize = 4 * 1024

var errCallerGone = errors.New("providers: caller context ended")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether err is worth another attempt: transport errors,
// HTTP 429 and HTTP 5xx. Caller cancellation and breaker rejections are not.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errCallerGone) || IsRejected(err) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// RetryOptions controls Retry.
type RetryOptions struct {
	Attempts uint
	Delay    time.Duration
}

// Retry runs fn with exponential backoff while its error is Retryable.
func Retry[T any](ctx context.Context, opts RetryOptions, fn func() (T, error)) (T, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay <= 0 {
		opts.Delay = 250 * time.Millisecond
	}
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(Retryable),
		retry.LastErrorOnly(true),
	)
}

// DoJSON sends req and decodes a 2xx JSON body into dst. Non-2xx responses
// become *StatusError.
func DoJSON(client *http.Client, provider, operation string, req *http.Request, dst interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderRequest(provider, operation, time.Since(start), err) }()

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", errCallerGone, ctxErr)
		}
		return fmt.Errorf("%s %s: %w", provider, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Provider: provider, Code: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", provider, operation, err)
	}
	return nil
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return string(body)
}
