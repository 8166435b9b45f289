// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package tasks carries background work out of the request path.
//
// The only task kind today is metadata.refresh, emitted when a legacy record
// is served so it gets re-resolved and rewritten in the current format.
// Three transports are supported and selected by tasks.backend:
//
//   - channel: Watermill gochannel, in-process (default)
//   - nats: Watermill over NATS JetStream
//   - asynq: hibiken/asynq on the shared Redis
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/models"
)

// KindMetadataRefresh re-resolves a title and overwrites its cache keys.
const KindMetadataRefresh = "metadata.refresh"

// Task is one unit of background work.
type Task struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Title       string             `json:"title"`
	ContentType models.ContentType `json:"type"`
	Language    string             `json:"language,omitempty"`
	Key         string             `json:"key"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// NewRefreshTask builds a metadata.refresh task for the record at key.
func NewRefreshTask(title string, contentType models.ContentType, language, key string) Task {
	return Task{
		ID:          uuid.NewString(),
		Kind:        KindMetadataRefresh,
		Title:       title,
		ContentType: contentType,
		Language:    language,
		Key:         key,
		CreatedAt:   time.Now().UTC(),
	}
}

// Encode serializes t for a transport.
func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Decode parses a task payload and rejects unusable tasks.
func Decode(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.Kind == "" || t.Key == "" {
		return Task{}, fmt.Errorf("decode task %s: missing kind or key", t.ID)
	}
	return t, nil
}

// Enqueuer submits tasks for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// Handler processes one task. A returned error makes the transport retry.
type Handler interface {
	Handle(ctx context.Context, task Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task Task) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, task Task) error { return f(ctx, task) }
