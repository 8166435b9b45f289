// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

type recordingHandler struct {
	mu    sync.Mutex
	tasks []Task
	fail  int
	done  chan struct{}
}

func (h *recordingHandler) Handle(_ context.Context, task Task) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail > 0 {
		h.fail--
		return errors.New("transient")
	}
	h.tasks = append(h.tasks, task)
	if h.done != nil {
		close(h.done)
		h.done = nil
	}
	return nil
}

func TestWatermillQueueDeliversToWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := NewWatermillLogger()
	pubsub := NewChannelPubSub(logger)
	queue := NewWatermillQueue(pubsub, "metadata.refresh")

	done := make(chan struct{})
	handler := &recordingHandler{fail: 1, done: done}
	cfg := DefaultWorkerConfig()
	cfg.InitialInterval = 5 * time.Millisecond
	worker := NewWatermillWorker(pubsub, "metadata.refresh", handler, cfg, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- worker.Serve(ctx) }()

	select {
	case <-worker.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}

	task := NewRefreshTask("Heat", models.ContentTypeMovie, "", "movie:name:heat")
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task not handled")
	}

	handler.mu.Lock()
	if len(handler.tasks) != 1 || handler.tasks[0].ID != task.ID {
		t.Errorf("handled = %+v", handler.tasks)
	}
	handler.mu.Unlock()

	cancel()
	select {
	case <-errCh:
	case <-time.After(20 * time.Second):
		t.Fatal("worker did not stop")
	}

	if err := queue.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := queue.Enqueue(context.Background(), task); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after close err = %v", err)
	}
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	var got string
	h := HandlerFunc(func(_ context.Context, task Task) error {
		got = task.Key
		return nil
	})
	_ = h.Handle(context.Background(), Task{Key: "k"})
	if got != "k" {
		t.Errorf("HandlerFunc did not receive task, got %q", got)
	}
}
