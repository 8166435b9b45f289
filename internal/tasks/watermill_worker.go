// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// WorkerConfig tunes message retries.
type WorkerConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	CloseTimeout    time.Duration
}

// DefaultWorkerConfig returns the default retry policy.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		CloseTimeout:    15 * time.Second,
	}
}

// WatermillWorker consumes tasks from a Watermill subscriber. It implements
// suture.Service.
type WatermillWorker struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler
	config     WorkerConfig
	logger     watermill.LoggerAdapter
	running    chan struct{}
}

// NewWatermillWorker creates a worker for topic.
func NewWatermillWorker(subscriber message.Subscriber, topic string, handler Handler, cfg WorkerConfig, logger watermill.LoggerAdapter) *WatermillWorker {
	if logger == nil {
		logger = NewWatermillLogger()
	}
	return &WatermillWorker{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		config:     cfg,
		logger:     logger,
		running:    make(chan struct{}),
	}
}

// Running is closed once the first router has started.
func (w *WatermillWorker) Running() <-chan struct{} {
	return w.running
}

// Serve runs the Watermill router until ctx is canceled.
func (w *WatermillWorker) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: w.config.CloseTimeout}, w.logger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      w.config.MaxRetries,
		InitialInterval: w.config.InitialInterval,
		MaxInterval:     w.config.MaxInterval,
		Multiplier:      2.0,
		Logger:          w.logger,
	}
	router.AddMiddleware(retry.Middleware)

	router.AddConsumerHandler("task_worker", w.topic, w.subscriber, w.handle)

	go func() {
		select {
		case <-router.Running():
			select {
			case <-w.running:
			default:
				close(w.running)
			}
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("task router: %w", err)
	}
	return ctx.Err()
}

func (w *WatermillWorker) handle(msg *message.Message) error {
	task, err := Decode(msg.Payload)
	if err != nil {
		// Undecodable payloads are dropped rather than retried forever.
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed task")
		metrics.RecordTask(true, "unknown", err)
		return nil
	}

	err = w.handler.Handle(msg.Context(), task)
	metrics.RecordTask(true, task.Kind, err)
	return err
}

// String implements fmt.Stringer for suture logging.
func (w *WatermillWorker) String() string {
	return "task-worker-watermill"
}
