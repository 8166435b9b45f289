// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// AsynqConfig configures the asynq transport.
type AsynqConfig struct {
	RedisURL    string
	Queue       string
	Concurrency int
	MaxRetry    int

	// UniqueFor keeps a finished refresh's task ID reserved, so the same key
	// is not refreshed again within the window.
	UniqueFor time.Duration
}

func (c *AsynqConfig) applyDefaults() {
	if c.Queue == "" {
		c.Queue = "default"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
	if c.UniqueFor <= 0 {
		c.UniqueFor = time.Minute
	}
}

// AsynqQueue implements Enqueuer with an asynq client.
type AsynqQueue struct {
	client *asynq.Client
	cfg    AsynqConfig
}

// NewAsynqQueue connects to the Redis at cfg.RedisURL.
func NewAsynqQueue(cfg AsynqConfig) (*AsynqQueue, error) {
	cfg.applyDefaults()
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse asynq redis url: %w", err)
	}
	return &AsynqQueue{client: asynq.NewClient(opt), cfg: cfg}, nil
}

// Enqueue implements Enqueuer. A task for a key that is already pending, or
// was refreshed within UniqueFor, is dropped without error.
func (q *AsynqQueue) Enqueue(ctx context.Context, task Task) error {
	t, err := newAsynqTask(task, q.cfg)
	if err != nil {
		metrics.RecordTask(false, task.Kind, err)
		return err
	}
	_, err = q.client.EnqueueContext(ctx, t)
	if isDuplicate(err) {
		err = nil
	}
	metrics.RecordTask(false, task.Kind, err)
	if err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// newAsynqTask builds the asynq task for task. The task ID is the cache key,
// not the per-task UUID, so repeated refreshes of one key collide.
func newAsynqTask(task Task, cfg AsynqConfig) (*asynq.Task, error) {
	payload, err := task.Encode()
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(task.Kind, payload, asynqOptions(task, cfg)...), nil
}

func asynqOptions(task Task, cfg AsynqConfig) []asynq.Option {
	return []asynq.Option{
		asynq.TaskID(task.Kind + ":" + task.Key),
		asynq.Queue(cfg.Queue),
		asynq.MaxRetry(cfg.MaxRetry),
		asynq.Retention(cfg.UniqueFor),
		asynq.Timeout(time.Minute),
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

// Close closes the asynq client.
func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// AsynqWorker runs an asynq server. It implements suture.Service.
type AsynqWorker struct {
	cfg     AsynqConfig
	handler Handler
}

// NewAsynqWorker creates a worker processing tasks with handler.
func NewAsynqWorker(cfg AsynqConfig, handler Handler) *AsynqWorker {
	cfg.applyDefaults()
	return &AsynqWorker{cfg: cfg, handler: handler}
}

// ProcessTask implements asynq.Handler.
func (w *AsynqWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	task, err := Decode(t.Payload())
	if err != nil {
		metrics.RecordTask(true, t.Type(), err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	err = w.handler.Handle(ctx, task)
	metrics.RecordTask(true, task.Kind, err)
	return err
}

// Serve starts the asynq server and stops it when ctx is canceled.
func (w *AsynqWorker) Serve(ctx context.Context) error {
	opt, err := asynq.ParseRedisURI(w.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse asynq redis url: %w", err)
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency:     w.cfg.Concurrency,
		Queues:          map[string]int{w.cfg.Queue: 1},
		Logger:          &asynqLogger{logger: logging.WithComponent("asynq")},
		ShutdownTimeout: 10 * time.Second,
	})

	mux := asynq.NewServeMux()
	mux.Handle(KindMetadataRefresh, w)

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	<-ctx.Done()
	srv.Shutdown()
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (w *AsynqWorker) String() string {
	return "task-worker-asynq"
}

// asynqLogger routes asynq logs through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
