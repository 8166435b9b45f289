// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"fmt"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/tasks"
)

// TaskQueue is an Enqueuer that must be closed at shutdown.
type TaskQueue interface {
	tasks.Enqueuer
	Close() error
}

// initTasks builds the metadata refresh queue for the configured backend and
// registers its consumer with the workers layer.
func initTasks(cfg *config.Config, handler tasks.Handler, tree *supervisor.SupervisorTree) (TaskQueue, error) {
	wmLogger := tasks.NewWatermillLogger()

	switch cfg.Tasks.Backend {
	case config.TasksBackendNATS:
		natsCfg := tasks.NATSConfig{URL: cfg.Tasks.NATSURL}
		publisher, err := tasks.NewNATSPublisher(natsCfg, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("nats publisher: %w", err)
		}
		subscriber, err := tasks.NewNATSSubscriber(natsCfg, wmLogger)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("nats subscriber: %w", err)
		}
		tree.AddWorkerService(tasks.NewWatermillWorker(subscriber, cfg.Tasks.Topic, handler, workerConfig(cfg), wmLogger))
		logging.Info().Str("url", cfg.Tasks.NATSURL).Msg("Task queue: NATS JetStream")
		return tasks.NewWatermillQueue(publisher, cfg.Tasks.Topic), nil

	case config.TasksBackendAsynq:
		asynqCfg := tasks.AsynqConfig{
			RedisURL:    cfg.Redis.URL,
			Queue:       cfg.Tasks.Queue,
			Concurrency: cfg.Tasks.Concurrency,
			MaxRetry:    cfg.Tasks.MaxRetry,
		}
		queue, err := tasks.NewAsynqQueue(asynqCfg)
		if err != nil {
			return nil, err
		}
		tree.AddWorkerService(tasks.NewAsynqWorker(asynqCfg, handler))
		logging.Info().Str("queue", asynqCfg.Queue).Msg("Task queue: asynq")
		return queue, nil

	default:
		pubsub := tasks.NewChannelPubSub(wmLogger)
		tree.AddWorkerService(tasks.NewWatermillWorker(pubsub, cfg.Tasks.Topic, handler, workerConfig(cfg), wmLogger))
		logging.Info().Msg("Task queue: in-process channel")
		return tasks.NewWatermillQueue(pubsub, cfg.Tasks.Topic), nil
	}
}

func workerConfig(cfg *config.Config) tasks.WorkerConfig {
	wc := tasks.DefaultWorkerConfig()
	if cfg.Tasks.MaxRetry > 0 {
		wc.MaxRetries = cfg.Tasks.MaxRetry
	}
	return wc
}
