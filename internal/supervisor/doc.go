// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package supervisor runs Marquee's long-lived components under a suture v4
supervisor tree.

	root (marquee)
	├── data-layer      Badger value log GC, semantic index maintenance
	├── workers-layer   metadata refresh consumer
	└── api-layer       HTTP server

Each layer is its own supervisor, so restart backoff in one layer does not
stall the others. Supervisor events are routed through sutureslog into the
zerolog-backed slog handler from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
