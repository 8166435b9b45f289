// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package services provides suture.Service wrappers for Marquee components.

Every wrapper implements Serve(ctx) error and fmt.Stringer:

  - HTTPServerService: ListenAndServe with graceful shutdown on cancel
  - IndexMaintenanceService: monthly and size-ceiling resets of the semantic index
  - BadgerGCService: periodic value log GC for the on-disk Badger store

Returning an error from Serve asks the supervisor to restart the service;
returning ctx.Err() after cancellation is a clean stop.
*/
package services
