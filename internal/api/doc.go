// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package api provides the HTTP surface of Marquee using the chi router.

Routes:

	GET  /api/v1/catalog/{type}/search?q=&lang=&user=   query-driven recommendations
	GET  /api/v1/catalog/{type}/history?user=&lang=     watch-history recommendations
	GET  /api/v1/trending/{type}?lang=                  most recent top results
	PUT  /api/v1/users/{userID}/credentials             store provider keys and Trakt tokens
	GET  /api/v1/admin/semantic                         semantic index size and last reset
	POST /api/v1/admin/semantic/reset                   clear the semantic index
	GET  /api/v1/stats                                  request counters
	GET  /api/v1/health/live, /api/v1/health/ready      probes
	GET  /metrics                                       Prometheus exposition

Every response uses the models.APIResponse envelope. Catalog and trending
payloads always carry a metas list, never null. Internal error details are
logged with the request ID and never returned to the client.

Handlers hold no business logic: they parse and validate the request, call
the enrichment orchestrator or a store, and encode the result.
*/
package api
