// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package credentials stores per-user provider keys and keeps Trakt OAuth
tokens fresh.

# Refresh Coordination

Several replicas may serve the same user at once. Coordinator.Ensure refreshes
a token only while holding a short lease in the shared cache backend
(lease:oauth:<userID>), so one refresh happens per expiry window:

	coord := credentials.NewCoordinator(store, lease, traktClient, credentials.Options{})
	creds = coord.Ensure(ctx, creds)

Ensure never fails a request. When the lease is busy, the refresh fails or the
stored expiry is unreadable, the caller's credentials are returned unchanged.

# Storage

BadgerStore persists CredentialSets in an embedded BadgerDB under cred:<userID>.
Persisted expiries are padded 60 seconds early so a token is never used in its
final minute.
*/
package credentials
