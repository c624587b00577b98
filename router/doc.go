// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Pulsometro API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, redisPool, cfg)

# Endpoints

Health:

	GET /health

Reads (public, served from the Redis cache):

	GET /api/polls                               - Active polls with counts
	GET /api/polls/{id}?page=&pageSize=          - Stats and masked history

Voting (public):

	POST /api/polls/{id}/vote - Queue a vote (202)

Poll administration (requires X-Admin-Key):

	POST /api/admin/polls                 - Create poll
	POST /api/admin/polls/{id}/activate   - Reopen poll
	POST /api/admin/polls/{id}/deactivate - Close poll

# Component Initialization

The router builds the request-path components from the connections:

	st := store.New(db)
	sync := views.NewSynchronizer(st, cache.New(pool, ...))
	votes := voting.NewService(st, dedup.NewBarrier(pool, ...), eventlog.New(pool), hasher, stream)

Vote processing runs separately (see package processor).
*/
package router
