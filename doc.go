// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Pulsometro vote pipeline.

Pulsometro runs two-option opinion polls. Votes are accepted quickly and
counted asynchronously, with at most one counted vote per email per poll.

# Starting the Server

Configuration comes from the environment (optionally a .env file) and CLI
flags, which take precedence:

	DATABASE_URL=postgres://... REDIS_URL=redis://localhost:6379/0 go run .

	go run . -t sqlite -d pulsometro.db -mode all -workers 2

# Configuration

Required settings:

  - DATABASE_URL (-d): primary store connection string or SQLite file
  - HMAC_PEPPER (-pepper): secret for email fingerprints (warns if unset)
  - ADMIN_KEY (-admin-key): enables the admin routes

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): postgres or sqlite (default: postgres)
  - REDIS_URL (-r): dedup barrier, event log, and read caches
  - MODE (-mode): api, worker, or all (default: all)
  - WORKERS (-workers): vote processors in this process (default: 1)

See package cliparse for the remaining tuning variables.

# Architecture

	POST vote → voting (fingerprint → dedup barrier → eventlog append) → 202
	eventlog → processor workers → store (ledger + counters) → views → cache

  - fingerprint: email normalization and keyed HMAC fingerprints
  - dedup: Redis SET NX barrier against duplicate submissions
  - eventlog: Redis Streams consumer-group log
  - processor: idempotent vote processing and worker pool
  - store: SQL ledger, aggregates, contacts, polls
  - views, cache: cached read paths and their synchronization
  - handlers, router, middleware: HTTP surface
  - db: connections and schema; cliparse: configuration

On SIGINT or SIGTERM the HTTP server shuts down gracefully and workers stop
reading after acknowledging what they are processing.
*/
package main
