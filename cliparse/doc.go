// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Environment variables are read first (github.com/caarlos0/env), then CLI
flags are applied on top. CLI flags take precedence over environment variables.

# CLI Flags

	-p           Server port
	-d           Database URL
	-t           Database type (postgres or sqlite)
	-r           Redis URL
	-pepper      HMAC pepper
	-admin-key   Admin key
	-mode        api, worker or all
	-workers     Number of vote processor workers

# Environment Variables

	PORT               → -p (default 3318)
	DATABASE_URL       → -d (required)
	DATABASE_TYPE      → -t (default postgres)
	REDIS_URL          → -r (default redis://localhost:6379/0)
	HMAC_PEPPER        → -pepper (warns when empty)
	ADMIN_KEY          → -admin-key (admin routes disabled when empty)
	MODE               → -mode (default all)
	WORKERS            → -workers (default 1)
	VOTE_STREAM        stream name (votes_stream)
	VOTE_GROUP         consumer group (vote_processors)
	WORKER_BATCH       messages per read (10)
	WORKER_BLOCK       blocking read timeout (5s)
	WORKER_CLAIM_IDLE  idle time before a pending message is reclaimed (30s)
	DEDUP_TTL          dedup barrier key lifetime (8760h)
	DEDUP_FAIL_OPEN    admit votes when Redis is down (true)
	POLLS_CACHE_TTL    polls:public lifetime (5m)
	POLL_CACHE_TTL     poll:{id}:public lifetime (5m)
	HISTORY_LIMIT      poll:{id}:history length (500)

# Validation

ParseFlags returns an error if DATABASE_URL is missing, or if the database
type, mode, port, worker count, batch size, or history limit is invalid.
*/
package cliparse
