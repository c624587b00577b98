// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the primary store and the shared Redis pool, and creates the schema.

# Connections

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)  // "postgres" or "sqlite"
	pool := db.NewRedisPool(cfg.RedisURL)

Postgres is the production store (github.com/lib/pq). SQLite
(modernc.org/sqlite) is used for local runs and tests; its pool is limited to
one connection.

# Schema Creation

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - polls: title, two option labels, active flag
  - poll_results: one counter row per poll (count_a + count_b = total)
  - votes: append-only ledger, UNIQUE (poll_id, email_fingerprint)
  - contacts: one row per normalized email, UNIQUE global fingerprint

# Relationships

	polls 1──1 poll_results
	polls 1──* votes

The votes uniqueness constraint is the single source of truth for "has this
identity already voted on this poll". Every other check is advisory.
*/
package db
