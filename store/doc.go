// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the primary-store adapter: polls, the vote ledger, the
per-poll aggregate counters, and outreach contacts.

# Ledger write

RecordVote is the only write path for votes. Inside one transaction it

 1. inserts the ledger row, relying on UNIQUE(poll_id, email_fingerprint)
    to reject a second vote from the same identity,
 2. inserts the contact when one is supplied, ignoring conflicts,
 3. increments poll_results with an upsert so the first vote seeds the row.

A duplicate returns ErrDuplicateVote and leaves every table untouched. A
failure after step 1 rolls the ledger row back, so a redelivered message can
never find its vote recorded without the matching counter increment.

# Dialects

The same SQL (with $N placeholders, ON CONFLICT and RETURNING) runs on
Postgres through lib/pq and on SQLite through modernc.org/sqlite.
*/
package store
