// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package processor turns logged votes into ledger rows and counter updates.

# Message lifecycle

	received -> recorded (or duplicate) -> views synced -> acknowledged

Handle decodes the message, calls Ledger.RecordVote (vote row, contact, and
counter increment in one transaction), notifies the views, and acknowledges.
A duplicate from the ledger's uniqueness check is a successful no-op and is
acknowledged. Any other error leaves the message pending; it is reclaimed by
a worker after WorkerConfig.ClaimIdle and handled again.

Messages that cannot be decoded are appended to "<stream>:dead" with an
"error" field and acknowledged.

# Workers

A Worker loops until its context is cancelled:

 1. claim messages pending longer than ClaimIdle (XAUTOCLAIM)
 2. otherwise read up to BatchSize new messages, blocking up to Block
 3. handle each one with a context that is not cancelled by shutdown

The consumer group is created first; failures there, read errors, and
batches in which every message failed are logged and retried after Backoff.
Only cancellation ends Run. ClaimIdle defaults to DefaultClaimIdle. A Pool
runs N workers under one consumer group with errgroup.
*/
package processor
