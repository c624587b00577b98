// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package eventlog is the durable vote log, built on Redis Streams.

# Operations

	log := eventlog.New(pool)
	log.CreateGroup(ctx, "votes_stream", "vote_processors")       // XGROUP CREATE ... MKSTREAM, idempotent
	id, err := log.Append(ctx, "votes_stream", fields)            // XADD
	msgs, err := log.ReadGroup(ctx, group, consumer, stream, 10, 5*time.Second) // XREADGROUP ... >
	log.Ack(ctx, stream, group, id)                               // XACK
	msgs, err = log.ClaimStale(ctx, group, consumer, stream, 30*time.Second, 10) // XAUTOCLAIM

# Delivery

Each consumer group keeps its own cursor. A message read by a consumer stays
pending until it is acknowledged; ClaimStale hands pending messages that went
idle to another consumer. Delivery is therefore at-least-once and consumers
must be idempotent.

Append failures wrap ErrUnavailable and must reach the caller.
*/
package eventlog
