// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/danielhkuo/pulsometro/fingerprint"
)

// ErrUnavailable is returned by Admit in fail-closed mode when the fast store
// cannot be reached.
var ErrUnavailable = errors.New("dedup store unavailable")

// Barrier is a best-effort duplicate check over Redis. It is advisory: the
// ledger's unique constraint is the authoritative guarantee.
type Barrier struct {
	pool     *redis.Pool
	ttl      time.Duration
	failOpen bool
}

// NewBarrier returns a Barrier whose keys live for ttl. With failOpen set,
// an unreachable Redis admits the vote instead of failing it.
func NewBarrier(pool *redis.Pool, ttl time.Duration, failOpen bool) *Barrier {
	return &Barrier{pool: pool, ttl: ttl, failOpen: failOpen}
}

// Key returns the barrier key for a poll and per-poll fingerprint.
func Key(pollID int64, fp []byte) string {
	return fmt.Sprintf("vote:poll:%d:fp:%s", pollID, fingerprint.Encode(fp))
}

// Admit atomically marks (pollID, fp) as seen. It returns false if the key
// already existed. Two concurrent callers may both be admitted only if Redis
// is bypassed in fail-open mode.
func (b *Barrier) Admit(ctx context.Context, pollID int64, fp []byte) (bool, error) {
	admitted, err := b.setNX(ctx, Key(pollID, fp))
	if err == nil {
		return admitted, nil
	}

	if b.failOpen {
		slog.Warn("dedup barrier unavailable, admitting vote", "poll_id", pollID, "error", err)
		return true, nil
	}
	return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (b *Barrier) setNX(ctx context.Context, key string) (bool, error) {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	_, err = redis.String(redis.DoContext(conn, ctx, "SET", key, "1", "EX", int64(b.ttl/time.Second), "NX"))
	if err == redis.ErrNil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release removes the mark for (pollID, fp) so the identity can retry, e.g.
// after its vote could not be logged.
func (b *Barrier) Release(ctx context.Context, pollID int64, fp []byte) error {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "DEL", Key(pollID, fp))
	return err
}
