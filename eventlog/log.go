// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package eventlog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
)

// ErrUnavailable wraps every failure to append to the log. A vote whose
// append failed must not be reported as accepted.
var ErrUnavailable = errors.New("event log unavailable")

// Message is one log entry delivered to a consumer group.
type Message struct {
	ID     string
	Fields map[string]string
}

// Log is an append-only, multi-consumer message log on Redis Streams.
// Delivery is at-least-once: a message stays pending in its group until acked.
type Log struct {
	pool *redis.Pool
}

func New(pool *redis.Pool) *Log {
	return &Log{pool: pool}
}

// CreateGroup creates a consumer group reading the stream from its start,
// creating the stream if needed. An existing group is not an error.
func (l *Log) CreateGroup(ctx context.Context, stream, group string) error {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "XGROUP", "CREATE", stream, group, "0", "MKSTREAM")
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// Append adds a message and returns its monotonically increasing id.
func (l *Log) Append(ctx context.Context, stream string, fields map[string]string) (string, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	args := redis.Args{stream, "*"}
	for _, k := range sortedKeys(fields) {
		args = args.Add(k, fields[k])
	}

	id, err := redis.String(redis.DoContext(conn, ctx, "XADD", args...))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

// ReadGroup delivers up to count messages never delivered to the group,
// blocking up to block when none are available. A timeout yields no
// messages and no error.
func (l *Log) ReadGroup(ctx context.Context, group, consumer, stream string, count int, block time.Duration) ([]Message, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	args := redis.Args{"GROUP", group, consumer, "COUNT", count}
	if block > 0 {
		args = args.Add("BLOCK", block.Milliseconds())
	}
	args = args.Add("STREAMS", stream, ">")

	reply, err := redis.Values(redis.DoContext(conn, ctx, "XREADGROUP", args...))
	if err == redis.ErrNil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", group, err)
	}

	var msgs []Message
	for _, s := range reply {
		streamReply, err := redis.Values(s, nil)
		if err != nil || len(streamReply) != 2 {
			return nil, fmt.Errorf("read group %s: unexpected reply", group)
		}
		entries, err := parseEntries(streamReply[1])
		if err != nil {
			return nil, fmt.Errorf("read group %s: %w", group, err)
		}
		msgs = append(msgs, entries...)
	}
	return msgs, nil
}

// ClaimStale transfers to consumer up to count messages that have been
// pending in the group for at least minIdle, so work abandoned by a dead
// consumer is redelivered.
func (l *Log) ClaimStale(ctx context.Context, group, consumer, stream string, minIdle time.Duration, count int) ([]Message, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	reply, err := redis.Values(redis.DoContext(conn, ctx, "XAUTOCLAIM",
		stream, group, consumer, minIdle.Milliseconds(), "0-0", "COUNT", count))
	if err != nil {
		return nil, fmt.Errorf("claim pending in %s: %w", group, err)
	}
	if len(reply) < 2 {
		return nil, fmt.Errorf("claim pending in %s: unexpected reply", group)
	}

	msgs, err := parseEntries(reply[1])
	if err != nil {
		return nil, fmt.Errorf("claim pending in %s: %w", group, err)
	}
	return msgs, nil
}

// Ack marks messages as durably processed by the group.
func (l *Log) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "XACK", redis.Args{stream, group}.AddFlat(ids)...)
	if err != nil {
		return fmt.Errorf("ack %v: %w", ids, err)
	}
	return nil
}

// Pending returns the number of messages delivered to the group but not yet
// acknowledged.
func (l *Log) Pending(ctx context.Context, stream, group string) (int64, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	reply, err := redis.Values(redis.DoContext(conn, ctx, "XPENDING", stream, group))
	if err != nil {
		return 0, fmt.Errorf("pending %s: %w", group, err)
	}
	if len(reply) == 0 {
		return 0, nil
	}
	return redis.Int64(reply[0], nil)
}

// parseEntries decodes [[id, [k, v, ...]], ...]. Entries trimmed from the
// stream come back with nil fields and are skipped.
func parseEntries(v interface{}) ([]Message, error) {
	entries, err := redis.Values(v, nil)
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		entry, err := redis.Values(e, nil)
		if err != nil || len(entry) != 2 {
			return nil, errors.New("malformed stream entry")
		}
		id, err := redis.String(entry[0], nil)
		if err != nil {
			return nil, err
		}
		if entry[1] == nil {
			continue
		}
		fields, err := redis.StringMap(entry[1], nil)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{ID: id, Fields: fields})
	}
	return msgs, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
