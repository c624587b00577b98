// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/danielhkuo/pulsometro/models"
)

// ErrHistoryContention is returned when pushes keep changing a history list
// while it is being rebuilt.
var ErrHistoryContention = errors.New("history changed during rebuild")

// Cache keys
const (
	PollListKey = "polls:public"
)

func PollDetailKey(pollID int64) string {
	return fmt.Sprintf("poll:%d:public", pollID)
}

func HistoryKey(pollID int64) string {
	return fmt.Sprintf("poll:%d:history", pollID)
}

// Cache stores computed read views in Redis. Every value in it is a hint:
// callers fall back to the primary store on a miss or an error.
type Cache struct {
	pool         *redis.Pool
	listTTL      time.Duration
	detailTTL    time.Duration
	historyLimit int
}

func New(pool *redis.Pool, listTTL, detailTTL time.Duration, historyLimit int) *Cache {
	return &Cache{
		pool:         pool,
		listTTL:      listTTL,
		detailTTL:    detailTTL,
		historyLimit: historyLimit,
	}
}

// HistoryLimit is the maximum length of a poll's cached history.
func (c *Cache) HistoryLimit() int {
	return c.historyLimit
}

// PollList returns the cached list of active polls. ok is false on a miss.
func (c *Cache) PollList(ctx context.Context) (items []models.PollListItem, ok bool, err error) {
	ok, err = c.getJSON(ctx, PollListKey, &items)
	return items, ok, err
}

func (c *Cache) SetPollList(ctx context.Context, items []models.PollListItem) error {
	return c.setJSON(ctx, PollListKey, items, c.listTTL)
}

// PollDetail returns the cached detail of a poll. ok is false on a miss.
func (c *Cache) PollDetail(ctx context.Context, pollID int64) (detail models.PollDetail, ok bool, err error) {
	ok, err = c.getJSON(ctx, PollDetailKey(pollID), &detail)
	return detail, ok, err
}

func (c *Cache) SetPollDetail(ctx context.Context, detail models.PollDetail) error {
	return c.setJSON(ctx, PollDetailKey(detail.ID), detail, c.detailTTL)
}

// Invalidate deletes the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "DEL", redis.Args{}.AddFlat(keys)...)
	return err
}

// PushHistory puts entry at the front of a poll's history and trims it to
// the history limit.
func (c *Cache) PushHistory(ctx context.Context, pollID int64, entry models.HistoryEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	key := HistoryKey(pollID)
	conn.Send("MULTI")
	conn.Send("LPUSH", key, b)
	conn.Send("LTRIM", key, 0, c.historyLimit-1)
	_, err = redis.DoContext(conn, ctx, "EXEC")
	return err
}

// rebuildAttempts bounds the WATCH retries of ReplaceHistory.
const rebuildAttempts = 5

// ReplaceHistory rebuilds a poll's history from entries ordered newest
// first. Entries already in the list are merged in by vote id, so a push
// that lands while the caller was reading the ledger survives the rebuild.
func (c *Cache) ReplaceHistory(ctx context.Context, pollID int64, entries []models.HistoryEntry) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	key := HistoryKey(pollID)
	for attempt := 0; attempt < rebuildAttempts; attempt++ {
		if _, err := redis.DoContext(conn, ctx, "WATCH", key); err != nil {
			return err
		}

		raw, err := redis.ByteSlices(redis.DoContext(conn, ctx, "LRANGE", key, 0, -1))
		if err != nil {
			conn.Do("UNWATCH")
			return err
		}

		merged := mergeHistory(entries, decodeEntries(raw), c.historyLimit)
		args := redis.Args{key}
		for _, e := range merged {
			b, err := json.Marshal(e)
			if err != nil {
				conn.Do("UNWATCH")
				return err
			}
			args = args.Add(b)
		}

		conn.Send("MULTI")
		conn.Send("DEL", key)
		if len(merged) > 0 {
			conn.Send("RPUSH", args...)
		}
		reply, err := redis.DoContext(conn, ctx, "EXEC")
		if err != nil {
			return err
		}
		// A nil reply means a push touched the key after WATCH
		if reply != nil {
			return nil
		}
	}
	return ErrHistoryContention
}

// History returns the cached entries in [start, stop] (inclusive, newest
// first). Undecodable entries are skipped.
func (c *Cache) History(ctx context.Context, pollID int64, start, stop int) ([]models.HistoryEntry, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	raw, err := redis.ByteSlices(redis.DoContext(conn, ctx, "LRANGE", HistoryKey(pollID), start, stop))
	if err != nil {
		return nil, err
	}
	return decodeEntries(raw), nil
}

func decodeEntries(raw [][]byte) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(raw))
	for _, b := range raw {
		var e models.HistoryEntry
		if err := json.Unmarshal(b, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// mergeHistory unions two entry lists by vote id, newest id first, keeping
// at most limit entries.
func mergeHistory(a, b []models.HistoryEntry, limit int) []models.HistoryEntry {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]models.HistoryEntry, 0, len(a)+len(b))
	for _, list := range [][]models.HistoryEntry{a, b} {
		for _, e := range list {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(x, y models.HistoryEntry) int {
		return cmp.Compare(y.ID, x.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (c *Cache) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	b, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", key))
	if err == redis.ErrNil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "SET", key, b, "PX", ttl.Milliseconds())
	return err
}
