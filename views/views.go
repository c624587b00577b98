// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/pulsometro/cache"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/store"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

var ErrNotFound = errors.New("poll not found")

// Store is the read side of the primary store.
type Store interface {
	ListActivePolls(ctx context.Context) ([]models.PollListItem, error)
	GetActivePoll(ctx context.Context, id int64) (models.Poll, error)
	GetResult(ctx context.Context, pollID int64) (models.PollResult, error)
	RecentVotes(ctx context.Context, pollID int64, limit, offset int) ([]models.Vote, error)
}

// Cache holds the precomputed views.
type Cache interface {
	PollList(ctx context.Context) ([]models.PollListItem, bool, error)
	SetPollList(ctx context.Context, items []models.PollListItem) error
	PollDetail(ctx context.Context, pollID int64) (models.PollDetail, bool, error)
	SetPollDetail(ctx context.Context, detail models.PollDetail) error
	Invalidate(ctx context.Context, keys ...string) error
	PushHistory(ctx context.Context, pollID int64, entry models.HistoryEntry) error
	ReplaceHistory(ctx context.Context, pollID int64, entries []models.HistoryEntry) error
	History(ctx context.Context, pollID int64, start, stop int) ([]models.HistoryEntry, error)
	HistoryLimit() int
}

// Synchronizer keeps the cached views in step with the primary store and
// serves the public read paths from them.
type Synchronizer struct {
	store Store
	cache Cache
}

func NewSynchronizer(s Store, c Cache) *Synchronizer {
	return &Synchronizer{store: s, cache: c}
}

// VoteRecorded publishes a freshly recorded vote to the cached views. Cache
// failures are logged and swallowed: the store is already authoritative.
func (s *Synchronizer) VoteRecorded(ctx context.Context, vote models.Vote) {
	if err := s.cache.PushHistory(ctx, vote.PollID, vote.HistoryEntry()); err != nil {
		slog.Warn("failed to push vote history", "poll_id", vote.PollID, "vote_id", vote.ID, "error", err)
	}
	s.PollChanged(ctx, vote.PollID)
}

// PollChanged drops the cached list and detail so the next read rebuilds
// them from the store.
func (s *Synchronizer) PollChanged(ctx context.Context, pollID int64) {
	if err := s.cache.Invalidate(ctx, cache.PollDetailKey(pollID), cache.PollListKey); err != nil {
		slog.Warn("failed to invalidate poll cache", "poll_id", pollID, "error", err)
	}
}

// ListPolls returns the active polls with their counts.
func (s *Synchronizer) ListPolls(ctx context.Context) ([]models.PollListItem, error) {
	items, ok, err := s.cache.PollList(ctx)
	if err != nil {
		slog.Warn("failed to read poll list cache", "error", err)
	}
	if ok {
		return items, nil
	}

	items, err = s.store.ListActivePolls(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetPollList(ctx, items); err != nil {
		slog.Warn("failed to write poll list cache", "error", err)
	}
	return items, nil
}

// PollDetail returns a poll's stats and one page of its masked history.
// Inactive and unknown polls return ErrNotFound.
func (s *Synchronizer) PollDetail(ctx context.Context, pollID int64, page, pageSize int) (models.PollHistoryResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	detail, err := s.detail(ctx, pollID)
	if err != nil {
		return models.PollHistoryResponse{}, err
	}

	history, err := s.history(ctx, pollID, (page-1)*pageSize, pageSize, detail.Stats.Total)
	if err != nil {
		return models.PollHistoryResponse{}, err
	}

	return models.PollHistoryResponse{
		Poll:     detail,
		History:  history,
		Page:     page,
		PageSize: pageSize,
		Total:    detail.Stats.Total,
	}, nil
}

func (s *Synchronizer) detail(ctx context.Context, pollID int64) (models.PollDetail, error) {
	detail, ok, err := s.cache.PollDetail(ctx, pollID)
	if err != nil {
		slog.Warn("failed to read poll cache", "poll_id", pollID, "error", err)
	}
	if ok {
		return detail, nil
	}

	poll, err := s.store.GetActivePoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PollDetail{}, ErrNotFound
	}
	if err != nil {
		return models.PollDetail{}, err
	}

	result, err := s.store.GetResult(ctx, pollID)
	if err != nil {
		return models.PollDetail{}, err
	}

	detail = models.PollDetail{
		ID:           poll.ID,
		Question:     poll.Title,
		OptionALabel: poll.OptionALabel,
		OptionBLabel: poll.OptionBLabel,
		Stats:        result.Stats(),
		CreatedAt:    poll.CreatedAt,
	}

	if err := s.cache.SetPollDetail(ctx, detail); err != nil {
		slog.Warn("failed to write poll cache", "poll_id", pollID, "error", err)
	}
	return detail, nil
}

// history serves a page from the cached list when it covers the page, and
// from the ledger otherwise.
func (s *Synchronizer) history(ctx context.Context, pollID int64, start, size int, total int64) ([]models.HistoryEntry, error) {
	limit := s.cache.HistoryLimit()

	if start+size <= limit {
		cached, err := s.cache.History(ctx, pollID, start, start+size-1)
		if err != nil {
			slog.Warn("failed to read history cache", "poll_id", pollID, "error", err)
		} else {
			cached = dedupeEntries(cached)
			if len(cached) == size || int64(start+len(cached)) >= total {
				return cached, nil
			}
		}
	}

	votes, err := s.store.RecentVotes(ctx, pollID, size, start)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(votes))
	for _, v := range votes {
		entries = append(entries, v.HistoryEntry())
	}

	if start < limit {
		s.rebuildHistory(ctx, pollID, limit)
	}
	return entries, nil
}

func (s *Synchronizer) rebuildHistory(ctx context.Context, pollID int64, limit int) {
	votes, err := s.store.RecentVotes(ctx, pollID, limit, 0)
	if err != nil {
		slog.Warn("failed to load history for cache", "poll_id", pollID, "error", err)
		return
	}

	entries := make([]models.HistoryEntry, 0, len(votes))
	for _, v := range votes {
		entries = append(entries, v.HistoryEntry())
	}

	if err := s.cache.ReplaceHistory(ctx, pollID, entries); err != nil {
		slog.Warn("failed to rebuild history cache", "poll_id", pollID, "error", err)
	}
}

// dedupeEntries drops repeated vote ids, which appear when a push races a
// rebuild.
func dedupeEntries(entries []models.HistoryEntry) []models.HistoryEntry {
	seen := make(map[int64]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
