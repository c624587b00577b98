// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/pulsometro/models"
)

// RecordVote writes the ledger row, the optional contact, and the counter
// increment in one transaction. If (poll, fingerprint) is already in the
// ledger it returns ErrDuplicateVote and changes nothing.
func (s *Store) RecordVote(ctx context.Context, vote models.Vote, contact *models.Contact) (models.Vote, models.PollResult, error) {
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, models.PollResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO votes (poll_id, option_selected, email_fingerprint, email_prefix2, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, email_fingerprint) DO NOTHING
		RETURNING id
	`, vote.PollID, string(vote.Option), vote.EmailFingerprint, vote.EmailPrefix2, vote.CreatedAt).Scan(&vote.ID)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return models.Vote{}, models.PollResult{}, ErrDuplicateVote
	}
	if err != nil {
		return models.Vote{}, models.PollResult{}, fmt.Errorf("insert vote: %w", err)
	}

	if contact != nil {
		if err := upsertContact(ctx, tx, *contact, vote.CreatedAt); err != nil {
			return models.Vote{}, models.PollResult{}, err
		}
	}

	result, err := incrementResult(ctx, tx, vote.PollID, vote.Option, vote.CreatedAt)
	if err != nil {
		return models.Vote{}, models.PollResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Vote{}, models.PollResult{}, fmt.Errorf("commit vote: %w", err)
	}

	return vote, result, nil
}

// RecentVotes returns a page of the ledger for a poll, newest first.
func (s *Store) RecentVotes(ctx context.Context, pollID int64, limit, offset int) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, option_selected, email_prefix2, created_at
		FROM votes
		WHERE poll_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, pollID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		var option string
		if err := rows.Scan(&v.ID, &v.PollID, &option, &v.EmailPrefix2, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Option = models.Option(option)
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}

	return votes, nil
}

// HasVoted checks the ledger for (poll, fingerprint).
func (s *Store) HasVoted(ctx context.Context, pollID int64, fp []byte) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM votes
			WHERE poll_id = $1 AND email_fingerprint = $2
		)
	`, pollID, fp).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query vote: %w", err)
	}
	return exists, nil
}
