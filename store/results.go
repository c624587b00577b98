// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/pulsometro/models"
)

// incrementResult bumps the chosen counter and the total atomically. The
// first vote of a poll creates the row seeded with that vote.
func incrementResult(ctx context.Context, tx *sql.Tx, pollID int64, option models.Option, at time.Time) (models.PollResult, error) {
	var a, b int64
	if option == models.OptionA {
		a = 1
	} else {
		b = 1
	}

	result := models.PollResult{PollID: pollID, UpdatedAt: at}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO poll_results (poll_id, count_a, count_b, total, updated_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (poll_id) DO UPDATE SET
			count_a = poll_results.count_a + excluded.count_a,
			count_b = poll_results.count_b + excluded.count_b,
			total = poll_results.total + 1,
			updated_at = excluded.updated_at
		RETURNING count_a, count_b, total
	`, pollID, a, b, at).Scan(&result.CountA, &result.CountB, &result.Total)
	if err != nil {
		return models.PollResult{}, fmt.Errorf("increment poll result: %w", err)
	}

	return result, nil
}

// GetResult returns the counters of a poll, or a zero result if the poll has
// no votes yet.
func (s *Store) GetResult(ctx context.Context, pollID int64) (models.PollResult, error) {
	result := models.PollResult{PollID: pollID}
	err := s.db.QueryRowContext(ctx, `
		SELECT count_a, count_b, total, updated_at
		FROM poll_results
		WHERE poll_id = $1
	`, pollID).Scan(&result.CountA, &result.CountB, &result.Total, &result.UpdatedAt)

	if err == sql.ErrNoRows {
		return result, nil
	}
	if err != nil {
		return models.PollResult{}, fmt.Errorf("query poll result: %w", err)
	}
	return result, nil
}

// LedgerCounts recomputes a poll's counters from the vote ledger.
func (s *Store) LedgerCounts(ctx context.Context, pollID int64) (models.PollResult, error) {
	result := models.PollResult{PollID: pollID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN option_selected = 'A' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN option_selected = 'B' THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM votes
		WHERE poll_id = $1
	`, pollID).Scan(&result.CountA, &result.CountB, &result.Total)
	if err != nil {
		return models.PollResult{}, fmt.Errorf("count votes: %w", err)
	}
	return result, nil
}
