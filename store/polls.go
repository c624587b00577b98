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

// CreatePoll inserts an active poll.
func (s *Store) CreatePoll(ctx context.Context, title, optionA, optionB string) (models.Poll, error) {
	poll := models.Poll{
		Title:        title,
		OptionALabel: optionA,
		OptionBLabel: optionB,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO polls (title, option_a_label, option_b_label, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id
	`, poll.Title, poll.OptionALabel, poll.OptionBLabel, poll.CreatedAt).Scan(&poll.ID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("insert poll: %w", err)
	}

	return poll, nil
}

// SetPollActive flips the activation flag, the only mutable poll attribute.
func (s *Store) SetPollActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE polls SET is_active = $1 WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetActivePoll returns the poll if it exists and is active.
func (s *Store) GetActivePoll(ctx context.Context, id int64) (models.Poll, error) {
	var poll models.Poll
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, option_a_label, option_b_label, is_active, created_at
		FROM polls
		WHERE id = $1 AND is_active = TRUE
	`, id).Scan(
		&poll.ID, &poll.Title, &poll.OptionALabel, &poll.OptionBLabel,
		&poll.IsActive, &poll.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("query poll: %w", err)
	}
	return poll, nil
}

// ListActivePolls returns active polls, newest first, joined with their
// counters. Polls without votes report zero counts.
func (s *Store) ListActivePolls(ctx context.Context) ([]models.PollListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.option_a_label, p.option_b_label,
		       COALESCE(r.count_a, 0), COALESCE(r.count_b, 0), COALESCE(r.total, 0),
		       p.created_at
		FROM polls p
		LEFT JOIN poll_results r ON r.poll_id = p.id
		WHERE p.is_active = TRUE
		ORDER BY p.created_at DESC, p.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	defer rows.Close()

	items := []models.PollListItem{}
	for rows.Next() {
		var item models.PollListItem
		if err := rows.Scan(
			&item.ID, &item.Question, &item.OptionALabel, &item.OptionBLabel,
			&item.VotesFor, &item.VotesAgainst, &item.TotalVotes, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polls: %w", err)
	}

	return items, nil
}
