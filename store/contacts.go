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

// upsertContact inserts a contact unless its normalized email or global
// fingerprint is already known. Conflicts are ignored.
func upsertContact(ctx context.Context, tx *sql.Tx, c models.Contact, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contacts (name, email, email_normalized, email_global_fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, c.Name, c.Email, c.EmailNormalized, c.EmailGlobalFingerprint, at)
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// GetContact looks a contact up by its global fingerprint.
func (s *Store) GetContact(ctx context.Context, globalFP []byte) (models.Contact, error) {
	var c models.Contact
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, email_normalized, email_global_fingerprint, created_at
		FROM contacts
		WHERE email_global_fingerprint = $1
	`, globalFP).Scan(&c.ID, &c.Name, &c.Email, &c.EmailNormalized, &c.EmailGlobalFingerprint, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return models.Contact{}, ErrNotFound
	}
	if err != nil {
		return models.Contact{}, fmt.Errorf("query contact: %w", err)
	}
	return c, nil
}
