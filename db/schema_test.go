// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"testing"
	"time"
)

func TestCreateSchemaIdempotent(t *testing.T) {
	conn, err := Open(DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := CreateSchema(conn, DialectSQLite); err != nil {
			t.Fatalf("CreateSchema() run %d error = %v", i+1, err)
		}
	}
}

func TestCreateSchemaUnknownDialect(t *testing.T) {
	conn, err := Open(DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn, "mysql"); err == nil {
		t.Error("expected error for unsupported dialect")
	}
}

func TestVoteUniqueness(t *testing.T) {
	conn, err := Open(DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn, DialectSQLite); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	now := time.Now().UTC()
	_, err = conn.Exec(`
		INSERT INTO polls (title, option_a_label, option_b_label, is_active, created_at)
		VALUES ('Q', 'Yes', 'No', TRUE, $1)
	`, now)
	if err != nil {
		t.Fatalf("failed to insert poll: %v", err)
	}

	insert := `
		INSERT INTO votes (poll_id, option_selected, email_fingerprint, email_prefix2, created_at)
		VALUES (1, 'A', $1, 'ab', $2)
	`
	fp := []byte("0123456789abcdef0123456789abcdef")
	if _, err := conn.Exec(insert, fp, now); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := conn.Exec(insert, fp, now); err == nil {
		t.Error("expected unique constraint violation on second insert")
	}
}

func TestOpenUnknownDialect(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("expected error for unsupported dialect")
	}
}
