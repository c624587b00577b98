// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"

	"github.com/danielhkuo/pulsometro/cliparse"
	"github.com/danielhkuo/pulsometro/db"
)

// TestPepper is the HMAC pepper used by GetTestConfig.
const TestPepper = "test-pepper"

// TestAdminKey is the admin key used by GetTestConfig.
const TestAdminKey = "test-admin-key"

// SetupTestDB opens a fresh in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// SetupRedis starts a miniredis server and returns it with a pool dialing it.
// Both are closed when the test ends.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Pool) {
	t.Helper()

	s := miniredis.RunT(t)
	addr := s.Addr()
	pool := &redis.Pool{
		MaxIdle: 4,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
	t.Cleanup(func() { pool.Close() })
	return s, pool
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   ":memory:",
		DatabaseType:  db.DialectSQLite,
		RedisURL:      "redis://localhost:6379/0",
		HMACPepper:    TestPepper,
		AdminKey:      TestAdminKey,
		Mode:          cliparse.ModeAll,
		Workers:       1,
		StreamName:    "votes_stream",
		ConsumerGroup: "vote_processors",
		BatchSize:     10,
		BlockTimeout:  20 * time.Millisecond,
		ClaimIdle:     30 * time.Second,
		DedupTTL:      365 * 24 * time.Hour,
		DedupFailOpen: true,
		ListCacheTTL:  5 * time.Minute,
		PollCacheTTL:  5 * time.Minute,
		HistoryLimit:  500,
	}
}

// CreateTestPoll inserts a poll and returns its ID
func CreateTestPoll(t *testing.T, conn *sql.DB, title string, active bool) int64 {
	t.Helper()

	var id int64
	err := conn.QueryRow(`
		INSERT INTO polls (title, option_a_label, option_b_label, is_active, created_at)
		VALUES ($1, 'Yes', 'No', $2, $3)
		RETURNING id
	`, title, active, time.Now().UTC()).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return id
}

// CountVotes returns the number of ledger rows for a poll
func CountVotes(t *testing.T, conn *sql.DB, pollID int64) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM votes WHERE poll_id = $1`, pollID).Scan(&n); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
