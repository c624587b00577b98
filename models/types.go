// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Option is one of the two fixed answers of a poll.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// Valid reports whether o is one of the two fixed options.
func (o Option) Valid() bool {
	return o == OptionA || o == OptionB
}

// Request types

type VoteRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Option Option `json:"option"`
}

type CreatePollRequest struct {
	Title        string `json:"title"`
	OptionALabel string `json:"option_a_label"`
	OptionBLabel string `json:"option_b_label"`
}

// Response types

type VoteAcceptedResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}

type CreatePollResponse struct {
	PollID int64 `json:"poll_id"`
}

type PollStatusResponse struct {
	PollID   int64 `json:"poll_id"`
	IsActive bool  `json:"is_active"`
}

type PollListItem struct {
	ID           int64     `json:"id"`
	Question     string    `json:"question"`
	OptionALabel string    `json:"option_a_label"`
	OptionBLabel string    `json:"option_b_label"`
	VotesFor     int64     `json:"votes_for"`
	VotesAgainst int64     `json:"votes_against"`
	TotalVotes   int64     `json:"total_votes"`
	CreatedAt    time.Time `json:"created_at"`
}

type PollStats struct {
	CountA      int64 `json:"count_a"`
	CountB      int64 `json:"count_b"`
	Total       int64 `json:"total"`
	PercentageA int   `json:"percentage_a"`
	PercentageB int   `json:"percentage_b"`
}

type PollDetail struct {
	ID           int64     `json:"id"`
	Question     string    `json:"question"`
	OptionALabel string    `json:"option_a_label"`
	OptionBLabel string    `json:"option_b_label"`
	Stats        PollStats `json:"stats"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryEntry is a masked vote as shown publicly. It never carries the
// fingerprint or the email, only a two-character prefix.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Option      Option    `json:"option"`
	EmailPrefix string    `json:"email_prefix"`
	CreatedAt   time.Time `json:"created_at"`
}

type PollHistoryResponse struct {
	Poll     PollDetail     `json:"poll"`
	History  []HistoryEntry `json:"history"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int64          `json:"total"`
}

// Domain types

type Poll struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	OptionALabel string    `json:"option_a_label"`
	OptionBLabel string    `json:"option_b_label"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Vote is a ledger row. (PollID, EmailFingerprint) is unique.
type Vote struct {
	ID               int64     `json:"id"`
	PollID           int64     `json:"poll_id"`
	Option           Option    `json:"option"`
	EmailFingerprint []byte    `json:"-"` // Never expose in JSON
	EmailPrefix2     string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// HistoryEntry returns the masked public view of the vote.
func (v Vote) HistoryEntry() HistoryEntry {
	return HistoryEntry{
		ID:          v.ID,
		Option:      v.Option,
		EmailPrefix: v.EmailPrefix2 + "**",
		CreatedAt:   v.CreatedAt,
	}
}

// PollResult holds the aggregate counters of a poll.
type PollResult struct {
	PollID    int64     `json:"poll_id"`
	CountA    int64     `json:"count_a"`
	CountB    int64     `json:"count_b"`
	Total     int64     `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats computes rounded percentages for the result.
func (r PollResult) Stats() PollStats {
	s := PollStats{CountA: r.CountA, CountB: r.CountB, Total: r.Total}
	if r.Total > 0 {
		s.PercentageA = percent(r.CountA, r.Total)
		s.PercentageB = percent(r.CountB, r.Total)
	}
	return s
}

func percent(n, total int64) int {
	// round half up without float drift
	return int((n*200 + total) / (2 * total))
}

// Contact is a deduplicated outreach contact keyed by the global fingerprint.
type Contact struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	EmailNormalized        string    `json:"email_normalized"`
	EmailGlobalFingerprint []byte    `json:"-"`
	CreatedAt              time.Time `json:"created_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
