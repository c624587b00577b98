// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/danielhkuo/pulsometro/dedup"
	"github.com/danielhkuo/pulsometro/fingerprint"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/store"
)

var (
	ErrValidation    = errors.New("invalid vote")
	ErrInvalidName   = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidEmail  = fmt.Errorf("%w: email is not valid", ErrValidation)
	ErrInvalidOption = fmt.Errorf("%w: option must be A or B", ErrValidation)
	ErrPollNotFound  = errors.New("poll not found or not active")
	ErrAlreadyVoted  = errors.New("already voted in this poll")
	ErrUnavailable   = errors.New("vote intake unavailable")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Polls looks up votable polls and the votes already counted in them.
type Polls interface {
	GetActivePoll(ctx context.Context, id int64) (models.Poll, error)
	HasVoted(ctx context.Context, pollID int64, fp []byte) (bool, error)
}

// Barrier is the fast duplicate check.
type Barrier interface {
	Admit(ctx context.Context, pollID int64, fp []byte) (bool, error)
	Release(ctx context.Context, pollID int64, fp []byte) error
}

// Log is the durable event log votes are appended to.
type Log interface {
	Append(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// Service accepts votes: it validates them, filters obvious duplicates, and
// appends them to the event log for asynchronous processing.
type Service struct {
	polls   Polls
	barrier Barrier
	log     Log
	hasher  *fingerprint.Hasher
	stream  string
}

func NewService(polls Polls, barrier Barrier, log Log, hasher *fingerprint.Hasher, stream string) *Service {
	return &Service{
		polls:   polls,
		barrier: barrier,
		log:     log,
		hasher:  hasher,
		stream:  stream,
	}
}

// Submit admits a vote and returns the id of its log message. Acceptance
// means the vote is durably queued, not yet counted.
func (s *Service) Submit(ctx context.Context, pollID int64, req models.VoteRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", ErrInvalidName
	}
	email := fingerprint.Normalize(req.Email)
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	if !req.Option.Valid() {
		return "", ErrInvalidOption
	}

	if _, err := s.polls.GetActivePoll(ctx, pollID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrPollNotFound
		}
		return "", fmt.Errorf("look up poll: %w", err)
	}

	fp := s.hasher.PerPoll(pollID, email)

	// The barrier forgets identities once its keys expire or Redis loses
	// them; the ledger does not.
	voted, err := s.polls.HasVoted(ctx, pollID, fp)
	if err != nil {
		slog.Warn("failed to check ledger for vote", "poll_id", pollID, "error", err)
	}
	if voted {
		return "", ErrAlreadyVoted
	}

	admitted, err := s.barrier.Admit(ctx, pollID, fp)
	if err != nil {
		if errors.Is(err, dedup.ErrUnavailable) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}
	if !admitted {
		return "", ErrAlreadyVoted
	}

	msg := models.VoteMessage{
		PollID:           pollID,
		Option:           req.Option,
		EmailFingerprint: fingerprint.Encode(fp),
		EmailPrefix2:     fingerprint.Prefix2(email),
		Name:             name,
		Email:            email,
	}

	id, err := s.log.Append(ctx, s.stream, msg.Fields())
	if err != nil {
		// Never logged, so the identity must be able to retry.
		if relErr := s.barrier.Release(context.WithoutCancel(ctx), pollID, fp); relErr != nil {
			slog.Error("failed to release dedup key", "poll_id", pollID, "error", relErr)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	slog.Info("vote accepted", "poll_id", pollID, "message_id", id)
	return id, nil
}
