// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/pulsometro/eventlog"
	"github.com/danielhkuo/pulsometro/fingerprint"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/store"
)

// FieldError is added to dead-lettered messages.
const FieldError = "error"

// Outcome is the terminal state of a handled message.
type Outcome int

const (
	Recorded Outcome = iota
	Duplicate
	DeadLettered
)

func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case Duplicate:
		return "duplicate"
	case DeadLettered:
		return "dead-lettered"
	}
	return "unknown"
}

// Ledger records votes and their counter increments atomically.
type Ledger interface {
	RecordVote(ctx context.Context, vote models.Vote, contact *models.Contact) (models.Vote, models.PollResult, error)
}

// Views is notified of every newly recorded vote.
type Views interface {
	VoteRecorded(ctx context.Context, vote models.Vote)
}

// Log is the consumer side of the event log.
type Log interface {
	CreateGroup(ctx context.Context, stream, group string) error
	Append(ctx context.Context, stream string, fields map[string]string) (string, error)
	ReadGroup(ctx context.Context, group, consumer, stream string, count int, block time.Duration) ([]eventlog.Message, error)
	ClaimStale(ctx context.Context, group, consumer, stream string, minIdle time.Duration, count int) ([]eventlog.Message, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
}

// Processor applies logged votes to the ledger. Handling a message any
// number of times has the same effect as handling it once.
type Processor struct {
	ledger Ledger
	views  Views
	log    Log
	hasher *fingerprint.Hasher
	stream string
	group  string
}

func New(ledger Ledger, views Views, log Log, hasher *fingerprint.Hasher, stream, group string) *Processor {
	return &Processor{
		ledger: ledger,
		views:  views,
		log:    log,
		hasher: hasher,
		stream: stream,
		group:  group,
	}
}

// DeadLetterStream is where undecodable messages of stream are moved.
func DeadLetterStream(stream string) string {
	return stream + ":dead"
}

// Handle processes one message and acknowledges it. On error the message is
// left pending so the log redelivers it.
func (p *Processor) Handle(ctx context.Context, msg eventlog.Message) (Outcome, error) {
	vote, contact, err := p.decode(msg)
	if err != nil {
		return p.deadLetter(ctx, msg, err)
	}

	recorded, result, err := p.ledger.RecordVote(ctx, vote, contact)
	if errors.Is(err, store.ErrDuplicateVote) {
		if err := p.log.Ack(ctx, p.stream, p.group, msg.ID); err != nil {
			return Duplicate, fmt.Errorf("ack duplicate: %w", err)
		}
		slog.Info("duplicate vote ignored", "message_id", msg.ID, "poll_id", vote.PollID)
		return Duplicate, nil
	}
	if err != nil {
		return Recorded, fmt.Errorf("record vote: %w", err)
	}

	p.views.VoteRecorded(ctx, recorded)

	if err := p.log.Ack(ctx, p.stream, p.group, msg.ID); err != nil {
		return Recorded, fmt.Errorf("ack vote: %w", err)
	}

	slog.Info("vote processed",
		"message_id", msg.ID,
		"poll_id", recorded.PollID,
		"vote_id", recorded.ID,
		"total", result.Total,
	)
	return Recorded, nil
}

func (p *Processor) decode(msg eventlog.Message) (models.Vote, *models.Contact, error) {
	m, err := models.ParseVoteMessage(msg.Fields)
	if err != nil {
		return models.Vote{}, nil, err
	}

	fp, err := fingerprint.Decode(m.EmailFingerprint)
	if err != nil {
		return models.Vote{}, nil, fmt.Errorf("%w: %v", models.ErrMalformedMessage, err)
	}

	vote := models.Vote{
		PollID:           m.PollID,
		Option:           m.Option,
		EmailFingerprint: fp,
		EmailPrefix2:     m.EmailPrefix2,
	}

	var contact *models.Contact
	if m.Email != "" {
		email := fingerprint.Normalize(m.Email)
		contact = &models.Contact{
			Name:                   m.Name,
			Email:                  m.Email,
			EmailNormalized:        email,
			EmailGlobalFingerprint: p.hasher.Global(email),
		}
	}

	return vote, contact, nil
}

// deadLetter copies an undecodable message aside and acknowledges it so it
// is not redelivered forever.
func (p *Processor) deadLetter(ctx context.Context, msg eventlog.Message, cause error) (Outcome, error) {
	fields := make(map[string]string, len(msg.Fields)+1)
	for k, v := range msg.Fields {
		fields[k] = v
	}
	fields[FieldError] = cause.Error()

	if _, err := p.log.Append(ctx, DeadLetterStream(p.stream), fields); err != nil {
		return DeadLettered, fmt.Errorf("dead-letter message: %w", err)
	}
	if err := p.log.Ack(ctx, p.stream, p.group, msg.ID); err != nil {
		return DeadLettered, fmt.Errorf("ack dead-lettered message: %w", err)
	}

	slog.Warn("malformed vote dead-lettered", "message_id", msg.ID, "error", cause)
	return DeadLettered, nil
}
