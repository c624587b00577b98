// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
	"strconv"
)

// Stream field names of a vote message.
const (
	FieldPollID           = "poll_id"
	FieldOption           = "option"
	FieldEmailFingerprint = "email_fingerprint"
	FieldEmailPrefix2     = "email_prefix2"
	FieldName             = "name"
	FieldEmail            = "email"
)

var ErrMalformedMessage = errors.New("malformed vote message")

// VoteMessage is an admitted vote in flight between submission and the
// processor. It only lives inside the event log.
type VoteMessage struct {
	PollID           int64
	Option           Option
	EmailFingerprint string // base64
	EmailPrefix2     string
	Name             string
	Email            string // normalized, used only for the contact upsert
}

// Fields flattens the message into stream fields.
func (m VoteMessage) Fields() map[string]string {
	return map[string]string{
		FieldPollID:           strconv.FormatInt(m.PollID, 10),
		FieldOption:           string(m.Option),
		FieldEmailFingerprint: m.EmailFingerprint,
		FieldEmailPrefix2:     m.EmailPrefix2,
		FieldName:             m.Name,
		FieldEmail:            m.Email,
	}
}

// ParseVoteMessage decodes stream fields. Name and email are optional.
func ParseVoteMessage(fields map[string]string) (VoteMessage, error) {
	var m VoteMessage

	pollID, err := strconv.ParseInt(fields[FieldPollID], 10, 64)
	if err != nil || pollID <= 0 {
		return m, fmt.Errorf("%w: poll_id %q", ErrMalformedMessage, fields[FieldPollID])
	}
	m.PollID = pollID

	m.Option = Option(fields[FieldOption])
	if !m.Option.Valid() {
		return m, fmt.Errorf("%w: option %q", ErrMalformedMessage, fields[FieldOption])
	}

	m.EmailFingerprint = fields[FieldEmailFingerprint]
	if m.EmailFingerprint == "" {
		return m, fmt.Errorf("%w: missing email_fingerprint", ErrMalformedMessage)
	}

	m.EmailPrefix2 = fields[FieldEmailPrefix2]
	m.Name = fields[FieldName]
	m.Email = fields[FieldEmail]
	return m, nil
}
