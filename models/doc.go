// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the vote pipeline.

# Request Types

  - VoteRequest: name, email, option
  - CreatePollRequest: title, option_a_label, option_b_label

# Response Types

  - VoteAcceptedResponse: message, message_id
  - CreatePollResponse: poll_id
  - PollListItem: poll with current counts (the polls:public cache shape)
  - PollDetail, PollStats: poll with counts and rounded percentages
  - HistoryEntry: masked vote (two-character email prefix only)
  - PollHistoryResponse: detail plus a page of history
  - ErrorResponse: error, message

# Domain Types

  - Poll: title and two option labels; only IsActive ever changes
  - Vote: ledger row, unique on (PollID, EmailFingerprint)
  - PollResult: aggregate counters, CountA + CountB == Total
  - Contact: cross-poll contact keyed by the global fingerprint
  - VoteMessage: in-flight vote inside the event log

# Wire Shape

A VoteMessage travels as flat text fields:

	poll_id, option, email_fingerprint (base64), email_prefix2, name, email

Use Fields to encode and ParseVoteMessage to decode; the latter returns an
error wrapping ErrMalformedMessage for anything it cannot decode.

# Constants

	OptionA = "A"
	OptionB = "B"
*/
package models
