// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting implements vote submission.

Submit runs the synchronous half of the pipeline:

 1. validate name, email, and option
 2. check the poll exists and is active
 3. normalize the email and compute the per-poll fingerprint
 4. reject identities the ledger already counted
 5. pass the dedup barrier (ErrAlreadyVoted if the identity was seen)
 6. append the vote to the event log

A nil error means the vote is durably queued. It is counted later by the
processor. When the append fails the barrier key is released and
ErrUnavailable is returned, so the caller can retry.

# Errors

	ErrInvalidName, ErrInvalidEmail, ErrInvalidOption  match ErrValidation
	ErrPollNotFound                                    unknown or inactive poll
	ErrAlreadyVoted                                    ledger or barrier rejected the identity
	ErrUnavailable                                     barrier (fail-closed) or log down
*/
package voting
