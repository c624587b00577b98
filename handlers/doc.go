// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Pulsometro API.

# Handler Types

Each handler is a struct holding the narrow interface it needs:

  - VoteHandler: vote submission (voting.Service)
  - PollHandler: poll list and detail (views.Synchronizer)
  - AdminHandler: poll creation and activation (store.Store)

	voteHandler := handlers.NewVoteHandler(votingService)

# Voting

	POST /api/polls/{id}/vote  {name, email, option}

Responds 202 with the log message id once the vote is durably queued. The
vote is counted later by the processor.

	400  invalid JSON, name, email, or option
	404  poll missing or inactive
	409  already voted in this poll
	503  barrier (fail-closed) or event log unavailable; retry

# Reading

	GET /api/polls                               active polls with counts
	GET /api/polls/{id}?page=1&pageSize=50       stats and masked history

pageSize is capped at 100.

# Administration

	POST /api/admin/polls                 → CreatePoll
	POST /api/admin/polls/{id}/activate   → ActivatePoll
	POST /api/admin/polls/{id}/deactivate → DeactivatePoll

Admin routes require the X-Admin-Key header (see middleware.RequireAdminKey).
Each change drops the cached list and detail of the poll.
*/
package handlers
