// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/pulsometro/middleware"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/voting"
)

// Submitter accepts votes for asynchronous processing.
type Submitter interface {
	Submit(ctx context.Context, pollID int64, req models.VoteRequest) (string, error)
}

type VoteHandler struct {
	votes Submitter
}

func NewVoteHandler(votes Submitter) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// SubmitVote handles POST /api/polls/{id}/vote
// Responds 202 once the vote is queued; it is counted asynchronously.
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	messageID, err := h.votes.Submit(r.Context(), pollID, req)
	switch {
	case err == nil:
	case errors.Is(err, voting.ErrValidation):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, voting.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found or not active")
		return
	case errors.Is(err, voting.ErrAlreadyVoted):
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted in this poll")
		return
	case errors.Is(err, voting.ErrUnavailable):
		slog.Warn("vote intake unavailable", "request_id", middleware.RequestID(r.Context()), "poll_id", pollID, "error", err)
		w.Header().Set("Retry-After", "1")
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Vote service temporarily unavailable, please retry")
		return
	default:
		slog.Error("failed to submit vote", "request_id", middleware.RequestID(r.Context()), "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit vote")
		return
	}

	middleware.JSONResponse(w, http.StatusAccepted, models.VoteAcceptedResponse{
		Message:   "Vote accepted",
		MessageID: messageID,
	})
}

// parsePollID reads the {id} path value, writing a 400 if it is not a
// positive integer.
func parsePollID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll id must be a positive integer")
		return 0, false
	}
	return id, true
}
