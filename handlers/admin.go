// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/pulsometro/middleware"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/store"
)

// PollAdmin creates polls and toggles their activation.
type PollAdmin interface {
	CreatePoll(ctx context.Context, title, optionA, optionB string) (models.Poll, error)
	SetPollActive(ctx context.Context, id int64, active bool) error
}

// Invalidator drops cached views of a poll.
type Invalidator interface {
	PollChanged(ctx context.Context, pollID int64)
}

type AdminHandler struct {
	polls PollAdmin
	views Invalidator
}

func NewAdminHandler(polls PollAdmin, views Invalidator) *AdminHandler {
	return &AdminHandler{polls: polls, views: views}
}

// CreatePoll handles POST /api/admin/polls
func (h *AdminHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.OptionALabel = strings.TrimSpace(req.OptionALabel)
	req.OptionBLabel = strings.TrimSpace(req.OptionBLabel)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.OptionALabel == "" || req.OptionBLabel == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_a_label and option_b_label are required")
		return
	}

	poll, err := h.polls.CreatePoll(r.Context(), req.Title, req.OptionALabel, req.OptionBLabel)
	if err != nil {
		slog.Error("failed to create poll", "request_id", middleware.RequestID(r.Context()), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	h.views.PollChanged(r.Context(), poll.ID)
	slog.Info("poll created", "poll_id", poll.ID, "title", poll.Title)

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{PollID: poll.ID})
}

// ActivatePoll handles POST /api/admin/polls/{id}/activate
func (h *AdminHandler) ActivatePoll(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivatePoll handles POST /api/admin/polls/{id}/deactivate
// Deactivated polls disappear from the list and reject new votes.
func (h *AdminHandler) DeactivatePoll(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AdminHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	err := h.polls.SetPollActive(r.Context(), pollID, active)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to update poll", "request_id", middleware.RequestID(r.Context()), "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	h.views.PollChanged(r.Context(), pollID)
	slog.Info("poll activation changed", "poll_id", pollID, "active", active)

	middleware.JSONResponse(w, http.StatusOK, models.PollStatusResponse{PollID: pollID, IsActive: active})
}
