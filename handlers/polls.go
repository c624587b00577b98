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
	"github.com/danielhkuo/pulsometro/views"
)

// PollReader serves the cached read views.
type PollReader interface {
	ListPolls(ctx context.Context) ([]models.PollListItem, error)
	PollDetail(ctx context.Context, pollID int64, page, pageSize int) (models.PollHistoryResponse, error)
}

type PollHandler struct {
	views PollReader
}

func NewPollHandler(views PollReader) *PollHandler {
	return &PollHandler{views: views}
}

// ListPolls handles GET /api/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	items, err := h.views.ListPolls(r.Context())
	if err != nil {
		slog.Error("failed to list polls", "request_id", middleware.RequestID(r.Context()), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, items)
}

// GetPoll handles GET /api/polls/{id}?page=&pageSize=
// Returns stats with percentages and one page of masked vote history.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	pageSize, err := queryInt(r, "pageSize", views.DefaultPageSize)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pageSize must be a positive integer")
		return
	}

	resp, err := h.views.PollDetail(r.Context(), pollID, page, pageSize)
	if errors.Is(err, views.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to load poll", "request_id", middleware.RequestID(r.Context()), "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
