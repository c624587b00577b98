// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/pulsometro/middleware"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/store"
	"github.com/danielhkuo/pulsometro/testutil"
	"github.com/danielhkuo/pulsometro/views"
	"github.com/danielhkuo/pulsometro/voting"
)

type fakeSubmitter struct {
	err    error
	pollID int64
	req    models.VoteRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, pollID int64, req models.VoteRequest) (string, error) {
	f.pollID = pollID
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return "1700000000000-0", nil
}

type fakeReader struct {
	err      error
	page     int
	pageSize int
}

func (f *fakeReader) ListPolls(context.Context) ([]models.PollListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.PollListItem{{ID: 1, Question: "Q", VotesFor: 3, TotalVotes: 3}}, nil
}

func (f *fakeReader) PollDetail(_ context.Context, pollID int64, page, pageSize int) (models.PollHistoryResponse, error) {
	f.page, f.pageSize = page, pageSize
	if f.err != nil {
		return models.PollHistoryResponse{}, f.err
	}
	return models.PollHistoryResponse{
		Poll:     models.PollDetail{ID: pollID, Stats: models.PollStats{CountA: 1, Total: 1, PercentageA: 100}},
		History:  []models.HistoryEntry{{ID: 1, Option: models.OptionA, EmailPrefix: "al**"}},
		Page:     page,
		PageSize: pageSize,
		Total:    1,
	}, nil
}

type fakeAdmin struct {
	err     error
	created []string
	active  map[int64]bool
	changed []int64
}

func (f *fakeAdmin) CreatePoll(_ context.Context, title, a, b string) (models.Poll, error) {
	if f.err != nil {
		return models.Poll{}, f.err
	}
	f.created = append(f.created, title)
	return models.Poll{ID: int64(len(f.created)), Title: title, OptionALabel: a, OptionBLabel: b, IsActive: true}, nil
}

func (f *fakeAdmin) SetPollActive(_ context.Context, id int64, active bool) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.active[id]; !ok {
		return store.ErrNotFound
	}
	f.active[id] = active
	return nil
}

func (f *fakeAdmin) PollChanged(_ context.Context, pollID int64) {
	f.changed = append(f.changed, pollID)
}

func withID(req *http.Request, id string) *http.Request {
	req.SetPathValue("id", id)
	return req
}

func TestSubmitVote(t *testing.T) {
	testCases := []struct {
		name           string
		id             string
		body           interface{}
		submitErr      error
		expectedStatus int
	}{
		{
			name:           "accepted",
			id:             "7",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "invalid poll id",
			id:             "abc",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero poll id",
			id:             "0",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			id:             "7",
			body:           "not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "validation error",
			id:             "7",
			body:           models.VoteRequest{Name: "Alice", Email: "nope", Option: models.OptionA},
			submitErr:      voting.ErrInvalidEmail,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "poll not found",
			id:             "8",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			submitErr:      voting.ErrPollNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "already voted",
			id:             "7",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			submitErr:      voting.ErrAlreadyVoted,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "log unavailable",
			id:             "7",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			submitErr:      fmt.Errorf("%w: connection refused", voting.ErrUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "unexpected error",
			id:             "7",
			body:           models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
			submitErr:      errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sub := &fakeSubmitter{err: tc.submitErr}
			handler := NewVoteHandler(sub)

			req := withID(testutil.MakeRequest("POST", "/api/polls/"+tc.id+"/vote", tc.body, nil), tc.id)
			w := httptest.NewRecorder()
			handler.SubmitVote(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)

			if tc.expectedStatus == http.StatusAccepted {
				var resp models.VoteAcceptedResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.MessageID != "1700000000000-0" {
					t.Errorf("Expected message_id, got %q", resp.MessageID)
				}
				if sub.pollID != 7 || sub.req.Email != "alice@example.com" {
					t.Errorf("Unexpected submission: poll %d, %+v", sub.pollID, sub.req)
				}
			}
			if tc.expectedStatus == http.StatusServiceUnavailable && w.Header().Get("Retry-After") == "" {
				t.Error("Expected Retry-After header on 503")
			}
		})
	}
}

func TestListPolls(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := NewPollHandler(&fakeReader{})
		w := httptest.NewRecorder()
		handler.ListPolls(w, testutil.MakeRequest("GET", "/api/polls", nil, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var items []models.PollListItem
		testutil.AssertJSON(t, w, &items)
		if len(items) != 1 || items[0].VotesFor != 3 {
			t.Errorf("Unexpected items: %+v", items)
		}
	})

	t.Run("store error", func(t *testing.T) {
		handler := NewPollHandler(&fakeReader{err: errors.New("db down")})
		w := httptest.NewRecorder()
		handler.ListPolls(w, testutil.MakeRequest("GET", "/api/polls", nil, nil))

		testutil.AssertStatus(t, w, http.StatusInternalServerError)
	})
}

func TestGetPoll(t *testing.T) {
	testCases := []struct {
		name             string
		query            string
		readErr          error
		expectedStatus   int
		expectedPage     int
		expectedPageSize int
	}{
		{"defaults", "", nil, http.StatusOK, 1, views.DefaultPageSize},
		{"explicit page", "?page=3&pageSize=20", nil, http.StatusOK, 3, 20},
		{"bad page", "?page=x", nil, http.StatusBadRequest, 0, 0},
		{"negative page size", "?pageSize=-1", nil, http.StatusBadRequest, 0, 0},
		{"not found", "", views.ErrNotFound, http.StatusNotFound, 1, views.DefaultPageSize},
		{"store error", "", errors.New("db down"), http.StatusInternalServerError, 1, views.DefaultPageSize},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader := &fakeReader{err: tc.readErr}
			handler := NewPollHandler(reader)

			req := withID(testutil.MakeRequest("GET", "/api/polls/5"+tc.query, nil, nil), "5")
			w := httptest.NewRecorder()
			handler.GetPoll(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if reader.page != tc.expectedPage || reader.pageSize != tc.expectedPageSize {
				t.Errorf("Expected page %d/%d, got %d/%d",
					tc.expectedPage, tc.expectedPageSize, reader.page, reader.pageSize)
			}

			if tc.expectedStatus == http.StatusOK {
				var resp models.PollHistoryResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Poll.ID != 5 || resp.Poll.Stats.PercentageA != 100 {
					t.Errorf("Unexpected poll: %+v", resp.Poll)
				}
				if len(resp.History) != 1 || resp.History[0].EmailPrefix != "al**" {
					t.Errorf("Unexpected history: %+v", resp.History)
				}
			}
		})
	}
}

func TestCreatePoll(t *testing.T) {
	testCases := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"valid", models.CreatePollRequest{Title: "Cats or dogs?", OptionALabel: "Cats", OptionBLabel: "Dogs"}, http.StatusCreated},
		{"missing title", models.CreatePollRequest{Title: "  ", OptionALabel: "Cats", OptionBLabel: "Dogs"}, http.StatusBadRequest},
		{"missing label", models.CreatePollRequest{Title: "Cats or dogs?", OptionALabel: "Cats"}, http.StatusBadRequest},
		{"invalid JSON", "nope", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			admin := &fakeAdmin{active: map[int64]bool{}}
			handler := NewAdminHandler(admin, admin)

			w := httptest.NewRecorder()
			handler.CreatePoll(w, testutil.MakeRequest("POST", "/api/admin/polls", tc.body, nil))

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedStatus == http.StatusCreated {
				var resp models.CreatePollResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.PollID != 1 {
					t.Errorf("Expected poll_id 1, got %d", resp.PollID)
				}
				if len(admin.changed) != 1 {
					t.Error("Expected cached views to be invalidated")
				}
			}
		})
	}
}

func TestSetPollActive(t *testing.T) {
	admin := &fakeAdmin{active: map[int64]bool{3: true}}
	handler := NewAdminHandler(admin, admin)

	w := httptest.NewRecorder()
	handler.DeactivatePoll(w, withID(testutil.MakeRequest("POST", "/api/admin/polls/3/deactivate", nil, nil), "3"))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.PollStatusResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.PollID != 3 || resp.IsActive {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if admin.active[3] {
		t.Error("Expected poll 3 to be inactive")
	}
	if len(admin.changed) != 1 || admin.changed[0] != 3 {
		t.Errorf("Expected views of poll 3 to be invalidated, got %v", admin.changed)
	}

	w = httptest.NewRecorder()
	handler.ActivatePoll(w, withID(testutil.MakeRequest("POST", "/api/admin/polls/3/activate", nil, nil), "3"))
	testutil.AssertStatus(t, w, http.StatusOK)
	if !admin.active[3] {
		t.Error("Expected poll 3 to be active")
	}

	w = httptest.NewRecorder()
	handler.ActivatePoll(w, withID(testutil.MakeRequest("POST", "/api/admin/polls/99/activate", nil, nil), "99"))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = httptest.NewRecorder()
	handler.ActivatePoll(w, withID(testutil.MakeRequest("POST", "/api/admin/polls/x/activate", nil, nil), "x"))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestServerErrorsLogRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := NewVoteHandler(&fakeSubmitter{err: errors.New("boom")})
	req := withID(testutil.MakeRequest("POST", "/api/polls/7/vote",
		models.VoteRequest{Name: "Alice", Email: "alice@example.com", Option: models.OptionA},
		map[string]string{middleware.RequestIDHeader: "req-7"}), "7")
	w := httptest.NewRecorder()

	middleware.WithLogging(h.SubmitVote)(w, req)

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "failed to submit vote") {
			if !strings.Contains(line, `"request_id":"req-7"`) {
				t.Errorf("Expected request_id in error log, got %s", line)
			}
			return
		}
	}
	t.Errorf("Expected an error log line, got %s", buf.String())
}
