// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/pulsometro/dedup"
	"github.com/danielhkuo/pulsometro/eventlog"
	"github.com/danielhkuo/pulsometro/fingerprint"
	"github.com/danielhkuo/pulsometro/models"
	"github.com/danielhkuo/pulsometro/store"
	"github.com/danielhkuo/pulsometro/testutil"
)

const stream = "votes_stream"

type fakePolls struct {
	active map[int64]bool
	voted  map[string]bool
}

func (f fakePolls) HasVoted(_ context.Context, pollID int64, fp []byte) (bool, error) {
	return f.voted[dedup.Key(pollID, fp)], nil
}

func (f fakePolls) GetActivePoll(_ context.Context, id int64) (models.Poll, error) {
	if f.active[id] {
		return models.Poll{ID: id, IsActive: true}, nil
	}
	return models.Poll{}, store.ErrNotFound
}

type fakeLog struct {
	err      error
	appended []map[string]string
}

func (f *fakeLog) Append(_ context.Context, _ string, fields map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, fields)
	return "1-0", nil
}

type fakeBarrier struct {
	err      error
	seen     map[string]bool
	released int
}

func (f *fakeBarrier) Admit(_ context.Context, pollID int64, fp []byte) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := dedup.Key(pollID, fp)
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeBarrier) Release(_ context.Context, pollID int64, fp []byte) error {
	delete(f.seen, dedup.Key(pollID, fp))
	f.released++
	return nil
}

func newFakeService() (*Service, *fakeBarrier, *fakeLog) {
	svc, b, l, _ := newFakeServiceWithPolls()
	return svc, b, l
}

func newFakeServiceWithPolls() (*Service, *fakeBarrier, *fakeLog, fakePolls) {
	b := &fakeBarrier{seen: map[string]bool{}}
	l := &fakeLog{}
	polls := fakePolls{active: map[int64]bool{7: true}, voted: map[string]bool{}}
	return NewService(polls, b, l, fingerprint.New(testutil.TestPepper), stream), b, l, polls
}

func TestSubmitValidation(t *testing.T) {
	svc, _, l := newFakeService()

	tests := []struct {
		name    string
		pollID  int64
		req     models.VoteRequest
		wantErr error
	}{
		{"missing name", 7, models.VoteRequest{Name: "  ", Email: "a@b.co", Option: "A"}, ErrInvalidName},
		{"bad email", 7, models.VoteRequest{Name: "Ann", Email: "not-an-email", Option: "A"}, ErrInvalidEmail},
		{"email with space", 7, models.VoteRequest{Name: "Ann", Email: "a b@c.de", Option: "A"}, ErrInvalidEmail},
		{"bad option", 7, models.VoteRequest{Name: "Ann", Email: "a@b.co", Option: "C"}, ErrInvalidOption},
		{"lower-case option", 7, models.VoteRequest{Name: "Ann", Email: "a@b.co", Option: "a"}, ErrInvalidOption},
		{"unknown poll", 8, models.VoteRequest{Name: "Ann", Email: "a@b.co", Option: "A"}, ErrPollNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.pollID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, ErrInvalidEmail, ErrValidation)
	assert.Empty(t, l.appended)
}

func TestSubmitAppendsMessage(t *testing.T) {
	svc, _, l := newFakeService()

	id, err := svc.Submit(context.Background(), 7, models.VoteRequest{
		Name: " Ann ", Email: "  Ann@Example.COM ", Option: models.OptionB,
	})
	require.NoError(t, err)
	assert.Equal(t, "1-0", id)
	require.Len(t, l.appended, 1)

	msg, err := models.ParseVoteMessage(l.appended[0])
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.PollID)
	assert.Equal(t, models.OptionB, msg.Option)
	assert.Equal(t, "an", msg.EmailPrefix2)
	assert.Equal(t, "ann@example.com", msg.Email)
	assert.Equal(t, "Ann", msg.Name)

	want := fingerprint.New(testutil.TestPepper).PerPoll(7, "ann@example.com")
	got, err := fingerprint.Decode(msg.EmailFingerprint)
	require.NoError(t, err)
	assert.True(t, fingerprint.Equal(want, got))
}

func TestSubmitDuplicate(t *testing.T) {
	svc, _, l := newFakeService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, 7, models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "A"})
	require.NoError(t, err)

	// Same identity after normalization
	_, err = svc.Submit(ctx, 7, models.VoteRequest{Name: "Ann", Email: "ANN@example.com ", Option: "B"})
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Len(t, l.appended, 1)
}

func TestSubmitAppendFailureReleasesBarrier(t *testing.T) {
	svc, b, l := newFakeService()
	ctx := context.Background()
	req := models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "A"}

	l.err = errors.New("connection refused")
	_, err := svc.Submit(ctx, 7, req)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, b.released)

	l.err = nil
	_, err = svc.Submit(ctx, 7, req)
	assert.NoError(t, err, "a vote that was never logged must be retryable")
}

func TestSubmitBarrierClosed(t *testing.T) {
	svc, b, l := newFakeService()
	b.err = dedup.ErrUnavailable

	_, err := svc.Submit(context.Background(), 7, models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "A"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, l.appended)
}

func TestSubmitWithRedis(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	_, pool := testutil.SetupRedis(t)
	pollID := testutil.CreateTestPoll(t, conn, "Q", true)

	svc := NewService(store.New(conn), dedup.NewBarrier(pool, time.Hour, false), eventlog.New(pool),
		fingerprint.New(testutil.TestPepper), stream)
	ctx := context.Background()

	id, err := svc.Submit(ctx, pollID, models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "A"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = svc.Submit(ctx, pollID, models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "A"})
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestSubmitConcurrentSameIdentity(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	_, pool := testutil.SetupRedis(t)
	pollID := testutil.CreateTestPoll(t, conn, "Q", true)

	svc := NewService(store.New(conn), dedup.NewBarrier(pool, time.Hour, false), eventlog.New(pool),
		fingerprint.New(testutil.TestPepper), stream)

	var accepted, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), pollID,
				models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "A"})
			switch {
			case err == nil:
				atomic.AddInt32(&accepted, 1)
			case errors.Is(err, ErrAlreadyVoted):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(9), rejected)
}

func TestSubmitAlreadyInLedger(t *testing.T) {
	svc, b, l, polls := newFakeServiceWithPolls()
	fp := fingerprint.New(testutil.TestPepper).PerPoll(7, "ann@example.com")
	polls.voted[dedup.Key(7, fp)] = true

	_, err := svc.Submit(context.Background(), 7, models.VoteRequest{Name: "Ann", Email: "Ann@example.com", Option: "B"})
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Empty(t, b.seen, "the barrier is not consulted")
	assert.Empty(t, l.appended)
}

func TestSubmitAfterBarrierLoss(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	s, pool := testutil.SetupRedis(t)
	pollID := testutil.CreateTestPoll(t, conn, "Q", true)
	st := store.New(conn)
	hasher := fingerprint.New(testutil.TestPepper)
	ctx := context.Background()

	_, _, err := st.RecordVote(ctx, models.Vote{
		PollID:           pollID,
		Option:           models.OptionA,
		EmailFingerprint: hasher.PerPoll(pollID, "ann@example.com"),
		EmailPrefix2:     "an",
	}, nil)
	require.NoError(t, err)

	// Redis starts empty, as after a flush or restart
	s.FlushAll()
	svc := NewService(st, dedup.NewBarrier(pool, time.Hour, false), eventlog.New(pool), hasher, stream)

	_, err = svc.Submit(ctx, pollID, models.VoteRequest{Name: "Ann", Email: "ann@example.com", Option: "B"})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	_, err = svc.Submit(ctx, pollID, models.VoteRequest{Name: "Bea", Email: "bea@example.com", Option: "B"})
	assert.NoError(t, err)
}
