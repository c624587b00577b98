// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/pulsometro/eventlog"
)

const (
	// DefaultBackoff is the pause after a failed poll of the log.
	DefaultBackoff = time.Second
	// DefaultClaimIdle is how long a message stays pending before another
	// consumer may claim it.
	DefaultClaimIdle = 30 * time.Second
)

// errBatchFailed reports a batch in which no message could be handled.
var errBatchFailed = errors.New("every message in batch failed")

// WorkerConfig controls how a worker consumes the log.
type WorkerConfig struct {
	Stream    string
	Group     string
	BatchSize int
	Block     time.Duration
	ClaimIdle time.Duration
	Backoff   time.Duration
}

// Stats counts handled messages by outcome.
type Stats struct {
	Recorded     int64
	Duplicates   int64
	DeadLettered int64
	Failed       int64
}

func (s Stats) add(o Stats) Stats {
	return Stats{
		Recorded:     s.Recorded + o.Recorded,
		Duplicates:   s.Duplicates + o.Duplicates,
		DeadLettered: s.DeadLettered + o.DeadLettered,
		Failed:       s.Failed + o.Failed,
	}
}

// Worker is one consumer of the vote log. Any number of workers may share a
// consumer group.
type Worker struct {
	proc *Processor
	log  Log
	cfg  WorkerConfig
	name string

	recorded     atomic.Int64
	duplicates   atomic.Int64
	deadLettered atomic.Int64
	failed       atomic.Int64
}

func NewWorker(proc *Processor, log Log, cfg WorkerConfig) *Worker {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = DefaultClaimIdle
	}
	return &Worker{
		proc: proc,
		log:  log,
		cfg:  cfg,
		name: "worker-" + uuid.NewString(),
	}
}

// Name is the worker's consumer name within the group.
func (w *Worker) Name() string {
	return w.name
}

func (w *Worker) Stats() Stats {
	return Stats{
		Recorded:     w.recorded.Load(),
		Duplicates:   w.duplicates.Load(),
		DeadLettered: w.deadLettered.Load(),
		Failed:       w.failed.Load(),
	}
}

// Run consumes the log until ctx is cancelled. Cancellation stops new reads;
// messages already read are still handled and acknowledged. Failures to reach
// the log are retried after a back-off, so Run only returns once ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		err := w.log.CreateGroup(ctx, w.cfg.Stream, w.cfg.Group)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil
		}
		slog.Error("failed to create consumer group", "consumer", w.name, "group", w.cfg.Group, "error", err)
		if !w.backoff(ctx) {
			return nil
		}
	}

	slog.Info("worker started", "consumer", w.name, "stream", w.cfg.Stream, "group", w.cfg.Group)
	defer func() {
		s := w.Stats()
		slog.Info("worker stopped",
			"consumer", w.name,
			"recorded", humanize.Comma(s.Recorded),
			"duplicates", humanize.Comma(s.Duplicates),
			"dead_lettered", humanize.Comma(s.DeadLettered),
			"failed", humanize.Comma(s.Failed),
		)
	}()

	for ctx.Err() == nil {
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("failed to poll votes", "consumer", w.name, "error", err)
			w.backoff(ctx)
		}
	}
	return nil
}

// backoff waits out cfg.Backoff and reports false if ctx ended first.
func (w *Worker) backoff(ctx context.Context) bool {
	t := time.NewTimer(w.cfg.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// poll handles one batch: stale messages abandoned by other consumers
// first, then new ones.
func (w *Worker) poll(ctx context.Context) error {
	msgs, err := w.log.ClaimStale(ctx, w.cfg.Group, w.name, w.cfg.Stream, w.cfg.ClaimIdle, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim stale: %w", err)
	}

	if len(msgs) == 0 {
		msgs, err = w.log.ReadGroup(ctx, w.cfg.Group, w.name, w.cfg.Stream, w.cfg.BatchSize, w.cfg.Block)
		if err != nil {
			return fmt.Errorf("read group: %w", err)
		}
	}

	if failed := w.handle(context.WithoutCancel(ctx), msgs); len(msgs) > 0 && failed == len(msgs) {
		return fmt.Errorf("%d messages: %w", failed, errBatchFailed)
	}
	return nil
}

// handle processes msgs in order and returns how many failed.
func (w *Worker) handle(ctx context.Context, msgs []eventlog.Message) int {
	failed := 0
	for _, msg := range msgs {
		outcome, err := w.proc.Handle(ctx, msg)
		if err != nil {
			failed++
			w.failed.Add(1)
			slog.Error("failed to process vote", "consumer", w.name, "message_id", msg.ID, "error", err)
			continue
		}

		switch outcome {
		case Recorded:
			w.recorded.Add(1)
		case Duplicate:
			w.duplicates.Add(1)
		case DeadLettered:
			w.deadLettered.Add(1)
		}
	}
	return failed
}

// Pool runs several workers in one consumer group.
type Pool struct {
	workers []*Worker
}

func NewPool(proc *Processor, log Log, cfg WorkerConfig, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{workers: make([]*Worker, n)}
	for i := range p.workers {
		p.workers[i] = NewWorker(proc, log, cfg)
	}
	return p
}

// Run starts every worker and waits for all of them to stop.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	return g.Wait()
}

// Stats sums the stats of all workers.
func (p *Pool) Stats() Stats {
	var s Stats
	for _, w := range p.workers {
		s = s.add(w.Stats())
	}
	return s
}
