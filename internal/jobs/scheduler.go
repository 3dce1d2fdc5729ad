package jobs

import (
	"context"
	"sync"
	"time"
)

// draftCleanupRetention is how long an idle draft survives before the
// cleanup job purges it. Not exposed in config.JobsConfig since no
// deployment has ever needed to tune it separately from the interval.
const draftCleanupRetention = 48 * time.Hour

// DraftCleanup is the subset of database.DraftStore the scheduler needs.
type DraftCleanup interface {
	CleanupExpired(ctx context.Context, retention time.Duration) (int, error)
}

// IdempotencyCleanup is the subset of database.IdempotencyStore the
// scheduler needs.
type IdempotencyCleanup interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// OutboxCleanup is the subset of database.OutboxStore the scheduler needs.
type OutboxCleanup interface {
	PurgeOld(ctx context.Context, retention time.Duration) (int, error)
}

// Intervals configures how often each maintenance job runs. Every job
// also runs once immediately on Scheduler.Start, per spec.md §4.8.
type Intervals struct {
	DraftCleanup      time.Duration
	IdempotencyCleanup time.Duration
	OutboxCleanup      time.Duration
	OutboxRetention    time.Duration
}

// Scheduler runs the draft/idempotency/outbox maintenance jobs on
// independent tickers, each wrapped by a Runner for run tracking.
type Scheduler struct {
	runner     *Runner
	drafts     DraftCleanup
	idempotency IdempotencyCleanup
	outbox     OutboxCleanup
	intervals  Intervals

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler constructs a Scheduler. Any of drafts/idempotency/outbox
// may be nil to skip that job (e.g. in tests exercising only one loop).
func NewScheduler(runner *Runner, drafts DraftCleanup, idempotency IdempotencyCleanup, outbox OutboxCleanup, intervals Intervals) *Scheduler {
	return &Scheduler{runner: runner, drafts: drafts, idempotency: idempotency, outbox: outbox, intervals: intervals}
}

// Start launches every configured job's loop as a background goroutine
// and returns immediately. The loops' context.CancelFunc is retained so
// Stop can signal shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.drafts != nil {
		s.spawn(runCtx, "draft_cleanup", s.intervals.DraftCleanup, func(ctx context.Context) (int, error) {
			return s.drafts.CleanupExpired(ctx, draftCleanupRetention)
		})
	}
	if s.idempotency != nil {
		s.spawn(runCtx, "idempotency_cleanup", s.intervals.IdempotencyCleanup, func(ctx context.Context) (int, error) {
			return s.idempotency.CleanupExpired(ctx)
		})
	}
	if s.outbox != nil {
		s.spawn(runCtx, "outbox_cleanup", s.intervals.OutboxCleanup, func(ctx context.Context) (int, error) {
			return s.outbox.PurgeOld(ctx, s.intervals.OutboxRetention)
		})
	}
}

// Stop cancels every job loop and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, name string, interval time.Duration, body Body) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runner.Run(ctx, name, body)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runner.Run(ctx, name, body)
			}
		}
	}()
}
