// Package jobs implements the C9 job runner and scheduler: wrapping
// maintenance job bodies with run-tracking, and deriving a health
// summary per job from the run history.
package jobs

import (
	"context"
	"log/slog"
)

// RunStore is the subset of database.JobRunStore the runner needs.
type RunStore interface {
	Start(ctx context.Context, jobName string) (string, error)
	Complete(ctx context.Context, id string, rowCount int) error
	Fail(ctx context.Context, id string, jobErr string) error
}

// Body is a maintenance job's work, returning the number of rows it
// affected (e.g. expired drafts purged).
type Body func(ctx context.Context) (rowCount int, err error)

// Runner wraps job bodies with startJobRun/completeJobRun/failJobRun
// bookkeeping per spec.md §4.8.
type Runner struct {
	store  RunStore
	logger *slog.Logger
}

// New constructs a Runner.
func New(store RunStore) *Runner {
	return &Runner{store: store, logger: slog.Default().With("component", "job_runner")}
}

// Run executes body under a tracked run record for jobName. Errors
// from the run-tracking calls themselves are logged, not returned —
// a failure to record a run must never mask the job's own outcome.
func (r *Runner) Run(ctx context.Context, jobName string, body Body) {
	id, err := r.store.Start(ctx, jobName)
	if err != nil {
		r.logger.Error("start job run failed", "job", jobName, "error", err)
		return
	}

	rowCount, bodyErr := body(ctx)
	if bodyErr != nil {
		if err := r.store.Fail(ctx, id, bodyErr.Error()); err != nil {
			r.logger.Error("fail job run failed", "job", jobName, "runId", id, "error", err)
		}
		r.logger.Error("job run failed", "job", jobName, "runId", id, "error", bodyErr)
		return
	}

	if err := r.store.Complete(ctx, id, rowCount); err != nil {
		r.logger.Error("complete job run failed", "job", jobName, "runId", id, "error", err)
		return
	}
	r.logger.Info("job run completed", "job", jobName, "runId", id, "rowCount", rowCount)
}
