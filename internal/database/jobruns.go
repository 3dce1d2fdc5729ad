package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// consecutiveFailureThreshold and driftHoursThreshold back the C9
// health derivation rules in spec.md §4.8.
const (
	consecutiveFailureThreshold = 3
	driftHoursThreshold         = 48.0
)

// JobRunStore records scheduled-maintenance executions and derives
// per-job health summaries from the run log.
type JobRunStore struct {
	client *Client
}

// NewJobRunStore wraps a connected Client.
func NewJobRunStore(client *Client) *JobRunStore {
	return &JobRunStore{client: client}
}

// Start records a new running job, returning its id.
func (s *JobRunStore) Start(ctx context.Context, jobName string) (string, error) {
	id := uuid.NewString()
	_, err := s.client.pool.Exec(ctx,
		`INSERT INTO job_runs (id, job_name, status, started_at)
		 VALUES ($1, $2, $3, NOW())`,
		id, jobName, models.JobRunning)
	if err != nil {
		return "", apperrors.Internal(err, "start job run failed")
	}
	return id, nil
}

// Complete marks a job run successful with its affected row count.
func (s *JobRunStore) Complete(ctx context.Context, id string, rowCount int) error {
	_, err := s.client.pool.Exec(ctx,
		`UPDATE job_runs SET status = $1, row_count = $2, finished_at = NOW() WHERE id = $3`,
		models.JobSucceeded, rowCount, id)
	if err != nil {
		return apperrors.Internal(err, "complete job run failed")
	}
	return nil
}

// Fail marks a job run failed with an error message.
func (s *JobRunStore) Fail(ctx context.Context, id string, jobErr string) error {
	_, err := s.client.pool.Exec(ctx,
		`UPDATE job_runs SET status = $1, error = $2, finished_at = NOW() WHERE id = $3`,
		models.JobFailed, jobErr, id)
	if err != nil {
		return apperrors.Internal(err, "fail job run failed")
	}
	return nil
}

// Health derives {lastSuccessAt, lastRowCount, consecutiveFailures,
// driftHours, status} for one job from its run history.
func (s *JobRunStore) Health(ctx context.Context, jobName string) (models.JobHealth, error) {
	health := models.JobHealth{JobName: jobName}

	var lastSuccessAt *time.Time
	var lastRowCount *int
	err := s.client.pool.QueryRow(ctx,
		`SELECT finished_at, row_count FROM job_runs
		 WHERE job_name = $1 AND status = $2
		 ORDER BY finished_at DESC LIMIT 1`,
		jobName, models.JobSucceeded).Scan(&lastSuccessAt, &lastRowCount)
	if err != nil && !isNoRows(err) {
		return models.JobHealth{}, apperrors.Internal(err, "query last success failed")
	}
	health.LastSuccessAt = lastSuccessAt
	health.LastRowCount = lastRowCount

	var consecutiveFailures int
	if lastSuccessAt != nil {
		err = s.client.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM job_runs
			 WHERE job_name = $1 AND status = $2 AND started_at > $3`,
			jobName, models.JobFailed, *lastSuccessAt).Scan(&consecutiveFailures)
	} else {
		err = s.client.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM job_runs WHERE job_name = $1 AND status = $2`,
			jobName, models.JobFailed).Scan(&consecutiveFailures)
	}
	if err != nil {
		return models.JobHealth{}, apperrors.Internal(err, "query consecutive failures failed")
	}
	health.ConsecutiveFailures = consecutiveFailures

	if lastSuccessAt != nil {
		health.DriftHours = time.Since(*lastSuccessAt).Hours()
	}

	switch {
	case consecutiveFailures >= consecutiveFailureThreshold || lastSuccessAt == nil:
		health.Status = "failing"
	case health.DriftHours > driftHoursThreshold:
		health.Status = "drifting"
	default:
		health.Status = "healthy"
	}

	return health, nil
}
