package jobs

import (
	"context"

	"github.com/notewire/assertions/internal/models"
)

// knownJobs lists every job name the scheduler runs, in report order.
var knownJobs = []string{"draft_cleanup", "idempotency_cleanup", "outbox_cleanup"}

// HealthStore is the subset of database.JobRunStore the health summary needs.
type HealthStore interface {
	Health(ctx context.Context, jobName string) (models.JobHealth, error)
}

// HealthReporter derives the GET /health/jobs response body. Gating on
// config.HealthConfig.Enabled (returning 404 when disabled) is an
// HTTP-layer concern, handled by the httpapi handler that wraps this.
type HealthReporter struct {
	store HealthStore
}

// NewHealthReporter constructs a HealthReporter.
func NewHealthReporter(store HealthStore) *HealthReporter {
	return &HealthReporter{store: store}
}

// Summary returns the derived health for every known job.
func (r *HealthReporter) Summary(ctx context.Context) ([]models.JobHealth, error) {
	summaries := make([]models.JobHealth, 0, len(knownJobs))
	for _, name := range knownJobs {
		h, err := r.store.Health(ctx, name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, h)
	}
	return summaries, nil
}
