package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/models"
)

type fakeHealthStore struct {
	byJob map[string]models.JobHealth
}

func (f *fakeHealthStore) Health(ctx context.Context, jobName string) (models.JobHealth, error) {
	return f.byJob[jobName], nil
}

func TestSummary_ReturnsEveryKnownJob(t *testing.T) {
	store := &fakeHealthStore{byJob: map[string]models.JobHealth{
		"draft_cleanup":       {JobName: "draft_cleanup", Status: "healthy"},
		"idempotency_cleanup": {JobName: "idempotency_cleanup", Status: "healthy"},
		"outbox_cleanup":      {JobName: "outbox_cleanup", Status: "failing"},
	}}
	r := NewHealthReporter(store)

	summaries, err := r.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summaries, 3)
	assert.Equal(t, "failing", summaries[2].Status)
}
