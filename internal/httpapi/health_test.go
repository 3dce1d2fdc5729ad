package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/jobs"
	"github.com/notewire/assertions/internal/models"
)

type fakeHealthStore struct {
	byJob map[string]models.JobHealth
}

func (f *fakeHealthStore) Health(ctx context.Context, jobName string) (models.JobHealth, error) {
	return f.byJob[jobName], nil
}

func TestHealthHandler_ReturnsEveryKnownJob(t *testing.T) {
	store := &fakeHealthStore{byJob: map[string]models.JobHealth{
		"draft_cleanup":       {JobName: "draft_cleanup", Status: "healthy"},
		"idempotency_cleanup": {JobName: "idempotency_cleanup", Status: "healthy"},
		"outbox_cleanup":      {JobName: "outbox_cleanup", Status: "failing", ConsecutiveFailures: 4},
	}}
	reporter := jobs.NewHealthReporter(store)
	handler := newHealthHandler(reporter)

	r := httptest.NewRequest("GET", "/health/jobs", nil)
	w := httptest.NewRecorder()

	handler(w, r)

	assert.Equal(t, 200, w.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Jobs, 3)
}
