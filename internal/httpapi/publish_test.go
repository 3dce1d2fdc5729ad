package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/publish"
)

type fakeOrchestrator struct {
	resp *publish.Response
	err  error
	got  publish.Request
}

func (f *fakeOrchestrator) Publish(ctx context.Context, req publish.Request) (*publish.Response, error) {
	f.got = req
	return f.resp, f.err
}

func TestPublish_HappyPathReturns201(t *testing.T) {
	now := time.Now().UTC()
	fo := &fakeOrchestrator{resp: &publish.Response{AssertionID: "a1", CreatedAt: now}}
	h := &publishHandler{orchestrator: fo}

	r := httptest.NewRequest("POST", "/publish", jsonBody(t, publishRequest{
		AssertionType: models.AssertionNote,
		Text:          "hello",
		Visibility:    models.VisibilityPublic,
	}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Publish(w, r)

	assert.Equal(t, 201, w.Code)
	var body publishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "a1", body.AssertionID)
	assert.False(t, body.Replayed)
	assert.Equal(t, "u1", fo.got.Viewer.ID)
}

func TestPublish_ReplayedReturns200(t *testing.T) {
	fo := &fakeOrchestrator{resp: &publish.Response{AssertionID: "a1", Replayed: true}}
	h := &publishHandler{orchestrator: fo}

	r := httptest.NewRequest("POST", "/publish", jsonBody(t, publishRequest{
		AssertionType: models.AssertionNote,
		Text:          "hello",
		Visibility:    models.VisibilityPublic,
	}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Publish(w, r)

	assert.Equal(t, 200, w.Code)
}

func TestPublish_MissingViewerRejectedWithUnauthorized(t *testing.T) {
	h := &publishHandler{orchestrator: &fakeOrchestrator{}}
	r := httptest.NewRequest("POST", "/publish", jsonBody(t, publishRequest{}))
	w := httptest.NewRecorder()

	h.Publish(w, r)

	assert.Equal(t, 401, w.Code)
}

func TestPublish_InvalidEnumRejectedWithValidation(t *testing.T) {
	h := &publishHandler{orchestrator: &fakeOrchestrator{}}
	r := httptest.NewRequest("POST", "/publish", jsonBody(t, publishRequest{
		AssertionType: "not_a_real_type",
		Text:          "hello",
		Visibility:    models.VisibilityPublic,
	}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Publish(w, r)

	assert.Equal(t, 400, w.Code)
}

func TestPublish_OrchestratorErrorPropagates(t *testing.T) {
	fo := &fakeOrchestrator{err: apperrors.Conflict("already_revised", "already revised")}
	h := &publishHandler{orchestrator: fo}

	r := httptest.NewRequest("POST", "/publish", jsonBody(t, publishRequest{
		AssertionType: models.AssertionNote,
		Text:          "hello",
		Visibility:    models.VisibilityPublic,
	}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Publish(w, r)

	assert.Equal(t, 409, w.Code)
}
