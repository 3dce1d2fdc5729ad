package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/config"
	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/feed"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
)

type fakeGraphStore struct {
	homeSlice    graph.Slice
	threadSlice  graph.Slice
	history      []models.Assertion
	deleteResult graph.DeleteResult
	revisionRef  *graph.RevisionRef
	reactions    models.ReactionCounts

	homeErr, threadErr, historyErr, deleteErr, revisionErr, reactionErr error

	lastHomeOpts graph.HomeGraphOptions
	addedUserID, addedAssertionID string
	addedType    models.ReactionType
}

func (f *fakeGraphStore) Publish(ctx context.Context, viewer graph.Viewer, a models.Assertion, supersedesID *string, revisionMeta *graph.RevisionMetadata) (graph.PublishResult, error) {
	return graph.PublishResult{}, nil
}

func (f *fakeGraphStore) GetAssertionForRevision(ctx context.Context, id string) (*graph.RevisionRef, error) {
	return f.revisionRef, f.revisionErr
}

func (f *fakeGraphStore) GetRevisionHistory(ctx context.Context, id string) ([]models.Assertion, error) {
	return f.history, f.historyErr
}

func (f *fakeGraphStore) DeleteAssertion(ctx context.Context, id, userID string) (graph.DeleteResult, error) {
	return f.deleteResult, f.deleteErr
}

func (f *fakeGraphStore) ReadHomeGraph(ctx context.Context, opts graph.HomeGraphOptions) (graph.Slice, error) {
	f.lastHomeOpts = opts
	return f.homeSlice, f.homeErr
}

func (f *fakeGraphStore) ReadThreadGraph(ctx context.Context, rootID string) (graph.Slice, error) {
	return f.threadSlice, f.threadErr
}

func (f *fakeGraphStore) AddReaction(ctx context.Context, userID, assertionID string, reactionType models.ReactionType) error {
	f.addedUserID, f.addedAssertionID, f.addedType = userID, assertionID, reactionType
	return nil
}

func (f *fakeGraphStore) RemoveReaction(ctx context.Context, userID, assertionID string, reactionType models.ReactionType) (bool, error) {
	return true, nil
}

func (f *fakeGraphStore) GetReactionsForAssertion(ctx context.Context, assertionID string) (models.ReactionCounts, error) {
	return f.reactions, f.reactionErr
}

func newTestProjector() *feed.Projector {
	return feed.New(config.ModeTest, nil)
}

func TestHome_ReturnsProjectedRoots(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeGraphStore{homeSlice: graph.Slice{
		Assertions: []models.Assertion{
			{ID: "a1", AuthorID: "u1", AssertionType: models.AssertionNote, Text: "hi", Visibility: models.VisibilityPublic, CreatedAt: now},
		},
	}}
	h := &feedHandler{store: store, projector: newTestProjector()}

	r := httptest.NewRequest("GET", "/home", nil)
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Home(w, r)

	assert.Equal(t, 200, w.Code)
	var body homeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Items, 1)
}

func TestHome_MalformedCursorRejected(t *testing.T) {
	h := &feedHandler{store: &fakeGraphStore{}, projector: newTestProjector()}

	r := httptest.NewRequest("GET", "/home?cursor=not-valid-base64!!", nil)
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Home(w, r)

	assert.Equal(t, 400, w.Code)
}

func TestThread_ProjectsThreadFromRoot(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeGraphStore{threadSlice: graph.Slice{
		Assertions: []models.Assertion{
			{ID: "root", AuthorID: "u1", AssertionType: models.AssertionNote, Text: "root", Visibility: models.VisibilityPublic, CreatedAt: now},
		},
	}}
	h := &feedHandler{store: store, projector: newTestProjector()}

	r := httptest.NewRequest("GET", "/thread/root", nil)
	r = withViewer(r, graph.Viewer{ID: "u1"})
	r = withURLParam(r, "assertionId", "root")
	w := httptest.NewRecorder()

	h.Thread(w, r)

	assert.Equal(t, 200, w.Code)
}

func TestHistory_ReturnsRevisionChain(t *testing.T) {
	store := &fakeGraphStore{history: []models.Assertion{{ID: "a1"}, {ID: "a2"}}}
	h := &feedHandler{store: store, projector: newTestProjector()}

	r := httptest.NewRequest("GET", "/assertions/a2/history", nil)
	r = withViewer(r, graph.Viewer{ID: "u1"})
	r = withURLParam(r, "assertionId", "a2")
	w := httptest.NewRecorder()

	h.History(w, r)

	assert.Equal(t, 200, w.Code)
	var got []models.Assertion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestDelete_ForbiddenPropagatesFromStore(t *testing.T) {
	store := &fakeGraphStore{deleteErr: apperrors.Forbidden("only the author may delete this assertion")}
	h := &feedHandler{store: store, projector: newTestProjector()}

	r := httptest.NewRequest("DELETE", "/assertions/a1", nil)
	r = withViewer(r, graph.Viewer{ID: "u2"})
	r = withURLParam(r, "assertionId", "a1")
	w := httptest.NewRecorder()

	h.Delete(w, r)

	assert.Equal(t, 403, w.Code)
}

func TestCursor_RoundTrips(t *testing.T) {
	now := time.Now().UTC()
	token := encodeCursor(now, "a1")

	gotTime, gotID, err := decodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "a1", gotID)
	assert.WithinDuration(t, now, gotTime, time.Millisecond)
}

func TestCursor_EmptyTokenIsFirstPage(t *testing.T) {
	gotTime, gotID, err := decodeCursor("")
	require.NoError(t, err)
	assert.True(t, gotTime.IsZero())
	assert.Empty(t, gotID)
}
