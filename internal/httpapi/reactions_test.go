package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
)

type fakeReactionNotifier struct {
	called bool
	authorID, actorID, assertionID string
	reactionType models.ReactionType
}

func (f *fakeReactionNotifier) NotifyReaction(ctx context.Context, assertionAuthorID, actorID, assertionID string, reactionType models.ReactionType) {
	f.called = true
	f.authorID, f.actorID, f.assertionID, f.reactionType = assertionAuthorID, actorID, assertionID, reactionType
}

func TestReactionsAdd_AddsAndNotifiesAuthor(t *testing.T) {
	store := &fakeGraphStore{
		revisionRef: &graph.RevisionRef{ID: "a1", AuthorID: "author1"},
		reactions:   models.ReactionCounts{Like: 1},
	}
	notify := &fakeReactionNotifier{}
	h := &reactionsHandler{store: store, notify: notify}

	r := httptest.NewRequest("POST", "/reactions", jsonBody(t, reactionRequest{AssertionID: "a1", ReactionType: models.ReactionLike}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Add(w, r)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "u1", store.addedUserID)
	assert.Equal(t, "a1", store.addedAssertionID)
	assert.True(t, notify.called)
	assert.Equal(t, "author1", notify.authorID)

	var body reactionActionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "added", body.Action)
}

func TestReactionsAdd_InvalidTypeRejected(t *testing.T) {
	h := &reactionsHandler{store: &fakeGraphStore{}}

	r := httptest.NewRequest("POST", "/reactions", jsonBody(t, reactionRequest{AssertionID: "a1", ReactionType: "not_real"}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Add(w, r)

	assert.Equal(t, 400, w.Code)
}

func TestReactionsRemove_ReturnsUpdatedCounts(t *testing.T) {
	store := &fakeGraphStore{reactions: models.ReactionCounts{Like: 0}}
	h := &reactionsHandler{store: store}

	r := httptest.NewRequest("DELETE", "/reactions", jsonBody(t, reactionRequest{AssertionID: "a1", ReactionType: models.ReactionLike}))
	r = withViewer(r, graph.Viewer{ID: "u1"})
	w := httptest.NewRecorder()

	h.Remove(w, r)

	assert.Equal(t, 200, w.Code)
}

func TestReactionsGet_ReturnsCountsForAssertion(t *testing.T) {
	store := &fakeGraphStore{reactions: models.ReactionCounts{Acknowledge: 3}}
	h := &reactionsHandler{store: store}

	r := httptest.NewRequest("GET", "/reactions/a1", nil)
	r = withViewer(r, graph.Viewer{ID: "u1"})
	r = withURLParam(r, "assertionId", "a1")
	w := httptest.NewRecorder()

	h.Get(w, r)

	assert.Equal(t, 200, w.Code)
	var body reactionCountsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Counts.Acknowledge)
}
