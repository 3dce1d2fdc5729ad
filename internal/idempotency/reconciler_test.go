package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
)

type fakeStore struct {
	record    *models.IdempotencyRecord
	completed bool
}

func (f *fakeStore) GetByKey(ctx context.Context, key, userID string) (*models.IdempotencyRecord, error) {
	return f.record, nil
}

func (f *fakeStore) Complete(ctx context.Context, key, userID, assertionID string) error {
	f.completed = true
	f.record.Status = models.IdempotencyComplete
	f.record.AssertionID = &assertionID
	return nil
}

type fakeGraphReader struct {
	ref *graph.RevisionRef
}

func (f *fakeGraphReader) GetAssertionForRevision(ctx context.Context, id string) (*graph.RevisionRef, error) {
	return f.ref, nil
}

func TestReconcilePending_TooFreshReturnsNil(t *testing.T) {
	assertionID := "a1"
	store := &fakeStore{record: &models.IdempotencyRecord{
		Status: models.IdempotencyPending, AssertionID: &assertionID, CreatedAt: time.Now(),
	}}
	reader := &fakeGraphReader{}
	r := New(store, reader, nil)

	outcome, err := r.ReconcilePending(context.Background(), "key", "user")
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.False(t, store.completed)
}

func TestReconcilePending_NoAssertionIDReturnsNil(t *testing.T) {
	store := &fakeStore{record: &models.IdempotencyRecord{
		Status: models.IdempotencyPending, CreatedAt: time.Now().Add(-10 * time.Minute),
	}}
	reader := &fakeGraphReader{}
	r := New(store, reader, nil)

	outcome, err := r.ReconcilePending(context.Background(), "key", "user")
	require.NoError(t, err)
	assert.Nil(t, outcome)
}

func TestReconcilePending_UnconfirmedReturnsNilWithoutCompleting(t *testing.T) {
	assertionID := "a1"
	store := &fakeStore{record: &models.IdempotencyRecord{
		Status: models.IdempotencyPending, AssertionID: &assertionID, CreatedAt: time.Now().Add(-10 * time.Minute),
	}}
	reader := &fakeGraphReader{ref: nil}
	r := New(store, reader, nil)

	outcome, err := r.ReconcilePending(context.Background(), "key", "user")
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.False(t, store.completed)
}

func TestReconcilePending_WrongAuthorReturnsNil(t *testing.T) {
	assertionID := "a1"
	store := &fakeStore{record: &models.IdempotencyRecord{
		Status: models.IdempotencyPending, AssertionID: &assertionID, CreatedAt: time.Now().Add(-10 * time.Minute),
	}}
	reader := &fakeGraphReader{ref: &graph.RevisionRef{ID: "a1", AuthorID: "someone-else"}}
	r := New(store, reader, nil)

	outcome, err := r.ReconcilePending(context.Background(), "key", "user")
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.False(t, store.completed)
}

func TestReconcilePending_ConfirmedCompletesAndReturnsOutcome(t *testing.T) {
	assertionID := "a1"
	store := &fakeStore{record: &models.IdempotencyRecord{
		Status: models.IdempotencyPending, AssertionID: &assertionID, CreatedAt: time.Now().Add(-10 * time.Minute),
	}}
	reader := &fakeGraphReader{ref: &graph.RevisionRef{ID: "a1", AuthorID: "user"}}
	r := New(store, reader, nil)

	outcome, err := r.ReconcilePending(context.Background(), "key", "user")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, "a1", outcome.AssertionID)
	assert.True(t, store.completed)
}

func TestReconcilePending_AlreadyCompleteReturnsNil(t *testing.T) {
	assertionID := "a1"
	store := &fakeStore{record: &models.IdempotencyRecord{
		Status: models.IdempotencyComplete, AssertionID: &assertionID, CreatedAt: time.Now().Add(-10 * time.Minute),
	}}
	reader := &fakeGraphReader{}
	r := New(store, reader, nil)

	outcome, err := r.ReconcilePending(context.Background(), "key", "user")
	require.NoError(t, err)
	assert.Nil(t, outcome)
}
