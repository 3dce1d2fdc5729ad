package jobs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunStore struct {
	startCalls    int
	completeCalls []int
	failErrors    []string
	startErr      error
}

func (f *fakeRunStore) Start(ctx context.Context, jobName string) (string, error) {
	f.startCalls++
	if f.startErr != nil {
		return "", f.startErr
	}
	return "run-1", nil
}

func (f *fakeRunStore) Complete(ctx context.Context, id string, rowCount int) error {
	f.completeCalls = append(f.completeCalls, rowCount)
	return nil
}

func (f *fakeRunStore) Fail(ctx context.Context, id string, jobErr string) error {
	f.failErrors = append(f.failErrors, jobErr)
	return nil
}

func TestRun_SuccessCompletesWithRowCount(t *testing.T) {
	store := &fakeRunStore{}
	r := New(store)

	require.NotPanics(t, func() {
		r.Run(context.Background(), "draft_cleanup", func(ctx context.Context) (int, error) {
			return 7, nil
		})
	})

	assert.Equal(t, []int{7}, store.completeCalls)
	assert.Empty(t, store.failErrors)
}

func TestRun_BodyErrorFailsRun(t *testing.T) {
	store := &fakeRunStore{}
	r := New(store)

	r.Run(context.Background(), "outbox_cleanup", func(ctx context.Context) (int, error) {
		return 0, fmt.Errorf("purge failed")
	})

	assert.Empty(t, store.completeCalls)
	assert.Equal(t, []string{"purge failed"}, store.failErrors)
}

func TestRun_StartErrorSkipsBody(t *testing.T) {
	store := &fakeRunStore{startErr: fmt.Errorf("db down")}
	r := New(store)

	called := false
	r.Run(context.Background(), "idempotency_cleanup", func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})

	assert.False(t, called)
	assert.Empty(t, store.completeCalls)
}
