package delivery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/models"
)

type fakeOutboxStore struct {
	rows       []models.OutboxRow
	delivered  []string
	failed     map[string]int
	fetchErr   error
}

func (f *fakeOutboxStore) FetchPending(ctx context.Context, adapter models.OutboxAdapter, limit int) ([]models.OutboxRow, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []models.OutboxRow
	for _, r := range f.rows {
		if r.Adapter == adapter {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeOutboxStore) MarkDelivered(ctx context.Context, id string) error {
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeOutboxStore) MarkFailedAttempt(ctx context.Context, id string, attempts int, lastErr string) error {
	if f.failed == nil {
		f.failed = make(map[string]int)
	}
	f.failed[id] = attempts
	return nil
}

type fakeAdapter struct {
	shouldFail bool
	delivered  []string
}

func (f *fakeAdapter) Deliver(ctx context.Context, row models.OutboxRow) error {
	if f.shouldFail {
		return fmt.Errorf("delivery failed")
	}
	f.delivered = append(f.delivered, row.ID)
	return nil
}

func TestTick_DeliversSucceedingRows(t *testing.T) {
	store := &fakeOutboxStore{rows: []models.OutboxRow{
		{ID: "o1", Adapter: models.AdapterWebSocket, Attempts: 0},
	}}
	adapter := &fakeAdapter{}
	w := NewWorker(store, map[models.OutboxAdapter]Adapter{models.AdapterWebSocket: adapter}, nil)

	w.tick(context.Background())

	assert.Equal(t, []string{"o1"}, store.delivered)
	assert.Empty(t, store.failed)
}

func TestTick_FailingRowMarksFailedAttempt(t *testing.T) {
	store := &fakeOutboxStore{rows: []models.OutboxRow{
		{ID: "o2", Adapter: models.AdapterWebSocket, Attempts: 1},
	}}
	adapter := &fakeAdapter{shouldFail: true}
	w := NewWorker(store, map[models.OutboxAdapter]Adapter{models.AdapterWebSocket: adapter}, nil)

	w.tick(context.Background())

	assert.Empty(t, store.delivered)
	assert.Equal(t, 1, store.failed["o2"])
}

func TestTick_OnlyDrainsRegisteredAdapters(t *testing.T) {
	store := &fakeOutboxStore{rows: []models.OutboxRow{
		{ID: "o3", Adapter: models.AdapterPush, Attempts: 0},
	}}
	adapter := &fakeAdapter{}
	w := NewWorker(store, map[models.OutboxAdapter]Adapter{models.AdapterWebSocket: adapter}, nil)

	require.NotPanics(t, func() {
		w.tick(context.Background())
	})
	assert.Empty(t, adapter.delivered)
}

func TestTick_FetchErrorDoesNotPanic(t *testing.T) {
	store := &fakeOutboxStore{fetchErr: fmt.Errorf("db down")}
	adapter := &fakeAdapter{}
	w := NewWorker(store, map[models.OutboxAdapter]Adapter{models.AdapterWebSocket: adapter}, nil)

	require.NotPanics(t, func() {
		w.tick(context.Background())
	})
}
