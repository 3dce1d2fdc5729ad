package delivery

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/observability"
)

// outboxTick is the worker loop's polling interval.
const outboxTick = 5 * time.Second

// fetchBatchSize bounds how many pending rows the worker pulls per
// adapter per tick.
const fetchBatchSize = 50

// deliverConcurrency bounds how many rows a single adapter drains
// concurrently within one tick.
const deliverConcurrency = 8

// OutboxStore is the subset of database.OutboxStore the worker needs.
type OutboxStore interface {
	FetchPending(ctx context.Context, adapter models.OutboxAdapter, limit int) ([]models.OutboxRow, error)
	MarkDelivered(ctx context.Context, id string) error
	MarkFailedAttempt(ctx context.Context, id string, attempts int, lastErr string) error
}

// Adapter delivers one outbox row's payload to its recipient.
// Websocket delivery fails (returns an error) when the recipient has
// no live connection, which is retryable; push delivery's retryable
// set depends on the downstream provider.
type Adapter interface {
	Deliver(ctx context.Context, row models.OutboxRow) error
}

// Worker polls the outbox on a fixed tick and drives rows through
// delivered/retry/failed per spec.md §4.7.
type Worker struct {
	store    OutboxStore
	adapters map[models.OutboxAdapter]Adapter
	hook     observability.Hook
	logger   *slog.Logger
}

// NewWorker constructs a Worker. hook may be nil.
func NewWorker(store OutboxStore, adapters map[models.OutboxAdapter]Adapter, hook observability.Hook) *Worker {
	if hook == nil {
		hook = observability.NoopHook{}
	}
	return &Worker{
		store:    store,
		adapters: adapters,
		hook:     hook,
		logger:   slog.Default().With("component", "outbox_worker"),
	}
}

// Run loops until ctx is done, ticking every outboxTick and draining
// pending rows for every registered adapter.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(outboxTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick drains every registered adapter's pending rows concurrently —
// a slow or blocked push provider doesn't hold up websocket delivery.
func (w *Worker) tick(ctx context.Context) {
	var g errgroup.Group
	for adapterName, adapter := range w.adapters {
		adapterName, adapter := adapterName, adapter
		g.Go(func() error {
			w.drainAdapter(ctx, adapterName, adapter)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) drainAdapter(ctx context.Context, adapterName models.OutboxAdapter, adapter Adapter) {
	rows, err := w.store.FetchPending(ctx, adapterName, fetchBatchSize)
	if err != nil {
		w.logger.Error("fetch pending outbox rows failed", "adapter", adapterName, "error", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(deliverConcurrency)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			w.deliverOne(ctx, adapter, row)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) deliverOne(ctx context.Context, adapter Adapter, row models.OutboxRow) {
	if err := adapter.Deliver(ctx, row); err != nil {
		if markErr := w.store.MarkFailedAttempt(ctx, row.ID, row.Attempts, err.Error()); markErr != nil {
			w.logger.Error("mark outbox row failed attempt errored", "rowId", row.ID, "error", markErr)
		}
		w.hook.Notice("outbox_delivery_failed", map[string]any{
			"rowId": row.ID, "adapter": string(row.Adapter), "attempts": row.Attempts + 1, "error": err.Error(),
		})
		return
	}

	if err := w.store.MarkDelivered(ctx, row.ID); err != nil {
		w.logger.Error("mark outbox row delivered errored", "rowId", row.ID, "error", err)
	}
}
