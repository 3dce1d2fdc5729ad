// Package idempotency implements the C4 reconciler: the logic that
// decides, for a pending record found on a replayed publish request,
// whether enough time has passed to attempt graph-side confirmation.
package idempotency

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/observability"
)

// reconcileAge is the minimum age a pending record must reach before
// the reconciler will attempt confirmation. Below this age the
// record is assumed to be a concurrent in-flight request, not a
// crashed one.
const reconcileAge = 5 * time.Minute

// Store is the subset of database.IdempotencyStore the reconciler
// needs, narrowed to an interface so it can be tested against a fake.
type Store interface {
	GetByKey(ctx context.Context, key, userID string) (*models.IdempotencyRecord, error)
	Complete(ctx context.Context, key, userID, assertionID string) error
}

// GraphReader is the subset of graph.Store the reconciler needs to
// confirm a pending record's claimed assertion actually exists.
type GraphReader interface {
	GetAssertionForRevision(ctx context.Context, id string) (*graph.RevisionRef, error)
}

// Reconciler resolves pending idempotency records that survive past
// the reconciliation window.
type Reconciler struct {
	store  Store
	reader GraphReader
	hook   observability.Hook
	logger *slog.Logger
}

// New constructs a Reconciler. hook may be nil, in which case a
// no-op hook is used.
func New(store Store, reader GraphReader, hook observability.Hook) *Reconciler {
	if hook == nil {
		hook = observability.NoopHook{}
	}
	return &Reconciler{
		store:  store,
		reader: reader,
		hook:   hook,
		logger: slog.Default().With("component", "idempotency_reconciler"),
	}
}

// ReconcilePending attempts to resolve a pending record found by C5
// on a replayed publish request. Returns (nil, nil) when the record
// is too fresh to reconcile or confirmation could not be established
// — in both cases the caller (C5) raises IdempotencyError and the
// client retries later. The reconciler never transitions
// pending→complete without graph-side confirmation.
func (r *Reconciler) ReconcilePending(ctx context.Context, key, userID string) (*PublishOutcome, error) {
	record, err := r.store.GetByKey(ctx, key, userID)
	if err != nil {
		return nil, apperrors.Internal(err, "reconcile: lookup pending record failed")
	}
	if record == nil {
		return nil, nil
	}
	if record.Status != models.IdempotencyPending {
		return nil, nil
	}

	age := time.Since(record.CreatedAt)
	if age < reconcileAge {
		return nil, nil
	}

	if record.AssertionID == nil {
		r.hook.Notice("idempotency_reconcile_no_assertion", map[string]any{
			"key": key, "userId": userID, "ageSeconds": age.Seconds(),
		})
		return nil, nil
	}

	ref, err := r.reader.GetAssertionForRevision(ctx, *record.AssertionID)
	if err != nil {
		return nil, apperrors.Internal(err, "reconcile: graph confirmation lookup failed")
	}
	if ref == nil || ref.AuthorID != userID {
		r.hook.Notice("idempotency_reconcile_unconfirmed", map[string]any{
			"key": key, "userId": userID, "assertionId": *record.AssertionID,
		})
		return nil, nil
	}

	if err := r.store.Complete(ctx, key, userID, *record.AssertionID); err != nil {
		return nil, apperrors.Internal(err, "reconcile: complete failed")
	}

	r.logger.Info("reconciled pending idempotency record", "key", key, "userId", userID, "assertionId", *record.AssertionID)
	return &PublishOutcome{AssertionID: *record.AssertionID, CreatedAt: ref.CreatedAt}, nil
}

// PublishOutcome is the minimal shape C5 needs to replay a publish
// response once reconciliation succeeds.
type PublishOutcome struct {
	AssertionID string
	CreatedAt   time.Time
}
