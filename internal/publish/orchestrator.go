// Package publish implements the C5 publish orchestrator: the
// canonical six-step pipeline spec.md §4.4 describes, wiring together
// the idempotency store/reconciler, CSO validation, the graph store,
// the notification pipeline, and draft persistence.
package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notewire/assertions/internal/cso"
	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/idempotency"
	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/observability"
)

// IdempotencyStore is the subset of database.IdempotencyStore the
// orchestrator needs.
type IdempotencyStore interface {
	GetByKey(ctx context.Context, key, userID string) (*models.IdempotencyRecord, error)
	CreatePending(ctx context.Context, key, userID string) error
	Complete(ctx context.Context, key, userID, assertionID string) error
}

// Reconciler is the subset of idempotency.Reconciler the orchestrator needs.
type Reconciler interface {
	ReconcilePending(ctx context.Context, key, userID string) (*idempotency.PublishOutcome, error)
}

// GraphStore is the subset of graph.Store the orchestrator needs.
type GraphStore interface {
	Publish(ctx context.Context, viewer graph.Viewer, a models.Assertion, supersedesID *string, revisionMeta *graph.RevisionMetadata) (graph.PublishResult, error)
	GetAssertionForRevision(ctx context.Context, id string) (*graph.RevisionRef, error)
}

// NotifyPipeline is the subset of notify.Pipeline the orchestrator needs.
type NotifyPipeline interface {
	NotifyReply(ctx context.Context, parentAuthorID, actorID, replyAssertionID string)
}

// DraftStore is the subset of database.DraftStore the orchestrator needs.
type DraftStore interface {
	Delete(ctx context.Context, authorID string, respondsToID *string) error
}

// Orchestrator drives the publish pipeline.
type Orchestrator struct {
	idempotency IdempotencyStore
	reconciler  Reconciler
	graphStore  GraphStore
	notify      NotifyPipeline
	drafts      DraftStore
	hook        observability.Hook
	logger      *slog.Logger
}

// New constructs an Orchestrator. hook may be nil.
func New(idempotency IdempotencyStore, reconciler Reconciler, graphStore GraphStore, notify NotifyPipeline, drafts DraftStore, hook observability.Hook) *Orchestrator {
	if hook == nil {
		hook = observability.NoopHook{}
	}
	return &Orchestrator{
		idempotency: idempotency,
		reconciler:  reconciler,
		graphStore:  graphStore,
		notify:      notify,
		drafts:      drafts,
		hook:        hook,
		logger:      slog.Default().With("component", "publish_orchestrator"),
	}
}

// Request is the normalized publish request the orchestrator consumes.
type Request struct {
	Viewer         graph.Viewer
	CSO            *cso.CSO
	ClientID       *string
	ClearDraft     bool
	SupersedesID   *string
	IdempotencyKey *string
}

// Response is returned on success.
type Response struct {
	AssertionID string
	CreatedAt   time.Time
	Replayed    bool
}

// Publish runs the six-step pipeline. All errors are *errors.AppError,
// mapped to HTTP status by the httpapi layer.
func (o *Orchestrator) Publish(ctx context.Context, req Request) (*Response, error) {
	if req.IdempotencyKey != nil {
		resp, err := o.checkIdempotency(ctx, *req.IdempotencyKey, req.Viewer.ID)
		if err != nil || resp != nil {
			return resp, err
		}
	}

	validation := req.CSO.Validate()
	if !validation.OK {
		return nil, apperrors.Validationf("ERR_CSO_INVALID", "cso validation failed: %v", validation.Errors)
	}

	var revisionMeta *graph.RevisionMetadata
	if req.SupersedesID != nil {
		meta, err := o.authorizeRevision(ctx, *req.SupersedesID, req.Viewer)
		if err != nil {
			return nil, err
		}
		revisionMeta = meta
	}

	assertion := models.Assertion{
		ID:            uuid.NewString(),
		AssertionType: req.CSO.AssertionType,
		AuthorID:      req.Viewer.ID,
		Text:          req.CSO.Text,
		Title:         req.CSO.Title,
		Visibility:    req.CSO.Visibility,
		Media:         req.CSO.Media,
		Refs:          req.CSO.Refs,
		Topics:        req.CSO.Topics,
		Mentions:      req.CSO.Mentions,
		CreatedAt:     req.CSO.CreatedAt,
	}

	result, err := o.graphStore.Publish(ctx, req.Viewer, assertion, req.SupersedesID, revisionMeta)
	if err != nil {
		return nil, err
	}

	o.postWrite(ctx, req, assertion, result)

	return &Response{AssertionID: result.AssertionID, CreatedAt: result.CreatedAt}, nil
}

// checkIdempotency implements step 1. A non-nil Response (with or
// without error) means the caller should return immediately.
func (o *Orchestrator) checkIdempotency(ctx context.Context, key, userID string) (*Response, error) {
	record, err := o.idempotency.GetByKey(ctx, key, userID)
	if err != nil {
		return nil, apperrors.Internal(err, "idempotency lookup failed")
	}

	if record == nil {
		if err := o.idempotency.CreatePending(ctx, key, userID); err != nil {
			return nil, apperrors.Internal(err, "create pending idempotency record failed")
		}
		return nil, nil
	}

	switch record.Status {
	case models.IdempotencyComplete:
		var assertionID string
		if record.AssertionID != nil {
			assertionID = *record.AssertionID
		}
		return &Response{AssertionID: assertionID, CreatedAt: record.CreatedAt, Replayed: true}, nil
	case models.IdempotencyPending:
		outcome, err := o.reconciler.ReconcilePending(ctx, key, userID)
		if err != nil {
			return nil, apperrors.Internal(err, "reconcile pending idempotency record failed")
		}
		if outcome == nil {
			return nil, apperrors.Idempotency("publish request already in flight")
		}
		return &Response{AssertionID: outcome.AssertionID, CreatedAt: outcome.CreatedAt, Replayed: true}, nil
	default:
		return nil, apperrors.Internalf(nil, "unknown idempotency status %q", record.Status)
	}
}

// authorizeRevision implements step 3.
func (o *Orchestrator) authorizeRevision(ctx context.Context, supersedesID string, viewer graph.Viewer) (*graph.RevisionMetadata, error) {
	original, err := o.graphStore.GetAssertionForRevision(ctx, supersedesID)
	if err != nil {
		return nil, apperrors.Internal(err, "fetch original assertion failed")
	}
	if original == nil {
		return nil, apperrors.NotFound("original_not_found", "original assertion does not exist")
	}
	if original.SupersedesID != nil {
		return nil, apperrors.Conflict("already_revised", "original assertion has already been revised")
	}

	role := viewer.Role
	if role == "" {
		role = models.RoleUser
	}
	if original.AuthorID != viewer.ID && !role.CanReviseAny() {
		return nil, apperrors.Forbidden("viewer may not revise another author's assertion")
	}

	return &graph.RevisionMetadata{RevisionNumber: 1, RootAssertionID: supersedesID}, nil
}

// postWrite implements step 5: reply notification, draft clearing,
// and idempotency completion, none of which are allowed to fail the
// publish response.
func (o *Orchestrator) postWrite(ctx context.Context, req Request, a models.Assertion, result graph.PublishResult) {
	if a.AssertionType == models.AssertionResponse {
		if parentID, ok := graph.ExtractParentID(a.Refs); ok {
			parent, err := o.graphStore.GetAssertionForRevision(ctx, parentID)
			if err != nil {
				o.hook.Notice("publish_notify_parent_lookup_failed", map[string]any{"assertionId": result.AssertionID, "error": err.Error()})
			} else if parent != nil {
				o.notify.NotifyReply(ctx, parent.AuthorID, req.Viewer.ID, result.AssertionID)
			}
		}
	}

	if req.ClearDraft {
		var respondsToID *string
		if pid, ok := graph.ExtractParentID(a.Refs); ok {
			respondsToID = &pid
		}
		if err := o.drafts.Delete(ctx, req.Viewer.ID, respondsToID); err != nil {
			o.logger.Error("clear draft failed", "authorId", req.Viewer.ID, "error", err)
		}
	}

	if req.IdempotencyKey != nil {
		if err := o.idempotency.Complete(ctx, *req.IdempotencyKey, req.Viewer.ID, result.AssertionID); err != nil {
			o.logger.Error("complete idempotency record failed", "key", *req.IdempotencyKey, "error", err)
		}
	}
}
