// Package notify implements the C7 notification pipeline: deriving
// reply/reaction signals from writes, persisting them idempotently,
// and fanning out one outbox row per enabled delivery adapter.
package notify

import (
	"context"
	"log/slog"

	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/observability"
)

// NotificationStore is the subset of database.NotificationStore the
// pipeline needs.
type NotificationStore interface {
	InsertReply(ctx context.Context, recipientID, actorID, assertionID string) (id string, inserted bool, err error)
	InsertReaction(ctx context.Context, recipientID, actorID, assertionID string, reactionType models.ReactionType) (id string, inserted bool, err error)
}

// OutboxStore is the subset of database.OutboxStore the pipeline needs.
type OutboxStore interface {
	Enqueue(ctx context.Context, notificationID string, adapter models.OutboxAdapter) error
}

// Delivery attempts an immediate best-effort push to a recipient;
// implemented by internal/delivery's WebSocket registry. Delivery
// failures are not pipeline errors — the outbox worker guarantees
// eventual delivery.
type Delivery interface {
	DeliverToUser(recipientID string, payload any) (delivered bool, connectionCount int)
}

// Pipeline derives and persists notifications from write-path events.
type Pipeline struct {
	notifications NotificationStore
	outbox        OutboxStore
	delivery      Delivery
	adapters      []models.OutboxAdapter
	hook          observability.Hook
	logger        *slog.Logger
}

// New constructs a Pipeline. adapters lists the enabled delivery
// channels an inserted notification fans out to; delivery and hook
// may be nil (a nil delivery skips the immediate-send attempt).
func New(notifications NotificationStore, outbox OutboxStore, delivery Delivery, adapters []models.OutboxAdapter, hook observability.Hook) *Pipeline {
	if hook == nil {
		hook = observability.NoopHook{}
	}
	return &Pipeline{
		notifications: notifications,
		outbox:        outbox,
		delivery:      delivery,
		adapters:      adapters,
		hook:          hook,
		logger:        slog.Default().With("component", "notify_pipeline"),
	}
}

// ReplyPayload is the websocket/push frame shape for a reply notification.
type ReplyPayload struct {
	Type         string `json:"type"`
	AssertionID  string `json:"assertionId"`
	ActorID      string `json:"actorId"`
}

// ReactionPayload is the websocket/push frame shape for a reaction notification.
type ReactionPayload struct {
	Type         string              `json:"type"`
	AssertionID  string              `json:"assertionId"`
	ActorID      string              `json:"actorId"`
	ReactionType models.ReactionType `json:"reactionType"`
}

// NotifyReply derives a reply signal. Self-replies (parent authored
// by the replier) are skipped entirely — there is nothing to notify.
// All work here is fire-and-forget from the publisher's perspective:
// failures are logged via the observability hook, never returned to
// the caller as a publish failure.
func (p *Pipeline) NotifyReply(ctx context.Context, parentAuthorID, actorID, replyAssertionID string) {
	if parentAuthorID == actorID {
		return
	}

	id, inserted, err := p.notifications.InsertReply(ctx, parentAuthorID, actorID, replyAssertionID)
	if err != nil {
		p.hook.Notice("notify_reply_insert_failed", map[string]any{
			"recipientId": parentAuthorID, "actorId": actorID, "assertionId": replyAssertionID, "error": err.Error(),
		})
		return
	}
	if !inserted {
		return
	}

	p.fanOut(ctx, id, parentAuthorID, ReplyPayload{Type: "reply", AssertionID: replyAssertionID, ActorID: actorID})
}

// NotifyReaction derives a reaction signal, skipping self-reactions.
func (p *Pipeline) NotifyReaction(ctx context.Context, assertionAuthorID, actorID, assertionID string, reactionType models.ReactionType) {
	if assertionAuthorID == actorID {
		return
	}

	id, inserted, err := p.notifications.InsertReaction(ctx, assertionAuthorID, actorID, assertionID, reactionType)
	if err != nil {
		p.hook.Notice("notify_reaction_insert_failed", map[string]any{
			"recipientId": assertionAuthorID, "actorId": actorID, "assertionId": assertionID, "error": err.Error(),
		})
		return
	}
	if !inserted {
		return
	}

	p.fanOut(ctx, id, assertionAuthorID, ReactionPayload{
		Type: "reaction", AssertionID: assertionID, ActorID: actorID, ReactionType: reactionType,
	})
}

// fanOut enqueues one outbox row per enabled adapter and attempts an
// immediate websocket delivery. Enqueue failures are logged, never
// propagated — the caller already has its notification persisted.
func (p *Pipeline) fanOut(ctx context.Context, notificationID, recipientID string, payload any) {
	for _, adapter := range p.adapters {
		if err := p.outbox.Enqueue(ctx, notificationID, adapter); err != nil {
			p.hook.Notice("outbox_enqueue_failed", map[string]any{
				"notificationId": notificationID, "adapter": string(adapter), "error": err.Error(),
			})
		}
	}

	if p.delivery == nil {
		return
	}
	delivered, connectionCount := p.delivery.DeliverToUser(recipientID, payload)
	p.logger.Debug("immediate delivery attempted", "notificationId", notificationID, "delivered", delivered, "connections", connectionCount)
}
