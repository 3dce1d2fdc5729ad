package database

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// NotificationStore persists derived notifications. Insert is
// idempotent keyed on (actorId, assertionId, notificationType,
// coalesce(reactionType, '')) — repeated derivation from the same
// graph state produces exactly one row.
type NotificationStore struct {
	client *Client
}

// NewNotificationStore wraps a connected Client.
func NewNotificationStore(client *Client) *NotificationStore {
	return &NotificationStore{client: client}
}

// InsertReply inserts a reply notification if one doesn't already
// exist for this (actor, assertion) pair. Returns the inserted id and
// true, or ("", false) if the conflict target absorbed a duplicate.
func (s *NotificationStore) InsertReply(ctx context.Context, recipientID, actorID, assertionID string) (string, bool, error) {
	return s.insert(ctx, recipientID, actorID, assertionID, models.NotificationReply, nil)
}

// InsertReaction inserts a reaction notification, keyed additionally
// on reactionType so distinct reaction kinds each get their own row.
func (s *NotificationStore) InsertReaction(ctx context.Context, recipientID, actorID, assertionID string, reactionType models.ReactionType) (string, bool, error) {
	return s.insert(ctx, recipientID, actorID, assertionID, models.NotificationReaction, &reactionType)
}

func (s *NotificationStore) insert(ctx context.Context, recipientID, actorID, assertionID string, kind models.NotificationKind, reactionType *models.ReactionType) (string, bool, error) {
	id := uuid.NewString()
	var insertedID string
	err := s.client.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, recipient_id, actor_id, assertion_id, notification_type, reaction_type, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, NOW())
		 ON CONFLICT (actor_id, assertion_id, notification_type, COALESCE(reaction_type, '')) DO NOTHING
		 RETURNING id`,
		id, recipientID, actorID, assertionID, kind, reactionType).Scan(&insertedID)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, apperrors.Internal(err, "insert notification failed")
	}
	return insertedID, true, nil
}

// ListForRecipient returns a recipient's notifications newest first.
func (s *NotificationStore) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	rows, err := s.client.pool.Query(ctx,
		`SELECT id, recipient_id, actor_id, assertion_id, notification_type, reaction_type, read, created_at, read_at
		 FROM notifications
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		recipientID, limit)
	if err != nil {
		return nil, apperrors.Internal(err, "list notifications failed")
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.AssertionID, &n.NotificationType,
			&n.ReactionType, &n.Read, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, apperrors.Internal(err, "scan notification failed")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks a single notification read.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	_, err := s.client.pool.Exec(ctx,
		`UPDATE notifications SET read = true, read_at = NOW() WHERE id = $1 AND read = false`, id)
	if err != nil {
		return apperrors.Internal(err, "mark notification read failed")
	}
	return nil
}
