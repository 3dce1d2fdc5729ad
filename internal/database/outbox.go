package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// outboxMaxAttempts caps retries before a row is given up as failed,
// per spec.md §4.7's `attempts ≥ 5` cutoff.
const outboxMaxAttempts = 5

// OutboxStore persists per-adapter notification fan-out rows, retried
// with exponential backoff until delivered or exhausted. Grounded on
// the teacher's dead-letter-queue retry pattern (ON CONFLICT ... DO
// UPDATE incrementing a retry counter), adapted from a single Postgres
// retry queue to the spec's per-(notification, adapter) outbox rows.
type OutboxStore struct {
	client *Client
}

// NewOutboxStore wraps a connected Client.
func NewOutboxStore(client *Client) *OutboxStore {
	return &OutboxStore{client: client}
}

// Enqueue creates a pending outbox row for one adapter. Idempotent on
// (notificationId, adapter) — re-enqueuing the same pair is a no-op.
func (s *OutboxStore) Enqueue(ctx context.Context, notificationID string, adapter models.OutboxAdapter) error {
	id := uuid.NewString()
	_, err := s.client.pool.Exec(ctx,
		`INSERT INTO notification_outbox (id, notification_id, adapter, status, attempts, next_attempt_at, created_at)
		 VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		 ON CONFLICT (notification_id, adapter) DO NOTHING`,
		id, notificationID, adapter, models.OutboxPending)
	if err != nil {
		return apperrors.Internal(err, "enqueue outbox row failed")
	}
	return nil
}

// FetchPending returns up to limit rows for adapter where
// nextAttemptAt has elapsed, oldest first.
func (s *OutboxStore) FetchPending(ctx context.Context, adapter models.OutboxAdapter, limit int) ([]models.OutboxRow, error) {
	rows, err := s.client.pool.Query(ctx,
		`SELECT o.id, o.notification_id, n.recipient_id, o.adapter, o.status, o.attempts,
		        o.next_attempt_at, o.last_error, o.created_at, o.delivered_at
		 FROM notification_outbox o
		 JOIN notifications n ON n.id = o.notification_id
		 WHERE o.adapter = $1 AND o.status = $2 AND o.next_attempt_at <= NOW()
		 ORDER BY o.created_at ASC
		 LIMIT $3`,
		adapter, models.OutboxPending, limit)
	if err != nil {
		return nil, apperrors.Internal(err, "fetch pending outbox rows failed")
	}
	defer rows.Close()

	var out []models.OutboxRow
	for rows.Next() {
		var r models.OutboxRow
		if err := rows.Scan(&r.ID, &r.NotificationID, &r.RecipientID, &r.Adapter, &r.Status, &r.Attempts,
			&r.NextAttemptAt, &r.LastError, &r.CreatedAt, &r.DeliveredAt); err != nil {
			return nil, apperrors.Internal(err, "scan outbox row failed")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkDelivered transitions a row to delivered.
func (s *OutboxStore) MarkDelivered(ctx context.Context, id string) error {
	_, err := s.client.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = $1, attempts = attempts + 1, delivered_at = NOW()
		 WHERE id = $2`,
		models.OutboxDelivered, id)
	if err != nil {
		return apperrors.Internal(err, "mark outbox row delivered failed")
	}
	return nil
}

// MarkFailedAttempt records a failed delivery attempt. If attempts
// reaches outboxMaxAttempts the row moves to failed; otherwise it
// stays pending with nextAttemptAt pushed out by 60s·2^attempts.
func (s *OutboxStore) MarkFailedAttempt(ctx context.Context, id string, attempts int, lastErr string) error {
	nextAttempts := attempts + 1
	if nextAttempts >= outboxMaxAttempts {
		_, err := s.client.pool.Exec(ctx,
			`UPDATE notification_outbox SET status = $1, attempts = $2, last_error = $3 WHERE id = $4`,
			models.OutboxFailed, nextAttempts, lastErr, id)
		if err != nil {
			return apperrors.Internal(err, "mark outbox row failed")
		}
		return nil
	}

	backoff := time.Duration(60) * time.Second * time.Duration(1<<uint(attempts))
	_, err := s.client.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET attempts = $1, next_attempt_at = NOW() + $2, last_error = $3
		 WHERE id = $4`,
		nextAttempts, backoff, lastErr, id)
	if err != nil {
		return apperrors.Internal(err, "reschedule outbox row failed")
	}
	return nil
}

// PurgeOld deletes delivered/failed rows older than retention,
// returning the count removed.
func (s *OutboxStore) PurgeOld(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	tag, err := s.client.pool.Exec(ctx,
		`DELETE FROM notification_outbox
		 WHERE status IN ($1, $2) AND created_at < $3`,
		models.OutboxDelivered, models.OutboxFailed, cutoff)
	if err != nil {
		return 0, apperrors.Internal(err, "purge old outbox rows failed")
	}
	return int(tag.RowsAffected()), nil
}
