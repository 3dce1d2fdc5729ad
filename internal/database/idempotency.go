package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// idempotencyTTL is how long a pending record stays live before
// cleanupExpired may reclaim it. Separate from the 5-minute
// reconciliation window C5's reconciler uses before attempting
// graph-side confirmation.
const idempotencyTTL = 24 * time.Hour

// IdempotencyStore persists the C4 pending/complete state machine.
type IdempotencyStore struct {
	client *Client
}

// NewIdempotencyStore wraps a connected Client.
func NewIdempotencyStore(client *Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// GetByKey returns the current record for (key, userId), or nil if
// absent or past expiry.
func (s *IdempotencyStore) GetByKey(ctx context.Context, key, userID string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.client.pool.QueryRow(ctx,
		`SELECT idempotency_key, user_id, assertion_id, status, created_at, expires_at
		 FROM publish_idempotency
		 WHERE idempotency_key = $1 AND user_id = $2 AND expires_at > NOW()`,
		key, userID).Scan(&rec.IdempotencyKey, &rec.UserID, &rec.AssertionID, &rec.Status, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "get idempotency record failed")
	}
	return &rec, nil
}

// CreatePending inserts a pending record with a 24h expiry. A
// concurrent duplicate insert is silently absorbed (ON CONFLICT DO
// NOTHING) — the caller re-reads via GetByKey to see which request won.
func (s *IdempotencyStore) CreatePending(ctx context.Context, key, userID string) error {
	now := time.Now()
	_, err := s.client.pool.Exec(ctx,
		`INSERT INTO publish_idempotency (idempotency_key, user_id, status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (idempotency_key, user_id) DO NOTHING`,
		key, userID, models.IdempotencyPending, now, now.Add(idempotencyTTL))
	if err != nil {
		return apperrors.Internal(err, "create pending idempotency record failed")
	}
	return nil
}

// Complete transitions pending to complete and stamps assertionId.
func (s *IdempotencyStore) Complete(ctx context.Context, key, userID, assertionID string) error {
	_, err := s.client.pool.Exec(ctx,
		`UPDATE publish_idempotency
		 SET status = $1, assertion_id = $2
		 WHERE idempotency_key = $3 AND user_id = $4`,
		models.IdempotencyComplete, assertionID, key, userID)
	if err != nil {
		return apperrors.Internal(err, "complete idempotency record failed")
	}
	return nil
}

// CleanupExpired deletes rows past expiresAt, returning the count removed.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int, error) {
	tag, err := s.client.pool.Exec(ctx, `DELETE FROM publish_idempotency WHERE expires_at < NOW()`)
	if err != nil {
		return 0, apperrors.Internal(err, "cleanup expired idempotency records failed")
	}
	return int(tag.RowsAffected()), nil
}
