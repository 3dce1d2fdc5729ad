package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// DraftStore persists in-progress composer drafts. Each author has at
// most one in-flight draft per response context (respondsToId, or the
// null context for a top-level compose).
type DraftStore struct {
	client *Client
}

// NewDraftStore wraps a connected Client.
func NewDraftStore(client *Client) *DraftStore {
	return &DraftStore{client: client}
}

// Upsert creates or replaces the author's draft for a given context.
func (s *DraftStore) Upsert(ctx context.Context, authorID string, respondsToID *string, body string) (models.Draft, error) {
	id := uuid.NewString()
	var d models.Draft
	err := s.client.pool.QueryRow(ctx,
		`INSERT INTO composer_drafts (id, author_id, responds_to_id, body, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (author_id, COALESCE(responds_to_id, ''))
		 DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
		 RETURNING id, author_id, responds_to_id, body, updated_at`,
		id, authorID, respondsToID, body).Scan(&d.ID, &d.AuthorID, &d.RespondsToID, &d.Body, &d.UpdatedAt)
	if err != nil {
		return models.Draft{}, apperrors.Internal(err, "upsert draft failed")
	}
	return d, nil
}

// Get returns the author's draft for a context, or nil if absent.
func (s *DraftStore) Get(ctx context.Context, authorID string, respondsToID *string) (*models.Draft, error) {
	var d models.Draft
	err := s.client.pool.QueryRow(ctx,
		`SELECT id, author_id, responds_to_id, body, updated_at
		 FROM composer_drafts
		 WHERE author_id = $1 AND COALESCE(responds_to_id, '') = COALESCE($2, '')`,
		authorID, respondsToID).Scan(&d.ID, &d.AuthorID, &d.RespondsToID, &d.Body, &d.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "get draft failed")
	}
	return &d, nil
}

// Delete removes a draft, e.g. after a successful publish with
// clearDraft set.
func (s *DraftStore) Delete(ctx context.Context, authorID string, respondsToID *string) error {
	_, err := s.client.pool.Exec(ctx,
		`DELETE FROM composer_drafts WHERE author_id = $1 AND COALESCE(responds_to_id, '') = COALESCE($2, '')`,
		authorID, respondsToID)
	if err != nil {
		return apperrors.Internal(err, "delete draft failed")
	}
	return nil
}

// CleanupExpired removes drafts untouched for longer than retention,
// returning the count removed.
func (s *DraftStore) CleanupExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	tag, err := s.client.pool.Exec(ctx,
		`DELETE FROM composer_drafts WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.Internal(err, "cleanup expired drafts failed")
	}
	return int(tag.RowsAffected()), nil
}
