// Package auth resolves an inbound request's session into a viewer
// identity, with a dev-only test bypass per config.Mode.
package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/notewire/assertions/internal/database"
	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/graph"
)

// SessionStore resolves a session token against the relational
// `session`/`user` tables, grounded on the same pgxpool-backed query
// style as the other internal/database stores.
type SessionStore struct {
	client *database.Client
}

// NewSessionStore wraps a connected Client.
func NewSessionStore(client *database.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Lookup resolves a bearer/cookie token to its viewer, rejecting
// expired or unknown sessions with Unauthorized.
func (s *SessionStore) Lookup(ctx context.Context, token string) (*graph.Viewer, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("missing session token")
	}

	var v graph.Viewer
	err := s.client.Pool().QueryRow(ctx,
		`SELECT u.id, u.handle, u.display_name, u.role
		 FROM session s
		 JOIN "user" u ON u.id = s.user_id
		 WHERE s.token = $1 AND s.expires_at > NOW()`,
		token).Scan(&v.ID, &v.Handle, &v.DisplayName, &v.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Unauthorized("session not found or expired")
		}
		return nil, apperrors.Internal(err, "session lookup failed")
	}
	return &v, nil
}
