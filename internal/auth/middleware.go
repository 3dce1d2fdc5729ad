package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/notewire/assertions/internal/config"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
)

// testUserHeader is the dev-only bypass header honored outside
// production, per spec.md §6 ("a non-production test-bypass header
// X-Test-User-Id is recognized only outside production").
const testUserHeader = "X-Test-User-Id"

// SessionLookup resolves a session token to a viewer; implemented by
// SessionStore.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (*graph.Viewer, error)
}

// Middleware authenticates every request, resolving either the
// X-Test-User-Id bypass (mode-gated) or the session token carried by
// the Authorization header, and storing the resulting viewer in the
// request context. Unauthenticated requests are rejected with 401
// immediately rather than left for handlers to discover.
func Middleware(store SessionLookup, mode config.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer, err := resolveViewer(r, store, mode)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), *viewer)))
		})
	}
}

func resolveViewer(r *http.Request, store SessionLookup, mode config.Mode) (*graph.Viewer, error) {
	if mode.AllowsTestUserBypass() {
		if id := r.Header.Get(testUserHeader); id != "" {
			return &graph.Viewer{ID: id, Role: models.RoleUser}, nil
		}
	}

	token := bearerToken(r)
	return store.Lookup(r.Context(), token)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	if cookie, err := r.Cookie("session_token"); err == nil {
		return cookie.Value
	}
	return ""
}
