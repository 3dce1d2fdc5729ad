package auth

import (
	"context"

	"github.com/notewire/assertions/internal/graph"
)

type contextKey int

const viewerContextKey contextKey = iota

// WithViewer returns a context carrying viewer.
func WithViewer(ctx context.Context, viewer graph.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}

// ViewerFromContext retrieves the viewer set by the auth middleware.
// ok is false if no viewer was set (the middleware was skipped or the
// request was never authenticated).
func ViewerFromContext(ctx context.Context) (graph.Viewer, bool) {
	v, ok := ctx.Value(viewerContextKey).(graph.Viewer)
	return v, ok
}
