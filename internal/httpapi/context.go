package httpapi

import (
	"net/http"

	"github.com/notewire/assertions/internal/auth"
	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/graph"
)

// requireViewer extracts the viewer the auth middleware attached to
// the request context. A missing viewer means the middleware wasn't
// mounted for this route, which is a wiring bug, not a client error —
// surfaced as 401 regardless, since there is no safe default.
func requireViewer(r *http.Request) (graph.Viewer, error) {
	viewer, ok := auth.ViewerFromContext(r.Context())
	if !ok {
		return graph.Viewer{}, apperrors.Unauthorized(errViewerMissing.Error())
	}
	return viewer, nil
}
