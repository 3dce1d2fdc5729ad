package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/notewire/assertions/internal/auth"
	"github.com/notewire/assertions/internal/graph"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

// withViewer attaches viewer to r's context, as auth.Middleware would.
func withViewer(r *http.Request, viewer graph.Viewer) *http.Request {
	return r.WithContext(auth.WithViewer(r.Context(), viewer))
}

// withURLParam injects a chi route param into r's context, following
// the chi.RouteContext test-construction pattern rather than routing
// through a full chi.Mux.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
