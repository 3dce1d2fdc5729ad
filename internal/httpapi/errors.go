// Package httpapi exposes the spec.md §6 HTTP surface: publish, feed
// reads, reactions, job health, and the notifications WebSocket,
// wired over go-chi.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/notewire/assertions/internal/errors"
)

// errorBody is the JSON shape every error response takes.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteError maps any error to its HTTP status and JSON body. Errors
// that aren't *errors.AppError are treated as internal (500) without
// leaking their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err, "internal error")
	}

	writeJSON(w, appErr.Status, errorBody{Error: errorDetail{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Validation("ERR_MALFORMED_BODY", "request body is not valid JSON")
	}
	return nil
}

var errViewerMissing = errors.New("viewer missing from request context")
