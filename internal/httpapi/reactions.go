package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
)

// reactionNotifier is the subset of notify.Pipeline the reactions
// handler needs; narrowed so tests can fake it.
type reactionNotifier interface {
	NotifyReaction(ctx context.Context, assertionAuthorID, actorID, assertionID string, reactionType models.ReactionType)
}

type reactionsHandler struct {
	store  graph.Store
	notify reactionNotifier
}

type reactionRequest struct {
	AssertionID  string              `json:"assertionId"`
	ReactionType models.ReactionType `json:"reactionType"`
}

type reactionCountsResponse struct {
	AssertionID string                 `json:"assertionId"`
	Counts      models.ReactionCounts  `json:"counts"`
}

type reactionActionResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
}

// Add implements POST /reactions.
func (h *reactionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	viewer, err := requireViewer(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var body reactionRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if body.AssertionID == "" {
		WriteError(w, apperrors.Validation("ERR_MISSING_ASSERTION_ID", "assertionId is required"))
		return
	}
	if !models.IsValidReactionType(body.ReactionType) {
		WriteError(w, apperrors.Validation("ERR_INVALID_REACTION_TYPE", "unrecognized reactionType"))
		return
	}

	if err := h.store.AddReaction(r.Context(), viewer.ID, body.AssertionID, body.ReactionType); err != nil {
		WriteError(w, err)
		return
	}

	if h.notify != nil {
		if target, err := h.store.GetAssertionForRevision(r.Context(), body.AssertionID); err == nil && target != nil {
			h.notify.NotifyReaction(r.Context(), target.AuthorID, viewer.ID, body.AssertionID, body.ReactionType)
		}
	}

	writeJSON(w, http.StatusOK, reactionActionResponse{Success: true, Action: "added"})
}

// Remove implements DELETE /reactions.
func (h *reactionsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	viewer, err := requireViewer(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var body reactionRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if body.AssertionID == "" {
		WriteError(w, apperrors.Validation("ERR_MISSING_ASSERTION_ID", "assertionId is required"))
		return
	}

	if _, err := h.store.RemoveReaction(r.Context(), viewer.ID, body.AssertionID, body.ReactionType); err != nil {
		WriteError(w, err)
		return
	}

	counts, err := h.store.GetReactionsForAssertion(r.Context(), body.AssertionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reactionCountsResponse{AssertionID: body.AssertionID, Counts: counts})
}

// Get implements GET /reactions/{assertionId}.
func (h *reactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := requireViewer(r); err != nil {
		WriteError(w, err)
		return
	}

	id := chi.URLParam(r, "assertionId")
	counts, err := h.store.GetReactionsForAssertion(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reactionCountsResponse{AssertionID: id, Counts: counts})
}
