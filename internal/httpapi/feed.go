package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/feed"
	"github.com/notewire/assertions/internal/graph"
)

const defaultPageSize = 20

type feedHandler struct {
	store     graph.Store
	projector *feed.Projector
}

type feedItemResponse struct {
	Assertion any                 `json:"assertion"`
	Reactions any                 `json:"reactions"`
	ReplyTo   *string             `json:"replyTo,omitempty"`
	Replies   []feedItemResponse  `json:"replies,omitempty"`
}

func toItemResponse(it feed.Item) feedItemResponse {
	replies := make([]feedItemResponse, 0, len(it.Replies))
	for _, r := range it.Replies {
		replies = append(replies, toItemResponse(r))
	}
	return feedItemResponse{
		Assertion: it.Assertion,
		Reactions: it.Reactions,
		ReplyTo:   it.ReplyTo,
		Replies:   replies,
	}
}

type homeResponse struct {
	Items      []feedItemResponse `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// Home implements GET /home?cursor=&limit=.
func (h *feedHandler) Home(w http.ResponseWriter, r *http.Request) {
	viewer, err := requireViewer(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, convErr := strconv.Atoi(raw); convErr == nil && parsed > 0 {
			limit = parsed
		}
	}

	createdAt, id, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		WriteError(w, apperrors.Validation("ERR_MALFORMED_CURSOR", err.Error()))
		return
	}

	opts := graph.HomeGraphOptions{Limit: limit}
	if id != "" {
		opts.CursorCreatedAt = &createdAt
		opts.CursorID = &id
	}

	slice, err := h.store.ReadHomeGraph(r.Context(), opts)
	if err != nil {
		WriteError(w, err)
		return
	}

	items := h.projector.Home(slice, feed.Context{ViewerID: viewer.ID})

	resp := homeResponse{Items: make([]feedItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	if len(items) == limit {
		last := items[len(items)-1]
		resp.NextCursor = encodeCursor(last.Assertion.CreatedAt, last.Assertion.ID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Thread implements GET /thread/{assertionId}.
func (h *feedHandler) Thread(w http.ResponseWriter, r *http.Request) {
	viewer, err := requireViewer(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	rootID := chi.URLParam(r, "assertionId")
	slice, err := h.store.ReadThreadGraph(r.Context(), rootID)
	if err != nil {
		WriteError(w, err)
		return
	}

	items := h.projector.Thread(slice, rootID, feed.Context{ViewerID: viewer.ID})
	resp := make([]feedItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// History implements GET /assertions/{assertionId}/history.
func (h *feedHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, err := requireViewer(r); err != nil {
		WriteError(w, err)
		return
	}

	id := chi.URLParam(r, "assertionId")
	history, err := h.store.GetRevisionHistory(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type deleteResponse struct {
	AlreadyDeleted bool `json:"alreadyDeleted"`
}

// Delete implements DELETE /assertions/{assertionId}.
func (h *feedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, err := requireViewer(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	id := chi.URLParam(r, "assertionId")
	result, err := h.store.DeleteAssertion(r.Context(), id, viewer.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{AlreadyDeleted: result.AlreadyDeleted})
}
