package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/notewire/assertions/internal/cso"
	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/publish"
)

// orchestrator is the subset of publish.Orchestrator the handler
// needs, narrowed so it can be tested against a fake.
type orchestrator interface {
	Publish(ctx context.Context, req publish.Request) (*publish.Response, error)
}

type publishHandler struct {
	orchestrator orchestrator
}

// publishRequest is the POST /publish request body, per spec.md §6.
type publishRequest struct {
	AssertionType  models.AssertionType `json:"assertionType"`
	Text           string               `json:"text"`
	Title          *string              `json:"title,omitempty"`
	Visibility     models.Visibility    `json:"visibility"`
	Media          []models.Media       `json:"media,omitempty"`
	Refs           []models.Ref         `json:"refs,omitempty"`
	Topics         []string             `json:"topics,omitempty"`
	Mentions       []string             `json:"mentions,omitempty"`
	ClientID       *string              `json:"clientId,omitempty"`
	ClearDraft     bool                 `json:"clearDraft,omitempty"`
	SupersedesID   *string              `json:"supersedesId,omitempty"`
	IdempotencyKey *string              `json:"idempotencyKey,omitempty"`
}

type publishResponse struct {
	AssertionID string    `json:"assertionId"`
	CreatedAt   time.Time `json:"createdAt"`
	Replayed    bool      `json:"replayed,omitempty"`
}

func (h *publishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	viewer, err := requireViewer(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var body publishRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	in := cso.Input{
		AssertionType: body.AssertionType,
		Text:          body.Text,
		Title:         body.Title,
		Visibility:    body.Visibility,
		Media:         body.Media,
		Refs:          body.Refs,
		Topics:        body.Topics,
		Mentions:      body.Mentions,
	}
	c, err := cso.New(in, time.Now().UTC())
	if err != nil {
		WriteError(w, apperrors.Validation("ERR_INVALID_ENUM", err.Error()))
		return
	}

	result, err := h.orchestrator.Publish(r.Context(), publish.Request{
		Viewer:         viewer,
		CSO:            c,
		ClientID:       body.ClientID,
		ClearDraft:     body.ClearDraft,
		SupersedesID:   body.SupersedesID,
		IdempotencyKey: body.IdempotencyKey,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, publishResponse{
		AssertionID: result.AssertionID,
		CreatedAt:   result.CreatedAt,
		Replayed:    result.Replayed,
	})
}
