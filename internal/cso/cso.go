// Package cso implements the Composer State Object: the canonical
// in-memory structural form a publish request is normalized into
// before validation and graph write. Grounded on the teacher's
// internal/config.ValidationResult pattern (ok/errors/warnings rather
// than a single returned error), generalized from config validation to
// assertion-content validation.
package cso

import (
	"time"

	"github.com/notewire/assertions/internal/models"
)

// Input is the raw, untrusted shape a publish request body decodes
// into. Construction normalizes it into a CSO.
type Input struct {
	AssertionType models.AssertionType `json:"assertionType"`
	Text          string               `json:"text"`
	Title         *string              `json:"title,omitempty"`
	Visibility    models.Visibility    `json:"visibility"`
	Media         []models.Media       `json:"media,omitempty"`
	Refs          []models.Ref         `json:"refs,omitempty"`
	Topics        []string             `json:"topics,omitempty"`
	Mentions      []string             `json:"mentions,omitempty"`
}

// CSO is the canonical, normalized structural input to publish.
// Enumerations are restricted to valid values at construction time;
// sequence fields are never nil.
type CSO struct {
	AssertionType models.AssertionType
	Text          string
	Title         *string
	Visibility    models.Visibility
	Media         []models.Media
	Refs          []models.Ref
	Topics        []string
	Mentions      []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Result is the outcome of Validate: {ok, errors[], warnings[]}.
type Result struct {
	OK       bool
	Errors   []string
	Warnings []string
}

func (r *Result) addError(code string) {
	r.OK = false
	r.Errors = append(r.Errors, code)
}

// New constructs a CSO from an Input, restricting assertionType and
// visibility to their enumerations and coercing sequence fields to
// non-nil slices. Invalid enum values are rejected here, not at
// Validate time, matching the teacher's fail-fast construction style.
func New(in Input, now time.Time) (*CSO, error) {
	if !models.IsValidAssertionType(in.AssertionType) {
		return nil, &InvalidEnumError{Field: "assertionType", Value: string(in.AssertionType)}
	}
	if !models.IsValidVisibility(in.Visibility) {
		return nil, &InvalidEnumError{Field: "visibility", Value: string(in.Visibility)}
	}

	c := &CSO{
		AssertionType: in.AssertionType,
		Text:          in.Text,
		Title:         in.Title,
		Visibility:    in.Visibility,
		Media:         in.Media,
		Refs:          in.Refs,
		Topics:        in.Topics,
		Mentions:      in.Mentions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c.Media == nil {
		c.Media = []models.Media{}
	}
	if c.Refs == nil {
		c.Refs = []models.Ref{}
	}
	if c.Topics == nil {
		c.Topics = []string{}
	}
	if c.Mentions == nil {
		c.Mentions = []string{}
	}
	return c, nil
}

// InvalidEnumError is returned by New when assertionType or visibility
// is outside its enumeration. It is a construction-time rejection, not
// a Validate-time error, so it's a plain error rather than an AppError
// - the HTTP layer wraps it as a ValidationError.
type InvalidEnumError struct {
	Field string
	Value string
}

func (e *InvalidEnumError) Error() string {
	return "invalid " + e.Field + ": " + e.Value
}

// Error codes returned in Result.Errors, named for HTTP boundary mapping.
const (
	ErrEmptyAssertion    = "ERR_EMPTY_ASSERTION"
	ErrResponseNoTarget  = "ERR_RESPONSE_NO_TARGET"
	ErrInvalidRefShape   = "ERR_INVALID_REF_SHAPE"
	ErrCurationEmpty     = "ERR_CURATION_EMPTY"
)

// Validate applies the universal and type-specific structural rules
// from spec.md §4.1 and returns {ok, errors[], warnings[]}.
func (c *CSO) Validate() *Result {
	r := &Result{OK: true}

	hasText := c.Text != ""
	hasMedia := len(c.Media) > 0
	if !hasText && !hasMedia {
		r.addError(ErrEmptyAssertion)
	}

	if c.AssertionType == models.AssertionResponse {
		if len(c.Refs) == 0 {
			r.addError(ErrResponseNoTarget)
		} else if !allRefsWellFormed(c.Refs) {
			r.addError(ErrInvalidRefShape)
		}
	}

	if c.AssertionType == models.AssertionCuration {
		if len(c.Refs) == 0 && !hasMedia {
			r.addError(ErrCurationEmpty)
		}
	}

	return r
}

// allRefsWellFormed reports whether every ref is an object carrying a
// nonempty uri. Refs arrive pre-typed as models.Ref in this Go
// implementation (the strict "no bare strings" contract guard from
// spec.md §4.1 is enforced at JSON-decode time by the Ref struct
// shape, not here).
func allRefsWellFormed(refs []models.Ref) bool {
	for _, ref := range refs {
		if ref.URI == "" {
			return false
		}
	}
	return true
}
