package cso

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/models"
)

func TestNew_RejectsInvalidEnums(t *testing.T) {
	now := time.Now()

	_, err := New(Input{AssertionType: "bogus", Visibility: models.VisibilityPublic, Text: "hi"}, now)
	require.Error(t, err)

	_, err = New(Input{AssertionType: models.AssertionMoment, Visibility: "bogus", Text: "hi"}, now)
	require.Error(t, err)
}

func TestNew_CoercesNilSequencesToEmpty(t *testing.T) {
	c, err := New(Input{AssertionType: models.AssertionMoment, Visibility: models.VisibilityPublic, Text: "hi"}, time.Now())
	require.NoError(t, err)

	assert.NotNil(t, c.Media)
	assert.NotNil(t, c.Refs)
	assert.NotNil(t, c.Topics)
	assert.NotNil(t, c.Mentions)
	assert.Empty(t, c.Media)
}

func TestValidate_EmptyAssertionRejected(t *testing.T) {
	c, err := New(Input{AssertionType: models.AssertionMoment, Visibility: models.VisibilityPublic}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, ErrEmptyAssertion)
}

func TestValidate_MediaOnlySatisfiesUniversalRule(t *testing.T) {
	c, err := New(Input{
		AssertionType: models.AssertionMoment,
		Visibility:    models.VisibilityPublic,
		Media:         []models.Media{{URL: "https://example.com/a.png"}},
	}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.True(t, result.OK)
	assert.Empty(t, result.Errors)
}

func TestValidate_ResponseRequiresRefs(t *testing.T) {
	c, err := New(Input{AssertionType: models.AssertionResponse, Visibility: models.VisibilityPublic, Text: "agreed"}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, ErrResponseNoTarget)
}

func TestValidate_ResponseRejectsMalformedRef(t *testing.T) {
	c, err := New(Input{
		AssertionType: models.AssertionResponse,
		Visibility:    models.VisibilityPublic,
		Text:          "agreed",
		Refs:          []models.Ref{{URI: ""}},
	}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, ErrInvalidRefShape)
}

func TestValidate_ResponseAcceptsWellFormedRef(t *testing.T) {
	c, err := New(Input{
		AssertionType: models.AssertionResponse,
		Visibility:    models.VisibilityPublic,
		Text:          "agreed",
		Refs:          []models.Ref{{URI: "assertion:abc123"}},
	}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.True(t, result.OK)
}

func TestValidate_CurationRequiresRefsOrMedia(t *testing.T) {
	c, err := New(Input{AssertionType: models.AssertionCuration, Visibility: models.VisibilityPublic, Text: "a collection"}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, ErrCurationEmpty)
}

func TestValidate_CurationAcceptsRefsAlone(t *testing.T) {
	c, err := New(Input{
		AssertionType: models.AssertionCuration,
		Visibility:    models.VisibilityPublic,
		Text:          "a collection",
		Refs:          []models.Ref{{URI: "assertion:xyz"}},
	}, time.Now())
	require.NoError(t, err)

	result := c.Validate()
	assert.True(t, result.OK)
}
