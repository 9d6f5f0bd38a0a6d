package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("Name", "", "required field is empty")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "Name")
}

func TestAPIErrorStatusMapping(t *testing.T) {
	rateLimited := NewAPIError("refcat", 429, "too many requests")
	assert.True(t, errors.Is(rateLimited, ErrRateLimited))
	assert.True(t, IsRateLimited(rateLimited))

	unavailable := NewAPIError("refcat", 503, "service unavailable")
	assert.True(t, errors.Is(unavailable, ErrProviderUnavailable))
	assert.True(t, IsProviderUnavailable(unavailable))

	clientErr := NewAPIError("refcat", 404, "not found")
	assert.False(t, IsRateLimited(clientErr))
	assert.False(t, IsProviderUnavailable(clientErr))
}

func TestStepErrorWraps(t *testing.T) {
	cause := New("boom")
	err := NewStepError("dedupe", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "dedupe")
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("corpus", "aptos")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "aptos")
}

func TestIOErrorMessageFromCause(t *testing.T) {
	cause := New("disk full")
	err := NewIOError("write", "/tmp/aptos.csv", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "/tmp/aptos.csv")
}

func TestWrapHelpersNilPassThrough(t *testing.T) {
	assert.NoError(t, WrapIO("read", "x", nil))
	assert.NoError(t, WrapParse("csv", "x", nil))
	assert.NoError(t, WrapAPI("refcat", 0, nil))
	assert.NoError(t, WrapValidation("Name", nil))
}
