package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("approve: %w", ErrInvalidState.WithDetail("status is failed"))

	assert.True(t, stderrors.Is(err, ErrInvalidState))
	assert.False(t, stderrors.Is(err, ErrValidation))
}

func TestAppError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrValidation.WithDetail("title: is required")

	assert.Empty(t, ErrValidation.Detail)
	assert.Nil(t, ErrValidation.Err)
}

func TestValidation_NamesField(t *testing.T) {
	err := Validation("chapters[0].sections", "is required")

	assert.Equal(t, "[4002] validation failed: chapters[0].sections: is required", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrPersistence.WithError(stderrors.New("disk full")))
	appErr := AsAppError(wrapped)
	assert.Equal(t, CodeDatabaseError, appErr.Code)

	plain := AsAppError(stderrors.New("plain"))
	assert.Equal(t, CodeUnknown, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)
}

func TestCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, ErrInvalidState.HTTPStatus)
	assert.Equal(t, http.StatusNotFound, ErrNotFound.HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, ErrRateLimited.HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, ErrProviderUnavailable.HTTPStatus)
}
