package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_IsMatchesByCode(t *testing.T) {
	withDetails := ErrUnavailable.WithDetails("mongo down")

	assert.True(t, stderrors.Is(withDetails, ErrUnavailable))
	assert.False(t, stderrors.Is(withDetails, ErrDenied))
	assert.Equal(t, "mongo down", withDetails.Details)
	assert.Empty(t, ErrUnavailable.Details, "sentinel must not be mutated")
}

func TestAPIError_WithCauseUnwraps(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := ErrCreateFailed.WithCause(cause)

	assert.True(t, stderrors.Is(err, ErrCreateFailed))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, cause.Error(), err.Details)
}

func TestAPIError_ErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: Resource not found", ErrNotFound.Error())
	assert.Equal(t, "NOT_FOUND: Resource not found (marker 7)", ErrNotFound.WithDetails("marker 7").Error())
}

func TestWrap(t *testing.T) {
	t.Run("passes api errors through", func(t *testing.T) {
		wrapped := fmt.Errorf("context: %w", ErrDenied)
		got := Wrap(wrapped, "X", "x", http.StatusTeapot)
		require.NotNil(t, got)
		assert.Equal(t, ErrDenied.Code, got.Code)
	})

	t.Run("wraps plain errors", func(t *testing.T) {
		plain := stderrors.New("boom")
		got := Wrap(plain, "BOOM", "Boom happened", http.StatusInternalServerError)
		assert.Equal(t, "BOOM", got.Code)
		assert.Equal(t, "boom", got.Details)
		assert.True(t, stderrors.Is(got, plain))
	})
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(ErrUnavailable))
	assert.Equal(t, http.StatusConflict, StatusOf(fmt.Errorf("wrapped: %w", ErrOperationInProgress)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stderrors.New("plain")))
}
