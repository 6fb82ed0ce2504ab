package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithErrorReturnsCopy(t *testing.T) {
	cause := stderrors.New("upstream timeout")
	wrapped := ErrGenerationFailed.WithError(cause).WithDetail("diagram")

	assert.Nil(t, ErrGenerationFailed.Err)
	assert.Empty(t, ErrGenerationFailed.Detail)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "diagram", wrapped.Detail)
	assert.Equal(t, http.StatusInternalServerError, wrapped.HTTPStatus)
}

func TestStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:       http.StatusBadRequest,
		CodeInvalidOperation:   http.StatusBadRequest,
		CodeProjectNotFound:    http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeGenerationFailed:   http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := fmt.Errorf("handler: %w", ErrConflict)
	assert.True(t, IsAppError(appErr))
	assert.Same(t, ErrConflict, AsAppError(appErr))

	plain := stderrors.New("boom")
	assert.False(t, IsAppError(plain))
	got := AsAppError(plain)
	assert.Equal(t, CodeInternalError, got.Code)
	assert.Equal(t, ErrInternalError.Message, got.Message)
	assert.ErrorIs(t, got, plain)
	assert.Equal(t, "[1007] An unexpected error occurred: boom", got.Error())
}
