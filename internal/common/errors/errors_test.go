package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	err := NewInvalidTransitionError("rejected", "approved")

	assert.True(t, IsCode(err, ErrCodeInvalidTransition))
	assert.False(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeInvalidTransition))
	assert.False(t, IsCode(nil, ErrCodeInvalidTransition))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := NewApplicationLockedError("writer A won")
	b := NewApplicationLockedError("writer B won")

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, NewNotFoundError("application", "x")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidTransition, http.StatusUnprocessableEntity},
		{ErrCodeApplicationLocked, http.StatusConflict},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeSchemeFrozen, http.StatusConflict},
		{ErrCodeForbidden, http.StatusForbidden},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.code), string(tt.code))
	}
}

func TestNormalize(t *testing.T) {
	de := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), de.Code)
	assert.Equal(t, "boom", de.Details)

	orig := NewForbiddenError("nope")
	assert.Same(t, orig, Normalize(orig))
}
