package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, BadRequest.Status())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized.Status())
	assert.Equal(t, http.StatusForbidden, Forbidden.Status())
	assert.Equal(t, http.StatusNotFound, NotFound.Status())
	assert.Equal(t, http.StatusGone, Gone.Status())
	assert.Equal(t, http.StatusConflict, Conflict.Status())
	assert.Equal(t, http.StatusBadGateway, Upstream.Status())
}

func TestErrorMessageIncludesWrappedCause(t *testing.T) {
	wrapped := Wrap(BadRequest, "parsing request", errors.New("unexpected token"))
	assert.Equal(t, "parsing request: unexpected token", wrapped.Error())
	assert.Equal(t, "unexpected token", errors.Unwrap(wrapped).Error())

	bare := New(NotFound, "no such object")
	assert.Equal(t, "no such object", bare.Error())
}

func TestAsExtractsKindOnlyFromTypedErrors(t *testing.T) {
	err := Wrap(Conflict, "duplicate", errors.New("already exists"))
	wrapped := errors.New("outer: " + err.Error())

	k, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, Conflict, k)

	_, ok = As(wrapped)
	assert.False(t, ok, "a plain error created separately is not an *Error")
}

func TestStatusDefaultsTo500ForUnknownErrors(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
	assert.Equal(t, http.StatusGone, Status(New(Gone, "deleted")))
}
