package brokererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindValidation, "ValidationError"},
		{KindNotFound, "NotFoundError"},
		{KindInvalidStateTransition, "InvalidStateTransitionError"},
		{KindTransient, "TransientProviderError"},
		{KindProvider, "ProviderError"},
		{KindStorage, "StorageError"},
		{KindTimeout, "TimeoutError"},
		{KindRateLimit, "RateLimitExceeded"},
		{KindInternal, "InternalError"},
	}
	for _, tc := range cases {
		e := New(tc.kind, "boom")
		assert.Equal(t, tc.want, e.ErrorType())
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Storage("save", cause)

	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "Storage", string(wrapped.Kind))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAsAndIsKind(t *testing.T) {
	err := NotFound("Template", "tmpl-1")

	var typed *Error
	require.True(t, As(err, &typed))
	assert.Equal(t, KindNotFound, typed.Kind)
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindTimeout))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)
}

func TestPlainErrorIsNotATypedKind(t *testing.T) {
	_, ok := KindOf(errors.New("untyped"))
	assert.False(t, ok)
}

func TestWithDetail(t *testing.T) {
	err := InvalidStateTransition("Request", "Complete", "Running").
		WithDetail("request_id", "req-1")

	assert.Equal(t, "Complete", err.Details["from"])
	assert.Equal(t, "Running", err.Details["to"])
	assert.Equal(t, "req-1", err.Details["request_id"])
}
