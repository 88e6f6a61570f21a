package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	base := 10 * time.Millisecond
	assert.Equal(t, base, backoffDelay(0, base))
	assert.Equal(t, 2*base, backoffDelay(1, base))
	assert.Equal(t, 4*base, backoffDelay(2, base))
}

func TestWithRetrySucceedsWithoutRetrying(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryPropagatesNonTransientImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("not a provider error")
	err := withRetry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return &smithyAPIErrorStub{code: "Throttling"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryClassifiesExhaustedTransientError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}, func() error {
		calls++
		return &smithyAPIErrorStub{code: "InsufficientInstanceCapacity"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial + 2 retries
	assert.Contains(t, err.Error(), "Capacity")
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}, func() error {
		return &smithyAPIErrorStub{code: "Throttling"}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
