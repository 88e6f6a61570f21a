package provider

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
)

// RetryPolicy is the pure backoff schedule every cloud call is wrapped in
// (spec §4.6, "common retry wrapper"): exponential base delay, capped
// attempt count, whitelist-only retry.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy is the stated default (spec.md §4.6): base 1s, 3 retries.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}

// backoffDelay computes delay(attempt) = base * 2^attempt, uncapped by a
// ceiling (the attempt count itself is the cap, per spec §4.6).
func backoffDelay(attempt int, base time.Duration) time.Duration {
	return base * time.Duration(uint64(1)<<uint(attempt))
}

// transientCodes is the whitelist of provider error codes retried with
// backoff; everything else propagates on the first attempt.
var transientCodes = map[string]bool{
	"RequestLimitExceeded":         true,
	"Throttling":                   true,
	"ThrottlingException":          true,
	"TooManyRequestsException":     true,
	"InsufficientInstanceCapacity": true,
	"InternalError":                true,
	"InternalFailure":              true,
	"ServiceUnavailable":           true,
}

func isTransient(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return transientCodes[apiErr.ErrorCode()]
	}
	return false
}

// withRetry runs operation, retrying on a whitelisted transient error up to
// policy.MaxRetries times with exponential backoff. A non-whitelisted error
// propagates immediately. On retry exhaustion the last error is reclassified
// into a terminal typed error by classifyTerminal.
func withRetry(ctx context.Context, policy RetryPolicy, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxRetries {
			break
		}
		select {
		case <-time.After(backoffDelay(attempt, policy.BaseDelay)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return classifyTerminal(lastErr)
}
