package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"throttled", ErrThrottled, true},
		{"unavailable", ErrUnavailable, true},
		{"timeout", ErrTimeout, true},
		{"wrapped throttled", fmt.Errorf("list products: %w", ErrThrottled), true},
		{"invalid", ErrInvalid, false},
		{"not found", ErrNotFound, false},
		{"auth failed", ErrAuthFailed, false},
		{"unreachable", ErrUnreachable, false},
		{"auxiliary unavailable", ErrAuxiliaryUnavailable, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, IsRetryable(tc.err))
		})
	}

	t.Run("exhausted retries are terminal even with retryable cause", func(t *testing.T) {
		err := &RetryExhaustedError{Op: "list_products", Attempts: 6, Err: ErrThrottled}
		assert.False(t, IsRetryable(err))
		assert.False(t, IsRetryable(fmt.Errorf("outer: %w", err)))
	})
}

func TestIsRunFatal(t *testing.T) {
	assert.True(t, IsRunFatal(ErrAuthFailed))
	assert.True(t, IsRunFatal(ErrUnreachable))
	assert.True(t, IsRunFatal(fmt.Errorf("connect: %w", ErrUnreachable)))
	assert.False(t, IsRunFatal(ErrThrottled))
	assert.False(t, IsRunFatal(ErrNotFound))
	assert.False(t, IsRunFatal(nil))
}

func TestIsDegraded(t *testing.T) {
	assert.True(t, IsDegraded(ErrAuxiliaryUnavailable))
	assert.True(t, IsDegraded(fmt.Errorf("image feed: %w", ErrAuxiliaryUnavailable)))
	assert.False(t, IsDegraded(ErrUnavailable))
	assert.False(t, IsDegraded(nil))
}

func TestRetryExhaustedError(t *testing.T) {
	cause := ErrTimeout
	err := &RetryExhaustedError{Op: "storefront.create_media", Attempts: 4, Err: cause}

	assert.Contains(t, err.Error(), "storefront.create_media")
	assert.Contains(t, err.Error(), "4 attempts")
	assert.ErrorIs(t, err, ErrTimeout)

	var exhausted *RetryExhaustedError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
}
