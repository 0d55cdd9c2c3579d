package catalog

import (
	"errors"
	"fmt"
	"net"
)

// ---------------------------------------------------------------------------
// Error Taxonomy
// ---------------------------------------------------------------------------

var (
	// Retryable-transient: the call may succeed if repeated.

	// ErrThrottled indicates the vendor rejected the call due to rate limiting
	// (HTTP 429 or a vendor-specific "throttled" error code).
	ErrThrottled = errors.New("catalog: vendor rate limited")
	// ErrUnavailable indicates a transient vendor-side failure (5xx).
	ErrUnavailable = errors.New("catalog: vendor temporarily unavailable")
	// ErrTimeout indicates a network timeout talking to the vendor.
	ErrTimeout = errors.New("catalog: vendor request timed out")

	// Terminal per entity: recorded as a failure, never retried.

	// ErrInvalid indicates a validation error or malformed request payload.
	ErrInvalid = errors.New("catalog: invalid request")
	// ErrNotFound indicates the referenced remote entity does not exist.
	ErrNotFound = errors.New("catalog: entity not found")

	// Terminal for the whole run.

	// ErrAuthFailed indicates vendor authentication failed. No call to that
	// vendor can succeed until credentials are fixed, so the run aborts.
	ErrAuthFailed = errors.New("catalog: vendor authentication failed")
	// ErrUnreachable indicates the vendor could not be reached at all.
	ErrUnreachable = errors.New("catalog: vendor unreachable")

	// Degraded input: downgrades one sub-operation to "skipped".

	// ErrAuxiliaryUnavailable indicates an auxiliary data source needed only
	// by one sub-operation (e.g. the ordered-image feed) is unavailable.
	ErrAuxiliaryUnavailable = errors.New("catalog: auxiliary source unavailable")

	// Protocol defects.

	// ErrCursorStalled indicates a vendor returned the same pagination cursor
	// twice in a row; continuing would loop forever.
	ErrCursorStalled = errors.New("catalog: pagination cursor did not advance")
)

// RetryExhaustedError wraps the last transient cause after the retry budget
// for a call has been spent. It is terminal: callers must not retry it again
// even though the wrapped cause is itself retryable.
type RetryExhaustedError struct {
	// Op names the remote call that kept failing.
	Op string
	// Attempts is the number of attempts made.
	Attempts int
	// Err is the last transient cause.
	Err error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("catalog: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the last transient cause.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a call that returned err may be retried.
// Rate-limited, transient-server and timeout errors are retryable; anything
// else, including a RetryExhaustedError wrapping a retryable cause, is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		return false
	}
	if errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsRunFatal reports whether err must abort the whole run rather than fail a
// single entity. Authentication failures and total vendor unreachability are
// the only run-fatal conditions.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrUnreachable)
}

// IsDegraded reports whether err marks an unavailable auxiliary source, which
// downgrades the depending sub-operation to "skipped" instead of failing the
// record.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrAuxiliaryUnavailable)
}
