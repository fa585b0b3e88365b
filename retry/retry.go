// Package retry provides exponential backoff with jitter for transient
// failures of remote generation calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
)

// RecoverableError marks an error as worth retrying.
type RecoverableError struct {
	err error
}

func NewRecoverableError(err error) *RecoverableError {
	return &RecoverableError{err: err}
}

func (e *RecoverableError) Error() string { return e.err.Error() }

func (e *RecoverableError) Unwrap() error { return e.err }

// IsRecoverable reports whether the error is marked recoverable.
func IsRecoverable(err error) bool {
	var recoverable *RecoverableError
	return errors.As(err, &recoverable)
}

// ShouldRetryStatus reports whether an HTTP status code indicates a
// transient condition (429, 503, 504).
func ShouldRetryStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

type config struct {
	maxRetries int
	baseWait   time.Duration
}

// Option configures a Do call.
type Option func(*config)

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithBaseWait sets the wait before the second attempt; later waits grow
// exponentially.
func WithBaseWait(d time.Duration) Option {
	return func(c *config) { c.baseWait = d }
}

// Do runs f until it succeeds, returns a non-recoverable error, or the
// attempt budget is exhausted. Waits between attempts use exponential
// backoff with up to 10% jitter and respect context cancellation.
func Do(ctx context.Context, f func() error, opts ...Option) error {
	c := &config{maxRetries: DefaultMaxRetries, baseWait: DefaultBaseWait}
	for _, opt := range opts {
		opt(c)
	}

	var lastError error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(c.baseWait) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}
		err := f()
		if err == nil {
			return nil
		}
		if !IsRecoverable(err) {
			return err
		}
		lastError = err
	}
	return lastError
}
