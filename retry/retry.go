// Package retry runs an operation repeatedly until it succeeds, the
// attempts run out, or the context ends. Only errors marked
// recoverable trigger another attempt; anything else is returned
// immediately. The client uses this to reconnect after transient
// network failures without hammering the server.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
	DefaultMaxWait    = 30 * time.Second
)

// RecoverableError wraps an error that is worth retrying, such as a
// refused connection or a dropped dial.
type RecoverableError struct {
	err error
}

func (e *RecoverableError) Error() string {
	return e.err.Error()
}

func (e *RecoverableError) Unwrap() error {
	return e.err
}

// NewRecoverableError marks an error as retryable.
func NewRecoverableError(err error) *RecoverableError {
	return &RecoverableError{err: err}
}

// IsRecoverable indicates whether the error should trigger a retry.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*RecoverableError)
	return ok
}

type config struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
}

// Option configures retry behavior.
type Option func(*config)

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(maxRetries int) Option {
	return func(c *config) {
		c.maxRetries = maxRetries
	}
}

// WithBaseWait sets the wait before the second attempt. Subsequent
// waits double, plus jitter.
func WithBaseWait(baseWait time.Duration) Option {
	return func(c *config) {
		c.baseWait = baseWait
	}
}

// WithMaxWait caps the backoff between attempts.
func WithMaxWait(maxWait time.Duration) Option {
	return func(c *config) {
		c.maxWait = maxWait
	}
}

// Do executes f until it returns nil, returns a non-recoverable error,
// the attempts run out, or ctx ends. The last error seen is returned.
func Do(ctx context.Context, f func() error, opts ...Option) error {
	c := &config{
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
		maxWait:    DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}

	var lastError error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(c.baseWait) * math.Pow(2, float64(attempt-1)))
			if backoff > c.maxWait {
				backoff = c.maxWait
			}
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
		lastError = err
		if !IsRecoverable(err) {
			return err
		}
	}
	return lastError
}
