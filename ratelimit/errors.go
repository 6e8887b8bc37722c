package ratelimit

import (
	"errors"
	"fmt"
)

// ErrRateLimited indicates a user exceeded a rate limit window.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError carries the user and the window that was exceeded.
type RateLimitError struct {
	UserID string
	Window string
	Limit  int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for user %s: %d per %s", e.UserID, e.Limit, e.Window)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// IsRateLimitedError returns true if the error indicates an exceeded
// rate limit.
func IsRateLimitedError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
