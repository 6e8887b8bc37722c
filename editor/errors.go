package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrApplyForbidden indicates the editor's mode does not accept
	// operations (read-only or disconnected).
	ErrApplyForbidden = errors.New("editor mode forbids operations")

	// ErrPositionOutOfBounds indicates an operation or cursor offset
	// outside the current content.
	ErrPositionOutOfBounds = errors.New("position out of bounds")

	// ErrUserNotFound indicates a cursor update for a user the tracker
	// does not know.
	ErrUserNotFound = errors.New("remote user not found")
)

// ApplyError wraps a failed buffer mutation with the mode the editor
// was in at the time.
type ApplyError struct {
	Mode Mode
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("operation apply failed (mode %s): %v", e.Mode, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// PositionError carries the offending offsets of a bounds violation.
type PositionError struct {
	Position      int
	Length        int
	ContentLength int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("%v: position=%d length=%d content=%d",
		ErrPositionOutOfBounds, e.Position, e.Length, e.ContentLength)
}

func (e *PositionError) Unwrap() error {
	return ErrPositionOutOfBounds
}

// IsApplyForbiddenError returns true if the error indicates a mode
// gate rejection.
func IsApplyForbiddenError(err error) bool {
	return errors.Is(err, ErrApplyForbidden)
}

// IsPositionOutOfBoundsError returns true if the error indicates an
// out-of-bounds position.
func IsPositionOutOfBoundsError(err error) bool {
	return errors.Is(err, ErrPositionOutOfBounds)
}

// IsUserNotFoundError returns true if the error indicates an unknown
// remote user.
func IsUserNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
