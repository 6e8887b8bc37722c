package fabric

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMessage indicates an inbound frame that failed schema
	// validation. The frame is dropped; the session is retained.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrSessionNotFound indicates a frame referencing a session id the
	// registry does not know.
	ErrSessionNotFound = errors.New("session not found")

	// ErrOperationDenied indicates an operation on a document the
	// session has not subscribed to.
	ErrOperationDenied = errors.New("operation denied")

	// ErrTransportClosed indicates a send attempted on a transport that
	// is no longer open.
	ErrTransportClosed = errors.New("transport closed")
)

// MessageError wraps a frame validation failure with the offending
// field.
type MessageError struct {
	Field string
	Err   error
}

func (e *MessageError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid message field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid message: %v", e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// IsInvalidMessageError returns true if the error indicates a frame
// that failed validation.
func IsInvalidMessageError(err error) bool {
	return errors.Is(err, ErrInvalidMessage)
}

// IsSessionNotFoundError returns true if the error indicates an unknown
// session.
func IsSessionNotFoundError(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsOperationDeniedError returns true if the error indicates an
// operation on a non-subscribed document.
func IsOperationDeniedError(err error) bool {
	return errors.Is(err, ErrOperationDenied)
}
