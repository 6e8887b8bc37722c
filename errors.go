package cowrite

import "errors"

// Validation errors for the core data model. Components wrap these with
// context; callers test with errors.Is or the helpers below.
var (
	// ErrInvalidOperation indicates an operation that fails structural
	// validation (unknown type, negative offsets, missing fields).
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidCursor indicates a cursor or selection with negative or
	// inverted coordinates.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidRemoteUser indicates a remote user record that fails
	// validation.
	ErrInvalidRemoteUser = errors.New("invalid remote user")

	// ErrBatchSize indicates an operation batch outside the permitted
	// size bounds. It is raised before any operation in the batch has
	// been applied.
	ErrBatchSize = errors.New("operation batch size out of bounds")
)

// IsInvalidOperationError returns true if the error indicates a
// structurally invalid operation.
func IsInvalidOperationError(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsBatchSizeError returns true if the error indicates a batch outside
// the permitted size bounds.
func IsBatchSizeError(err error) bool {
	return errors.Is(err, ErrBatchSize)
}
