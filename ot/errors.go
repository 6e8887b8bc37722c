package ot

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/cowrite"
)

var (
	// ErrTransformAnomaly indicates a transform that produced an
	// arithmetically invalid operation (negative position or length).
	ErrTransformAnomaly = errors.New("operation transform produced an invalid result")

	// ErrNotComposable indicates two operations that cannot be merged
	// into one. Callers keep both operations when composition fails.
	ErrNotComposable = errors.New("operations cannot be composed")
)

// TransformError wraps a transform failure with the operations that
// produced it.
type TransformError struct {
	Op      *cowrite.Operation
	Against *cowrite.Operation
	Err     error
}

func (e *TransformError) Error() string {
	opID, againstID := "<nil>", "<nil>"
	if e.Op != nil {
		opID = e.Op.ID
	}
	if e.Against != nil {
		againstID = e.Against.ID
	}
	return fmt.Sprintf("transform of %s against %s failed: %v", opID, againstID, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// NewTransformError creates a TransformError.
func NewTransformError(op, against *cowrite.Operation, err error) *TransformError {
	return &TransformError{Op: op, Against: against, Err: err}
}

// IsTransformAnomalyError returns true if the error indicates an
// invalid transform result.
func IsTransformAnomalyError(err error) bool {
	return errors.Is(err, ErrTransformAnomaly)
}

// IsNotComposableError returns true if the error indicates operations
// that cannot be merged.
func IsNotComposableError(err error) bool {
	return errors.Is(err, ErrNotComposable)
}
