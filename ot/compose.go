package ot

import (
	"fmt"

	"github.com/deepnoodle-ai/cowrite"
)

// Compose merges two adjacent operations from the same client into one,
// such as two characters typed in sequence. It returns ErrNotComposable
// (wrapped) when the operations do not chain; callers then keep both.
//
// Composition is a local optimization only. It never crosses clients
// and is not required for convergence.
func Compose(a, b *cowrite.Operation) (*cowrite.Operation, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil operation", ErrNotComposable)
	}
	if a.ClientID != b.ClientID {
		return nil, fmt.Errorf("%w: different clients %s and %s", ErrNotComposable, a.ClientID, b.ClientID)
	}
	if a.Type != b.Type {
		return nil, fmt.Errorf("%w: mixed types %s and %s", ErrNotComposable, a.Type, b.Type)
	}

	switch a.Type {
	case cowrite.OperationInsert:
		// b must continue where a's text ended
		if b.Position != a.Position+len(a.Content) {
			return nil, fmt.Errorf("%w: inserts are not adjacent", ErrNotComposable)
		}
		merged := a.Clone()
		merged.Content = a.Content + b.Content
		merged.Timestamp = b.Timestamp
		return merged, nil

	case cowrite.OperationDelete:
		merged := a.Clone()
		switch {
		case b.Position == a.Position:
			// Forward delete: the span keeps collapsing onto a's position
			merged.Length = a.Length + b.Length
		case b.Position+b.Length == a.Position:
			// Backspace: b removes the text immediately before a
			merged.Position = b.Position
			merged.Length = a.Length + b.Length
		default:
			return nil, fmt.Errorf("%w: deletes are not adjacent", ErrNotComposable)
		}
		merged.Timestamp = b.Timestamp
		return merged, nil

	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrNotComposable, a.Type)
	}
}
