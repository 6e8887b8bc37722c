// Package ot implements operational transformation over flat-offset
// insert and delete operations.
//
// Transform rewrites an operation as if another concurrent operation
// had already been applied, so that two sites applying the same pair in
// opposite orders converge on identical content. All positions and
// lengths are UTF-8 code-unit (byte) offsets; the math never inspects
// the text itself.
//
// Concurrent inserts at the same position are ordered by client id: the
// lexicographically smaller client keeps its position and the other
// shifts right. Both sides of a connection must use the identical
// comparison.
package ot

import (
	"fmt"

	"github.com/deepnoodle-ai/cowrite"
)

// Transform returns the form op takes once against has been applied.
// The input operations are never mutated; the result is a copy. The two
// operations are assumed concurrent: produced against the same base
// version by different clients.
func Transform(op, against *cowrite.Operation) (*cowrite.Operation, error) {
	if op == nil || against == nil {
		return nil, NewTransformError(op, against, fmt.Errorf("%w: nil operation", ErrTransformAnomaly))
	}
	result := op.Clone()

	switch {
	case op.Type == cowrite.OperationInsert && against.Type == cowrite.OperationInsert:
		transformInsertInsert(result, against)
	case op.Type == cowrite.OperationInsert && against.Type == cowrite.OperationDelete:
		transformInsertDelete(result, against)
	case op.Type == cowrite.OperationDelete && against.Type == cowrite.OperationInsert:
		transformDeleteInsert(result, against)
	case op.Type == cowrite.OperationDelete && against.Type == cowrite.OperationDelete:
		transformDeleteDelete(result, against)
	default:
		return nil, NewTransformError(op, against,
			fmt.Errorf("%w: unsupported operation types %s/%s", ErrTransformAnomaly, op.Type, against.Type))
	}

	if result.Position < 0 || result.Length < 0 {
		return nil, NewTransformError(op, against,
			fmt.Errorf("%w: position=%d length=%d", ErrTransformAnomaly, result.Position, result.Length))
	}
	return result, nil
}

// TransformMany folds op through each operation in against, left to
// right. The slice order must match the order the operations were
// applied in.
func TransformMany(op *cowrite.Operation, against []*cowrite.Operation) (*cowrite.Operation, error) {
	result := op.Clone()
	for _, a := range against {
		transformed, err := Transform(result, a)
		if err != nil {
			return nil, err
		}
		result = transformed
	}
	return result, nil
}

// Changed reports whether transformation altered the edit: any
// difference in position, length, or content.
func Changed(original, transformed *cowrite.Operation) bool {
	if original == nil || transformed == nil {
		return original != transformed
	}
	return original.Position != transformed.Position ||
		original.Length != transformed.Length ||
		original.Content != transformed.Content
}

func transformInsertInsert(op, against *cowrite.Operation) {
	insLen := len(against.Content)
	switch {
	case op.Position < against.Position:
		// Unaffected
	case op.Position > against.Position:
		op.Position += insLen
	default:
		// Same position: the smaller client id keeps its spot
		if op.ClientID < against.ClientID {
			return
		}
		op.Position += insLen
	}
}

func transformInsertDelete(op, against *cowrite.Operation) {
	switch {
	case op.Position <= against.Position:
		// Unaffected
	case op.Position >= against.Position+against.Length:
		op.Position -= against.Length
	default:
		// Insert point was deleted; clamp to the deletion start
		op.Position = against.Position
	}
}

func transformDeleteInsert(op, against *cowrite.Operation) {
	opEnd := op.Position + op.Length
	insLen := len(against.Content)
	switch {
	case opEnd <= against.Position:
		// Unaffected
	case op.Position >= against.Position:
		op.Position += insLen
	default:
		// Insert landed inside the deleted span; widen the delete
		op.Length += insLen
	}
}

func transformDeleteDelete(op, against *cowrite.Operation) {
	opStart, opEnd := op.Position, op.Position+op.Length
	againstStart, againstEnd := against.Position, against.Position+against.Length

	switch {
	case opEnd <= againstStart:
		// Disjoint, op before: unaffected
	case opStart >= againstEnd:
		// Disjoint, op after
		op.Position -= against.Length
	case opStart <= againstStart && opEnd >= againstEnd:
		// op fully contains against
		op.Length -= against.Length
	case opStart >= againstStart && opEnd <= againstEnd:
		// op fully contained in against: nothing left to delete
		op.Position = againstStart
		op.Length = 0
	case opStart < againstStart:
		// Left overlap: op ends inside against
		op.Length -= opEnd - againstStart
	default:
		// Right overlap: op starts inside against
		op.Position = againstStart
		op.Length -= againstEnd - opStart
	}
}
