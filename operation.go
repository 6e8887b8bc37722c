package cowrite

import (
	"fmt"
	"time"
)

// OperationType identifies the kind of edit an Operation performs.
type OperationType string

const (
	OperationInsert OperationType = "insert"
	OperationDelete OperationType = "delete"
)

func (t OperationType) String() string {
	return string(t)
}

// Valid reports whether t is a known operation type.
func (t OperationType) Valid() bool {
	return t == OperationInsert || t == OperationDelete
}

// Operation is the atomic edit unit exchanged between clients and the
// engine. Position is a byte offset into the UTF-8 content view.
// Content is set for inserts; Length is the deleted span for deletes
// and zero for inserts. Version is the document version the author
// observed when producing the operation (its base version). Timestamp
// is informational only and never used for ordering.
type Operation struct {
	ID        string        `json:"id"`
	Type      OperationType `json:"type"`
	Position  int           `json:"position"`
	Content   string        `json:"content,omitempty"`
	Length    int           `json:"length"`
	ClientID  string        `json:"clientId"`
	Timestamp time.Time     `json:"timestamp"`
	Version   int           `json:"version"`
}

// Validate checks the structural rules for an operation. It does not
// bounds-check against any document content; that happens at apply time.
func (op *Operation) Validate() error {
	if op == nil {
		return fmt.Errorf("%w: operation is nil", ErrInvalidOperation)
	}
	if !op.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}
	if op.Position < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalidOperation, op.Position)
	}
	if op.Length < 0 {
		return fmt.Errorf("%w: negative length %d", ErrInvalidOperation, op.Length)
	}
	if op.Version < 0 {
		return fmt.Errorf("%w: negative version %d", ErrInvalidOperation, op.Version)
	}
	if op.ClientID == "" {
		return fmt.Errorf("%w: missing client id", ErrInvalidOperation)
	}
	switch op.Type {
	case OperationInsert:
		if op.Content == "" {
			return fmt.Errorf("%w: insert requires content", ErrInvalidOperation)
		}
	case OperationDelete:
		if op.Length == 0 {
			return fmt.Errorf("%w: delete requires a positive length", ErrInvalidOperation)
		}
	}
	return nil
}

// End returns the exclusive end offset of the operation's span: the
// position itself for inserts, position+length for deletes.
func (op *Operation) End() int {
	if op.Type == OperationDelete {
		return op.Position + op.Length
	}
	return op.Position
}

// Clone returns a copy of the operation.
func (op *Operation) Clone() *Operation {
	if op == nil {
		return nil
	}
	dup := *op
	return &dup
}

// Equal reports whether two operations describe the same edit. ID and
// Timestamp are ignored; they identify the instance, not the edit.
func (op *Operation) Equal(other *Operation) bool {
	if op == nil || other == nil {
		return op == other
	}
	return op.Type == other.Type &&
		op.Position == other.Position &&
		op.Content == other.Content &&
		op.Length == other.Length &&
		op.ClientID == other.ClientID &&
		op.Version == other.Version
}

// Batch size bounds. A batch outside these bounds is rejected before
// any of its operations apply.
const (
	MinBatchSize = 1
	MaxBatchSize = 100
)

// OperationBatch is an ordered sequence of operations sharing a common
// base version, typically produced by one client's local edit burst.
type OperationBatch struct {
	ID          string       `json:"id"`
	ClientID    string       `json:"clientId"`
	BaseVersion int          `json:"baseVersion"`
	Operations  []*Operation `json:"operations"`
}

// Validate checks batch-level rules: size bounds, base version, and the
// structural validity of each contained operation.
func (b *OperationBatch) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: batch is nil", ErrBatchSize)
	}
	if len(b.Operations) < MinBatchSize || len(b.Operations) > MaxBatchSize {
		return fmt.Errorf("%w: got %d operations, want %d to %d",
			ErrBatchSize, len(b.Operations), MinBatchSize, MaxBatchSize)
	}
	if b.BaseVersion < 0 {
		return fmt.Errorf("%w: negative base version %d", ErrInvalidOperation, b.BaseVersion)
	}
	for i, op := range b.Operations {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}
