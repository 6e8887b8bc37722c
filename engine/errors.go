package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEditorNotInitialized is returned when an operation targets an
	// editor id that has not been initialized.
	ErrEditorNotInitialized = errors.New("editor not initialized")

	// ErrNoSnapshot is returned by RestoreSnapshot when the editor has
	// no stored snapshot.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrVersionConflict is returned when an operation's base version
	// does not match the editor's current version. The client must fetch
	// the operations it missed and transform against them.
	ErrVersionConflict = errors.New("operation version conflict")
)

// VersionConflictError carries the versions that disagreed.
type VersionConflictError struct {
	EditorID string
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on editor %s: editor is at %d, operation based on %d",
		e.EditorID, e.Expected, e.Actual)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}

// IsEditorNotInitializedError returns true if the error indicates an
// uninitialized editor.
func IsEditorNotInitializedError(err error) bool {
	return errors.Is(err, ErrEditorNotInitialized)
}

// IsVersionConflictError returns true if the error indicates a version
// mismatch.
func IsVersionConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
