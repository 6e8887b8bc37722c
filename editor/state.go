// Package editor holds the per-editor state objects: the content
// buffer with its mode gate and undo stacks, the append-only operation
// history, and the remote cursor tracker. One instance of each exists
// per editor id, owned and serialized by the engine.
package editor

import (
	"fmt"
	"sync"

	"github.com/deepnoodle-ai/cowrite"
)

// Mode gates whether an editor accepts operations.
type Mode string

const (
	ModeActive       Mode = "active"
	ModeReadOnly     Mode = "read_only"
	ModeDisconnected Mode = "disconnected"
)

func (m Mode) String() string {
	return string(m)
}

// State is one editor's content buffer. All offsets are byte positions
// into the UTF-8 content. State is safe for concurrent use.
type State struct {
	mu      sync.RWMutex
	content string
	version int
	mode    Mode
	undo    []*cowrite.Operation
	redo    []*cowrite.Operation
}

// NewState returns an active editor holding the given initial content
// at version 0.
func NewState(content string) *State {
	return &State{
		content: content,
		mode:    ModeActive,
	}
}

// Apply splices the operation into the content. The mode gate runs
// first, then bounds checks, then the mutation. The applied operation's
// inverse is pushed on the undo stack and the redo stack is cleared.
// Version advances to max(version, op.Version+1).
func (s *State) Apply(op *cowrite.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeDisconnected:
		return &ApplyError{Mode: s.mode, Err: fmt.Errorf("%w: editor is disconnected", ErrApplyForbidden)}
	case ModeReadOnly:
		return &ApplyError{Mode: s.mode, Err: fmt.Errorf("%w: editor is read-only", ErrApplyForbidden)}
	}

	switch op.Type {
	case cowrite.OperationInsert:
		if op.Position < 0 || op.Position > len(s.content) {
			return &PositionError{Position: op.Position, ContentLength: len(s.content)}
		}
		inverse := &cowrite.Operation{
			ID:       op.ID,
			Type:     cowrite.OperationDelete,
			Position: op.Position,
			Length:   len(op.Content),
			ClientID: op.ClientID,
		}
		s.content = s.content[:op.Position] + op.Content + s.content[op.Position:]
		s.pushUndo(inverse)

	case cowrite.OperationDelete:
		if op.Position < 0 || op.Position+op.Length > len(s.content) {
			return &PositionError{Position: op.Position, Length: op.Length, ContentLength: len(s.content)}
		}
		removed := s.content[op.Position : op.Position+op.Length]
		inverse := &cowrite.Operation{
			ID:       op.ID,
			Type:     cowrite.OperationInsert,
			Position: op.Position,
			Content:  removed,
			ClientID: op.ClientID,
		}
		s.content = s.content[:op.Position] + s.content[op.Position+op.Length:]
		s.pushUndo(inverse)

	default:
		return &ApplyError{Mode: s.mode, Err: fmt.Errorf("unsupported operation type %q", op.Type)}
	}

	if op.Version+1 > s.version {
		s.version = op.Version + 1
	}
	return nil
}

func (s *State) pushUndo(inverse *cowrite.Operation) {
	s.undo = append(s.undo, inverse)
	s.redo = nil
}

// Undo reverts the most recent applied operation by splicing its
// recorded inverse. It is a local convenience: the version counter and
// any History are untouched. An inverse invalidated by later edits is
// discarded. Returns true when a revert happened.
func (s *State) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.undo) > 0 {
		inverse := s.undo[len(s.undo)-1]
		s.undo = s.undo[:len(s.undo)-1]
		redoEntry, ok := s.splice(inverse)
		if !ok {
			continue
		}
		s.redo = append(s.redo, redoEntry)
		return true
	}
	return false
}

// Redo re-applies the most recently undone operation. Returns true
// when a re-apply happened.
func (s *State) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.redo) > 0 {
		entry := s.redo[len(s.redo)-1]
		s.redo = s.redo[:len(s.redo)-1]
		undoEntry, ok := s.splice(entry)
		if !ok {
			continue
		}
		s.undo = append(s.undo, undoEntry)
		return true
	}
	return false
}

// splice applies op to the content without touching version or stacks,
// returning the inverse. Out-of-bounds operations report ok=false.
func (s *State) splice(op *cowrite.Operation) (inverse *cowrite.Operation, ok bool) {
	switch op.Type {
	case cowrite.OperationInsert:
		if op.Position < 0 || op.Position > len(s.content) {
			return nil, false
		}
		inverse = &cowrite.Operation{
			ID:       op.ID,
			Type:     cowrite.OperationDelete,
			Position: op.Position,
			Length:   len(op.Content),
			ClientID: op.ClientID,
		}
		s.content = s.content[:op.Position] + op.Content + s.content[op.Position:]
		return inverse, true
	case cowrite.OperationDelete:
		if op.Position < 0 || op.Position+op.Length > len(s.content) {
			return nil, false
		}
		removed := s.content[op.Position : op.Position+op.Length]
		inverse = &cowrite.Operation{
			ID:       op.ID,
			Type:     cowrite.OperationInsert,
			Position: op.Position,
			Content:  removed,
			ClientID: op.ClientID,
		}
		s.content = s.content[:op.Position] + s.content[op.Position+op.Length:]
		return inverse, true
	}
	return nil, false
}

// Content returns the current content.
func (s *State) Content() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// Len returns the content length in bytes.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}

// Version returns the current version counter.
func (s *State) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Mode returns the current mode.
func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the mode. Transitions are unrestricted.
func (s *State) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// SetContent replaces the content wholesale, wiping the version counter
// and both stacks. Used for server-authoritative resets; operation-based
// edits should go through Apply.
func (s *State) SetContent(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.version = 0
	s.undo = nil
	s.redo = nil
}

// Restore replaces content and version together, wiping both stacks.
func (s *State) Restore(content string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.version = version
	s.undo = nil
	s.redo = nil
}

// Reset returns the editor to its initial state: active mode, empty
// content, version 0, empty stacks.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = ""
	s.version = 0
	s.mode = ModeActive
	s.undo = nil
	s.redo = nil
}
