package editor

import (
	"sort"
	"sync"
	"time"

	"github.com/deepnoodle-ai/cowrite"
)

// CursorTracker is one editor's registry of remote user presence.
// Stored records are cloned on the way in and out. Safe for concurrent
// use.
type CursorTracker struct {
	mu    sync.RWMutex
	users map[string]*cowrite.RemoteUser
}

// NewCursorTracker returns an empty tracker.
func NewCursorTracker() *CursorTracker {
	return &CursorTracker{
		users: make(map[string]*cowrite.RemoteUser),
	}
}

// Upsert adds or overwrites a remote user after validation. LastSeen is
// stamped when the caller left it zero.
func (ct *CursorTracker) Upsert(user *cowrite.RemoteUser) error {
	if err := user.Validate(); err != nil {
		return err
	}
	record := user.Clone()
	if record.LastSeen.IsZero() {
		record.LastSeen = time.Now()
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.users[record.ID] = record
	return nil
}

// UpdateCursor replaces a user's cursor and selection after validation
// and refreshes LastSeen. The user must already be tracked.
func (ct *CursorTracker) UpdateCursor(userID string, cursor *cowrite.Cursor, selection *cowrite.Selection) error {
	if cursor != nil {
		if err := cursor.Validate(); err != nil {
			return err
		}
	}
	if selection != nil {
		if err := selection.Validate(); err != nil {
			return err
		}
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	user, ok := ct.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Cursor = cursor.Clone()
	user.Selection = selection.Clone()
	user.LastSeen = time.Now()
	return nil
}

// Remove deletes a user from the tracker, reporting whether it was
// present.
func (ct *CursorTracker) Remove(userID string) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	_, ok := ct.users[userID]
	delete(ct.users, userID)
	return ok
}

// Get returns a copy of the tracked user.
func (ct *CursorTracker) Get(userID string) (*cowrite.RemoteUser, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	user, ok := ct.users[userID]
	if !ok {
		return nil, false
	}
	return user.Clone(), true
}

// All returns copies of every tracked user, ordered by id.
func (ct *CursorTracker) All() []*cowrite.RemoteUser {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make([]*cowrite.RemoteUser, 0, len(ct.users))
	for _, user := range ct.users {
		out = append(out, user.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns copies of tracked users with IsActive set, ordered by
// id.
func (ct *CursorTracker) Active() []*cowrite.RemoteUser {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make([]*cowrite.RemoteUser, 0, len(ct.users))
	for _, user := range ct.users {
		if user.IsActive {
			out = append(out, user.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of tracked users.
func (ct *CursorTracker) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.users)
}

// Clear removes every tracked user.
func (ct *CursorTracker) Clear() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.users = make(map[string]*cowrite.RemoteUser)
}

// TransformCursor adjusts a cursor for an applied operation using the
// flat-offset arithmetic of the transform rules. Only the column moves;
// the document is treated as a single line. Line values other than zero
// pass through untouched, which makes multi-line cursors approximate.
func TransformCursor(cursor *cowrite.Cursor, op *cowrite.Operation) *cowrite.Cursor {
	if cursor == nil || op == nil {
		return cursor.Clone()
	}
	out := cursor.Clone()
	out.Column = transformOffset(out.Column, op)
	return out
}

// TransformSelection adjusts both endpoints of a selection for an
// applied operation.
func TransformSelection(sel *cowrite.Selection, op *cowrite.Operation) *cowrite.Selection {
	if sel == nil || op == nil {
		return sel.Clone()
	}
	out := sel.Clone()
	out.Start = transformOffset(out.Start, op)
	out.End = transformOffset(out.End, op)
	if out.End < out.Start {
		out.End = out.Start
	}
	return out
}

// transformOffset moves a single flat offset past an applied operation.
// A concurrent insert at the offset itself pushes it right.
func transformOffset(offset int, op *cowrite.Operation) int {
	switch op.Type {
	case cowrite.OperationInsert:
		if offset < op.Position {
			return offset
		}
		return offset + len(op.Content)
	case cowrite.OperationDelete:
		switch {
		case offset <= op.Position:
			return offset
		case offset >= op.Position+op.Length:
			return offset - op.Length
		default:
			return op.Position
		}
	}
	return offset
}
