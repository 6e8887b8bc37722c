package engine

import (
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/ids"
)

// CursorBroadcast is the payload handed to a cursor broadcast callback
// when a debounced timer fires.
type CursorBroadcast struct {
	ID        string             `json:"id"`
	EditorID  string             `json:"editorId"`
	UserID    string             `json:"userId"`
	Cursor    *cowrite.Cursor    `json:"cursor,omitempty"`
	Selection *cowrite.Selection `json:"selection,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// BroadcastFunc delivers a cursor broadcast to interested parties,
// typically by fanning it out over the session fabric. Errors are
// logged, never raised.
type BroadcastFunc func(broadcast *CursorBroadcast) error

// ScheduleCursorBroadcast arms a debounced broadcast of the user's
// cursor position. A pending timer for the same (editor, user) pair is
// replaced, so a burst of cursor moves produces a single callback one
// interval after the last move. The callback runs on the timer
// goroutine.
func (e *Engine) ScheduleCursorBroadcast(editorID, userID string, cursor *cowrite.Cursor, selection *cowrite.Selection, cb BroadcastFunc) {
	if cb == nil {
		return
	}
	key := timerKey{editorID: editorID, userID: userID}
	cursor = cursor.Clone()
	selection = selection.Clone()

	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if existing, ok := e.timers[key]; ok {
		existing.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(e.interval, func() {
		e.timersMu.Lock()
		// A later schedule or a clear may have replaced this timer
		// between Stop and firing; only the current owner broadcasts.
		if e.timers[key] != timer {
			e.timersMu.Unlock()
			return
		}
		delete(e.timers, key)
		e.timersMu.Unlock()

		broadcast := &CursorBroadcast{
			ID:        ids.NewBroadcastID(),
			EditorID:  editorID,
			UserID:    userID,
			Cursor:    cursor,
			Selection: selection,
			Timestamp: time.Now(),
		}
		if err := cb(broadcast); err != nil {
			e.logger.Warn("cursor broadcast callback failed",
				"editor_id", editorID,
				"user_id", userID,
				"error", err)
		}
	})
	e.timers[key] = timer
}

// ClearCursorBroadcast cancels the pending broadcast for the (editor,
// user) pair, if any.
func (e *Engine) ClearCursorBroadcast(editorID, userID string) {
	key := timerKey{editorID: editorID, userID: userID}
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if timer, ok := e.timers[key]; ok {
		timer.Stop()
		delete(e.timers, key)
	}
}

// PendingCursorBroadcasts returns the number of armed broadcast timers
// for the editor.
func (e *Engine) PendingCursorBroadcasts(editorID string) int {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	count := 0
	for key := range e.timers {
		if key.editorID == editorID {
			count++
		}
	}
	return count
}

// clearEditorTimers cancels every pending broadcast for the editor.
func (e *Engine) clearEditorTimers(editorID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	for key, timer := range e.timers {
		if key.editorID == editorID {
			timer.Stop()
			delete(e.timers, key)
		}
	}
}
