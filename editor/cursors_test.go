package editor

import (
	"testing"
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/wonton/assert"
)

func remoteUser(id string, active bool) *cowrite.RemoteUser {
	return &cowrite.RemoteUser{
		ID:       id,
		Name:     "User " + id,
		Color:    "#aabbcc",
		IsActive: active,
	}
}

func TestCursorTrackerUpsert(t *testing.T) {
	ct := NewCursorTracker()

	assert.NoError(t, ct.Upsert(remoteUser("u1", true)))
	assert.Equal(t, 1, ct.Len())

	got, ok := ct.Get("u1")
	assert.True(t, ok)
	assert.Equal(t, "User u1", got.Name)
	assert.False(t, got.LastSeen.IsZero(), "LastSeen is stamped on insert")

	// Overwrite is allowed
	updated := remoteUser("u1", true)
	updated.Name = "Renamed"
	assert.NoError(t, ct.Upsert(updated))
	got, _ = ct.Get("u1")
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, ct.Len())
}

func TestCursorTrackerUpsertValidates(t *testing.T) {
	ct := NewCursorTracker()

	err := ct.Upsert(&cowrite.RemoteUser{ID: "u1", Color: "not-a-color"})
	assert.Error(t, err)
	assert.Equal(t, 0, ct.Len())

	err = ct.Upsert(&cowrite.RemoteUser{})
	assert.Error(t, err)
}

func TestCursorTrackerUpdateCursor(t *testing.T) {
	ct := NewCursorTracker()
	assert.NoError(t, ct.Upsert(remoteUser("u1", true)))

	before, _ := ct.Get("u1")
	time.Sleep(2 * time.Millisecond)

	cursor := &cowrite.Cursor{Line: 0, Column: 4}
	selection := &cowrite.Selection{Start: 2, End: 4}
	assert.NoError(t, ct.UpdateCursor("u1", cursor, selection))

	got, _ := ct.Get("u1")
	assert.Equal(t, 4, got.Cursor.Column)
	assert.Equal(t, 2, got.Selection.Start)
	assert.True(t, got.LastSeen.After(before.LastSeen), "LastSeen advances")

	t.Run("unknown user", func(t *testing.T) {
		err := ct.UpdateCursor("ghost", cursor, nil)
		assert.Error(t, err)
		assert.True(t, IsUserNotFoundError(err))
	})

	t.Run("invalid cursor", func(t *testing.T) {
		err := ct.UpdateCursor("u1", &cowrite.Cursor{Line: -1, Column: 0}, nil)
		assert.Error(t, err)
	})
}

func TestCursorTrackerRemove(t *testing.T) {
	ct := NewCursorTracker()
	assert.NoError(t, ct.Upsert(remoteUser("u1", true)))

	assert.True(t, ct.Remove("u1"))
	assert.False(t, ct.Remove("u1"))
	assert.Equal(t, 0, ct.Len())
}

func TestCursorTrackerActive(t *testing.T) {
	ct := NewCursorTracker()
	assert.NoError(t, ct.Upsert(remoteUser("u1", true)))
	assert.NoError(t, ct.Upsert(remoteUser("u2", false)))
	assert.NoError(t, ct.Upsert(remoteUser("u3", true)))

	active := ct.Active()
	assert.Len(t, active, 2)
	assert.Equal(t, "u1", active[0].ID)
	assert.Equal(t, "u3", active[1].ID)

	all := ct.All()
	assert.Len(t, all, 3)
}

func TestCursorTrackerIsolation(t *testing.T) {
	ct := NewCursorTracker()
	user := remoteUser("u1", true)
	user.Cursor = &cowrite.Cursor{Line: 0, Column: 1}
	assert.NoError(t, ct.Upsert(user))

	// Mutating the input or an output copy never touches the store
	user.Cursor.Column = 99
	got, _ := ct.Get("u1")
	assert.Equal(t, 1, got.Cursor.Column)

	got.Cursor.Column = 50
	again, _ := ct.Get("u1")
	assert.Equal(t, 1, again.Cursor.Column)
}

// ---------------------------------------------------------------------
// Cursor and selection transforms
// ---------------------------------------------------------------------

func TestTransformCursor(t *testing.T) {
	insert := &cowrite.Operation{Type: cowrite.OperationInsert, Position: 3, Content: "abc", ClientID: "c1"}
	del := &cowrite.Operation{Type: cowrite.OperationDelete, Position: 2, Length: 4, ClientID: "c1"}

	t.Run("insert before cursor shifts right", func(t *testing.T) {
		out := TransformCursor(&cowrite.Cursor{Line: 0, Column: 5}, insert)
		assert.Equal(t, 8, out.Column)
	})

	t.Run("insert at cursor pushes it right", func(t *testing.T) {
		out := TransformCursor(&cowrite.Cursor{Line: 0, Column: 3}, insert)
		assert.Equal(t, 6, out.Column)
	})

	t.Run("insert after cursor leaves it", func(t *testing.T) {
		out := TransformCursor(&cowrite.Cursor{Line: 0, Column: 2}, insert)
		assert.Equal(t, 2, out.Column)
	})

	t.Run("delete before cursor shifts left", func(t *testing.T) {
		out := TransformCursor(&cowrite.Cursor{Line: 0, Column: 8}, del)
		assert.Equal(t, 4, out.Column)
	})

	t.Run("cursor inside deleted span clamps", func(t *testing.T) {
		out := TransformCursor(&cowrite.Cursor{Line: 0, Column: 4}, del)
		assert.Equal(t, 2, out.Column)
	})

	t.Run("line is preserved untouched", func(t *testing.T) {
		out := TransformCursor(&cowrite.Cursor{Line: 7, Column: 5}, insert)
		assert.Equal(t, 7, out.Line)
		assert.Equal(t, 8, out.Column)
	})

	t.Run("nil cursor passes through", func(t *testing.T) {
		assert.Nil(t, TransformCursor(nil, insert))
	})
}

func TestTransformSelection(t *testing.T) {
	del := &cowrite.Operation{Type: cowrite.OperationDelete, Position: 2, Length: 4, ClientID: "c1"}

	t.Run("both endpoints move", func(t *testing.T) {
		out := TransformSelection(&cowrite.Selection{Start: 7, End: 9}, del)
		assert.Equal(t, 3, out.Start)
		assert.Equal(t, 5, out.End)
	})

	t.Run("selection swallowed by delete collapses", func(t *testing.T) {
		out := TransformSelection(&cowrite.Selection{Start: 3, End: 5}, del)
		assert.Equal(t, 2, out.Start)
		assert.Equal(t, 2, out.End)
	})

	t.Run("ordering is preserved", func(t *testing.T) {
		out := TransformSelection(&cowrite.Selection{Start: 1, End: 4}, del)
		assert.True(t, out.End >= out.Start)
	})
}
