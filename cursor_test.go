package cowrite

import (
	"testing"
	"time"

	"github.com/deepnoodle-ai/wonton/assert"
)

func TestCursorValidate(t *testing.T) {
	assert.NoError(t, (&Cursor{Line: 0, Column: 0}).Validate())
	assert.NoError(t, (&Cursor{Line: 3, Column: 12}).Validate())
	assert.Error(t, (&Cursor{Line: -1, Column: 0}).Validate())
	assert.Error(t, (&Cursor{Line: 0, Column: -1}).Validate())

	var nilCursor *Cursor
	assert.Error(t, nilCursor.Validate())
	assert.Nil(t, nilCursor.Clone())
}

func TestSelectionValidate(t *testing.T) {
	assert.NoError(t, (&Selection{Start: 0, End: 0}).Validate())
	assert.NoError(t, (&Selection{Start: 2, End: 8}).Validate())
	assert.Error(t, (&Selection{Start: -1, End: 0}).Validate())
	assert.Error(t, (&Selection{Start: 5, End: 2}).Validate())
}

func TestRemoteUserValidate(t *testing.T) {
	user := &RemoteUser{
		ID:       "u1",
		Name:     "Ada",
		Color:    "#3366FF",
		Cursor:   &Cursor{Line: 1, Column: 4},
		IsActive: true,
		LastSeen: time.Now(),
	}
	assert.NoError(t, user.Validate())

	// Color is optional but must be #RRGGBB when present
	user.Color = ""
	assert.NoError(t, user.Validate())
	user.Color = "3366FF"
	assert.Error(t, user.Validate())
	user.Color = "#33F"
	assert.Error(t, user.Validate())
	user.Color = "#GGGGGG"
	assert.Error(t, user.Validate())

	user.Color = "#3366ff"
	user.ID = ""
	assert.Error(t, user.Validate())

	user.ID = "u1"
	user.Cursor = &Cursor{Line: -1}
	assert.Error(t, user.Validate())
}

func TestRemoteUserCloneIsDeep(t *testing.T) {
	user := &RemoteUser{
		ID:        "u1",
		Cursor:    &Cursor{Line: 1, Column: 2},
		Selection: &Selection{Start: 3, End: 7},
	}
	dup := user.Clone()
	dup.Cursor.Column = 99
	dup.Selection.End = 99
	assert.Equal(t, 2, user.Cursor.Column)
	assert.Equal(t, 7, user.Selection.End)
}
