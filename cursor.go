package cowrite

import (
	"fmt"
	"regexp"
	"time"
)

// Cursor is a presentational caret position. The engine transforms only
// Column using flat-offset arithmetic; Line is carried through
// untouched. See the package documentation for the position model.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Validate checks that both coordinates are non-negative.
func (c *Cursor) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: cursor is nil", ErrInvalidCursor)
	}
	if c.Line < 0 || c.Column < 0 {
		return fmt.Errorf("%w: line=%d column=%d", ErrInvalidCursor, c.Line, c.Column)
	}
	return nil
}

// Clone returns a copy of the cursor.
func (c *Cursor) Clone() *Cursor {
	if c == nil {
		return nil
	}
	dup := *c
	return &dup
}

// Selection is a half-open [Start, End) range in flat offsets.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate checks that the range is non-negative and ordered.
func (s *Selection) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: selection is nil", ErrInvalidCursor)
	}
	if s.Start < 0 || s.End < s.Start {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidCursor, s.Start, s.End)
	}
	return nil
}

// Clone returns a copy of the selection.
func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// RemoteUser is the presence record for one collaborator on one editor.
type RemoteUser struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Cursor    *Cursor    `json:"cursor,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
	IsActive  bool       `json:"isActive"`
	LastSeen  time.Time  `json:"lastSeen"`
}

// Validate checks identity and the #RRGGBB color form.
func (u *RemoteUser) Validate() error {
	if u == nil {
		return fmt.Errorf("%w: remote user is nil", ErrInvalidRemoteUser)
	}
	if u.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRemoteUser)
	}
	if u.Color != "" && !colorPattern.MatchString(u.Color) {
		return fmt.Errorf("%w: color %q is not #RRGGBB", ErrInvalidRemoteUser, u.Color)
	}
	if u.Cursor != nil {
		if err := u.Cursor.Validate(); err != nil {
			return err
		}
	}
	if u.Selection != nil {
		if err := u.Selection.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the remote user.
func (u *RemoteUser) Clone() *RemoteUser {
	if u == nil {
		return nil
	}
	dup := *u
	dup.Cursor = u.Cursor.Clone()
	dup.Selection = u.Selection.Clone()
	return &dup
}
