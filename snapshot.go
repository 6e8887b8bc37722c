package cowrite

import "time"

// EditorSnapshot is a point-in-time capture of one editor's content and
// version. Snapshots are held in memory only; a storage collaborator
// may persist them by subscribing to [EventSnapshotCreated] events.
type EditorSnapshot struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"clientId"`
}

// Clone returns a copy of the snapshot.
func (s *EditorSnapshot) Clone() *EditorSnapshot {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}
