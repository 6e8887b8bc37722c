// Package cowrite provides the core data model for a real-time
// collaborative text-editing engine: operations, cursors, remote user
// presence, snapshots, and the domain events the engine emits.
//
// The core types are:
//
//   - [Operation] is the atomic edit unit (insert or delete) at a flat
//     byte offset, versioned against the document it targets.
//   - [OperationBatch] groups ordered operations sharing a base version.
//   - [Cursor], [Selection], and [RemoteUser] describe presence.
//   - [EditorSnapshot] captures content and version at a point in time.
//   - [Event] and [EventBus] carry state changes to external sinks.
//
// Positions and lengths are measured in UTF-8 code units (bytes) of the
// document content. Clients must index the same flat byte view; the
// engine performs no re-encoding.
//
// The transform math lives in [github.com/deepnoodle-ai/cowrite/ot],
// per-editor state in [github.com/deepnoodle-ai/cowrite/editor], the
// orchestrator in [github.com/deepnoodle-ai/cowrite/engine], and the
// connection fabric in [github.com/deepnoodle-ai/cowrite/fabric].
package cowrite

import "time"

// Clock returns the current time. Engine components accept a Clock so
// tests can pin timestamps.
type Clock func() time.Time

// Now is the default Clock.
func Now() time.Time {
	return time.Now()
}

// UnixMillis returns t as milliseconds since the Unix epoch, the unit
// used for all wire-visible timestamps.
func UnixMillis(t time.Time) int64 {
	return t.UnixMilli()
}
