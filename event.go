package cowrite

import (
	"context"
	"fmt"
	"time"
)

// EventType is the type of a domain event emitted by the engine.
type EventType string

const (
	EventOperationApplied       EventType = "operation.applied"
	EventOperationBatchReceived EventType = "operation.batch_received"
	EventOperationConflict      EventType = "operation.conflict"
	EventRemoteUserConnected    EventType = "remote_user.connected"
	EventRemoteUserDisconnected EventType = "remote_user.disconnected"
	EventCursorUpdated          EventType = "cursor.updated"
	EventSnapshotCreated        EventType = "snapshot.created"
	EventEditorRestored         EventType = "editor.restored"
	EventEditorReset            EventType = "editor.reset"
)

func (t EventType) String() string {
	return string(t)
}

// EventData is implemented by all typed event payloads. Payloads carry
// value data only, never references back into engine state.
type EventData interface {
	EventType() EventType
	Validate() error
}

// Event is the envelope delivered to an EventBus. Events are emitted
// synchronously, in the same order as the state changes that produced
// them.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	EditorID  string    `json:"editorId"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// Validate checks the envelope and its payload.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	if e.EditorID == "" {
		return fmt.Errorf("event %s: missing editor id", e.Type)
	}
	if e.Data == nil {
		return fmt.Errorf("event %s: missing data", e.Type)
	}
	if e.Data.EventType() != e.Type {
		return fmt.Errorf("event %s: data is for %s", e.Type, e.Data.EventType())
	}
	return e.Data.Validate()
}

// EventBus receives domain events. Implementations must tolerate
// synchronous publication from engine mutation paths; slow sinks should
// hand off internally.
type EventBus interface {
	Publish(ctx context.Context, event *Event) error
}

// NopBus discards all events. It is the default bus for engines
// constructed without one.
type NopBus struct{}

func (NopBus) Publish(ctx context.Context, event *Event) error { return nil }

// OperationAppliedData is the payload for [EventOperationApplied].
type OperationAppliedData struct {
	Operation *Operation `json:"operation"`
	Version   int        `json:"version"`
}

func (d *OperationAppliedData) EventType() EventType { return EventOperationApplied }
func (d *OperationAppliedData) Validate() error {
	if d.Operation == nil {
		return fmt.Errorf("operation is required")
	}
	return nil
}

// OperationBatchReceivedData is the payload for
// [EventOperationBatchReceived]. It is emitted once per batch, after
// every operation in the batch has applied.
type OperationBatchReceivedData struct {
	BatchID        string `json:"batchId"`
	ClientID       string `json:"clientId"`
	BaseVersion    int    `json:"baseVersion"`
	OperationCount int    `json:"operationCount"`
	Version        int    `json:"version"`
}

func (d *OperationBatchReceivedData) EventType() EventType { return EventOperationBatchReceived }
func (d *OperationBatchReceivedData) Validate() error {
	if d.OperationCount <= 0 {
		return fmt.Errorf("operation count must be positive")
	}
	return nil
}

// OperationConflictData is the payload for [EventOperationConflict],
// emitted when transformation changed any of position, length, or
// content.
type OperationConflictData struct {
	Original    *Operation `json:"original"`
	Transformed *Operation `json:"transformed"`
}

func (d *OperationConflictData) EventType() EventType { return EventOperationConflict }
func (d *OperationConflictData) Validate() error {
	if d.Original == nil || d.Transformed == nil {
		return fmt.Errorf("original and transformed operations are required")
	}
	return nil
}

// RemoteUserConnectedData is the payload for [EventRemoteUserConnected].
type RemoteUserConnectedData struct {
	User *RemoteUser `json:"user"`
}

func (d *RemoteUserConnectedData) EventType() EventType { return EventRemoteUserConnected }
func (d *RemoteUserConnectedData) Validate() error {
	if d.User == nil {
		return fmt.Errorf("user is required")
	}
	return nil
}

// RemoteUserDisconnectedData is the payload for
// [EventRemoteUserDisconnected].
type RemoteUserDisconnectedData struct {
	UserID string `json:"userId"`
}

func (d *RemoteUserDisconnectedData) EventType() EventType { return EventRemoteUserDisconnected }
func (d *RemoteUserDisconnectedData) Validate() error {
	if d.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// CursorUpdatedData is the payload for [EventCursorUpdated].
type CursorUpdatedData struct {
	UserID    string     `json:"userId"`
	Cursor    *Cursor    `json:"cursor,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
	Broadcast bool       `json:"broadcast"`
}

func (d *CursorUpdatedData) EventType() EventType { return EventCursorUpdated }
func (d *CursorUpdatedData) Validate() error {
	if d.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// SnapshotCreatedData is the payload for [EventSnapshotCreated].
type SnapshotCreatedData struct {
	Snapshot *EditorSnapshot `json:"snapshot"`
}

func (d *SnapshotCreatedData) EventType() EventType { return EventSnapshotCreated }
func (d *SnapshotCreatedData) Validate() error {
	if d.Snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	return nil
}

// EditorRestoredData is the payload for [EventEditorRestored], emitted
// when an editor is rewound to its stored snapshot.
type EditorRestoredData struct {
	Version       int `json:"version"`
	ContentLength int `json:"contentLength"`
}

func (d *EditorRestoredData) EventType() EventType { return EventEditorRestored }
func (d *EditorRestoredData) Validate() error      { return nil }

// EditorResetData is the payload for [EventEditorReset].
type EditorResetData struct{}

func (d *EditorResetData) EventType() EventType { return EventEditorReset }
func (d *EditorResetData) Validate() error      { return nil }
