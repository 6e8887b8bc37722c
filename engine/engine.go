// Package engine orchestrates per-editor collaboration state: the
// content buffer, the operation history, the remote cursor tracker, an
// optional snapshot, and the debounced cursor-broadcast timers.
//
// The engine serializes writes per editor, so applied operations form a
// total order observable through the monotonically increasing version
// counter. Domain events are published synchronously on the mutating
// goroutine, in the same order as the state changes that produced them;
// event handlers must not call back into the engine for the same
// editor.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/editor"
	"github.com/deepnoodle-ai/cowrite/ids"
	"github.com/deepnoodle-ai/cowrite/ot"
	"github.com/deepnoodle-ai/cowrite/slogger"
)

// Cursor broadcast debounce interval bounds. The default applies when
// Options.CursorBroadcastInterval is zero; non-zero values outside the
// bounds are rejected by New.
const (
	DefaultCursorBroadcastInterval = 75 * time.Millisecond
	MinCursorBroadcastInterval     = 50 * time.Millisecond
	MaxCursorBroadcastInterval     = 100 * time.Millisecond
)

// Options are used to configure an Engine.
type Options struct {
	Logger                  slogger.Logger
	Bus                     cowrite.EventBus
	CursorBroadcastInterval time.Duration
}

// editorInstance bundles one editor's state objects. Its mutex
// serializes the check-then-mutate sequences (version check, apply,
// history append) that the individual objects cannot make atomic on
// their own.
type editorInstance struct {
	mu       sync.Mutex
	state    *editor.State
	history  *editor.History
	cursors  *editor.CursorTracker
	snapshot *cowrite.EditorSnapshot
}

type timerKey struct {
	editorID string
	userID   string
}

// Engine manages collaboration state for any number of editors, keyed
// by editor id. Safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	editors  map[string]*editorInstance
	timersMu sync.Mutex
	timers   map[timerKey]*time.Timer
	logger   slogger.Logger
	bus      cowrite.EventBus
	interval time.Duration
}

// New returns an Engine configured with the given options.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.Bus == nil {
		opts.Bus = cowrite.NopBus{}
	}
	if opts.CursorBroadcastInterval == 0 {
		opts.CursorBroadcastInterval = DefaultCursorBroadcastInterval
	}
	if opts.CursorBroadcastInterval < MinCursorBroadcastInterval ||
		opts.CursorBroadcastInterval > MaxCursorBroadcastInterval {
		return nil, fmt.Errorf("cursor broadcast interval %s outside [%s, %s]",
			opts.CursorBroadcastInterval, MinCursorBroadcastInterval, MaxCursorBroadcastInterval)
	}
	return &Engine{
		editors:  make(map[string]*editorInstance),
		timers:   make(map[timerKey]*time.Timer),
		logger:   slogger.WithComponent(opts.Logger, "engine"),
		bus:      opts.Bus,
		interval: opts.CursorBroadcastInterval,
	}, nil
}

// InitializeEditor creates the state bundle for editorID if it does not
// exist. Re-initialization is idempotent and never clobbers existing
// state, so the initial content of an already-known editor is ignored.
func (e *Engine) InitializeEditor(editorID, initialContent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.editors[editorID]; exists {
		return
	}
	e.editors[editorID] = &editorInstance{
		state:   editor.NewState(initialContent),
		history: editor.NewHistory(),
		cursors: editor.NewCursorTracker(),
	}
	e.logger.Debug("editor initialized",
		"editor_id", editorID,
		"content_length", len(initialContent))
}

// EditorExists reports whether editorID has been initialized.
func (e *Engine) EditorExists(editorID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.editors[editorID]
	return exists
}

func (e *Engine) editorFor(editorID string) (*editorInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, exists := e.editors[editorID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrEditorNotInitialized, editorID)
	}
	return inst, nil
}

// ApplyOperation validates and applies one operation to the editor,
// appends it to the history, and emits an operation.applied event.
// Returns the editor's version after the apply.
//
// The operation's base version must equal the editor's current version;
// a client that is behind must transform against the operations it
// missed (see TransformOperation) before retrying.
func (e *Engine) ApplyOperation(ctx context.Context, editorID string, op *cowrite.Operation) (int, error) {
	if err := op.Validate(); err != nil {
		return 0, err
	}
	inst, err := e.editorFor(editorID)
	if err != nil {
		return 0, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return e.applyLocked(ctx, editorID, inst, op)
}

// applyLocked applies one operation with inst.mu held.
func (e *Engine) applyLocked(ctx context.Context, editorID string, inst *editorInstance, op *cowrite.Operation) (int, error) {
	// The mode gate runs before the version check so a read-only editor
	// reports its mode, not a spurious conflict. State.Apply enforces
	// the same gate again on mutation.
	if mode := inst.state.Mode(); mode != editor.ModeActive {
		return 0, &editor.ApplyError{
			Mode: mode,
			Err:  fmt.Errorf("%w: editor %s is %s", editor.ErrApplyForbidden, editorID, mode),
		}
	}
	current := inst.history.Version()
	if op.Version != current {
		return 0, &VersionConflictError{
			EditorID: editorID,
			Expected: current,
			Actual:   op.Version,
		}
	}
	if err := inst.state.Apply(op); err != nil {
		return 0, err
	}
	inst.history.Append(op)
	version := inst.history.Version()

	e.emit(ctx, editorID, &cowrite.OperationAppliedData{
		Operation: op.Clone(),
		Version:   version,
	})
	return version, nil
}

// ApplyOperationBatch applies the batch's operations in order and emits
// a single operation.batch_received event once all of them succeeded.
//
// The batch is validated (size bounds, per-op structure) and its base
// version checked before anything applies. Application is not atomic:
// a mid-batch failure leaves the prior operations applied, and the
// batch event is not emitted. See also the per-operation
// operation.applied events, which fire as each operation lands.
func (e *Engine) ApplyOperationBatch(ctx context.Context, editorID string, batch *cowrite.OperationBatch) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	inst, err := e.editorFor(editorID)
	if err != nil {
		return 0, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()

	current := inst.history.Version()
	if batch.BaseVersion != current {
		return 0, &VersionConflictError{
			EditorID: editorID,
			Expected: current,
			Actual:   batch.BaseVersion,
		}
	}
	version := current
	for i, op := range batch.Operations {
		version, err = e.applyLocked(ctx, editorID, inst, op)
		if err != nil {
			return version, fmt.Errorf("batch %s operation %d: %w", batch.ID, i, err)
		}
	}
	e.emit(ctx, editorID, &cowrite.OperationBatchReceivedData{
		BatchID:        batch.ID,
		ClientID:       batch.ClientID,
		BaseVersion:    batch.BaseVersion,
		OperationCount: len(batch.Operations),
		Version:        version,
	})
	return version, nil
}

// TransformOperation folds op through the against operations in order,
// skipping any authored by op's own client. When the result differs
// from the input in position, length, or content, an
// operation.conflict event is emitted.
func (e *Engine) TransformOperation(ctx context.Context, editorID string, op *cowrite.Operation, against []*cowrite.Operation) (*cowrite.Operation, error) {
	result := op.Clone()
	for _, other := range against {
		if other.ClientID == op.ClientID {
			continue
		}
		transformed, err := ot.Transform(result, other)
		if err != nil {
			return nil, err
		}
		result = transformed
	}
	if ot.Changed(op, result) {
		e.emit(ctx, editorID, &cowrite.OperationConflictData{
			Original:    op.Clone(),
			Transformed: result.Clone(),
		})
	}
	return result, nil
}

// AddRemoteUser registers or overwrites a collaborator on the editor
// and emits a remote_user.connected event.
func (e *Engine) AddRemoteUser(ctx context.Context, editorID string, user *cowrite.RemoteUser) error {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return err
	}
	if err := inst.cursors.Upsert(user); err != nil {
		return err
	}
	e.emit(ctx, editorID, &cowrite.RemoteUserConnectedData{User: user.Clone()})
	return nil
}

// RemoveRemoteUser drops a collaborator from the editor, emitting a
// remote_user.disconnected event when the user was present.
func (e *Engine) RemoveRemoteUser(ctx context.Context, editorID, userID string) error {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return err
	}
	if inst.cursors.Remove(userID) {
		e.emit(ctx, editorID, &cowrite.RemoteUserDisconnectedData{UserID: userID})
	}
	return nil
}

// UpdateRemoteUserCursor validates and stores a collaborator's cursor
// and selection, then emits a cursor.updated event. The broadcast flag
// is carried on the event so sinks can distinguish locally significant
// moves from ones that should reach other clients.
func (e *Engine) UpdateRemoteUserCursor(ctx context.Context, editorID, userID string, cursor *cowrite.Cursor, selection *cowrite.Selection, broadcast bool) error {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return err
	}
	if err := inst.cursors.UpdateCursor(userID, cursor, selection); err != nil {
		return err
	}
	e.emit(ctx, editorID, &cowrite.CursorUpdatedData{
		UserID:    userID,
		Cursor:    cursor.Clone(),
		Selection: selection.Clone(),
		Broadcast: broadcast,
	})
	return nil
}

// RemoteUsers returns copies of every collaborator tracked on the
// editor, ordered by id.
func (e *Engine) RemoteUsers(editorID string) ([]*cowrite.RemoteUser, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return nil, err
	}
	return inst.cursors.All(), nil
}

// ActiveRemoteUsers returns copies of the collaborators with IsActive
// set, ordered by id.
func (e *Engine) ActiveRemoteUsers(editorID string) ([]*cowrite.RemoteUser, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return nil, err
	}
	return inst.cursors.Active(), nil
}

// EditorContent returns the editor's current content.
func (e *Engine) EditorContent(editorID string) (string, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return "", err
	}
	return inst.state.Content(), nil
}

// EditorVersion returns the editor's current version counter.
func (e *Engine) EditorVersion(editorID string) (int, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return 0, err
	}
	return inst.history.Version(), nil
}

// SetEditorMode switches the editor's mode. Transitions are
// unrestricted.
func (e *Engine) SetEditorMode(editorID string, mode editor.Mode) error {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return err
	}
	inst.state.SetMode(mode)
	return nil
}

// HistorySince returns copies of the editor's operations with version
// >= version, in log order. Clients behind the editor's version use
// this to transform their pending operations.
func (e *Engine) HistorySince(editorID string, version int) ([]*cowrite.Operation, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return nil, err
	}
	return inst.history.SinceVersion(version), nil
}

// CreateSnapshot captures the editor's content and version as its
// current snapshot, replacing any previous one, and emits a
// snapshot.created event.
func (e *Engine) CreateSnapshot(ctx context.Context, editorID, clientID string) (*cowrite.EditorSnapshot, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return nil, err
	}
	inst.mu.Lock()
	snapshot := &cowrite.EditorSnapshot{
		ID:        ids.NewSnapshotID(),
		Content:   inst.state.Content(),
		Version:   inst.history.Version(),
		Timestamp: time.Now(),
		ClientID:  clientID,
	}
	inst.snapshot = snapshot
	inst.mu.Unlock()

	e.emit(ctx, editorID, &cowrite.SnapshotCreatedData{Snapshot: snapshot.Clone()})
	return snapshot.Clone(), nil
}

// Snapshot returns a copy of the editor's stored snapshot, or nil when
// none has been created.
func (e *Engine) Snapshot(editorID string) (*cowrite.EditorSnapshot, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return nil, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.snapshot.Clone(), nil
}

// RestoreSnapshot rewinds the editor to its stored snapshot: content
// and version are restored and the history drops everything at or past
// the snapshot version. Emits an editor.restored event. Used for
// recovery when transformation produced an anomaly.
func (e *Engine) RestoreSnapshot(ctx context.Context, editorID string) error {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	snapshot := inst.snapshot
	if snapshot == nil {
		inst.mu.Unlock()
		return fmt.Errorf("%w: editor %s", ErrNoSnapshot, editorID)
	}
	inst.state.Restore(snapshot.Content, snapshot.Version)
	inst.history.Rebase(snapshot.Version, snapshot.Version, nil)
	inst.mu.Unlock()

	e.emit(ctx, editorID, &cowrite.EditorRestoredData{
		Version:       snapshot.Version,
		ContentLength: len(snapshot.Content),
	})
	return nil
}

// ReplaceContent diffs the editor's current content against newContent
// and applies the resulting operations through the normal operation
// path, so history, versioning, and events all march forward as if a
// client had typed the change. Returns the applied operations.
func (e *Engine) ReplaceContent(ctx context.Context, editorID, newContent, clientID string) ([]*cowrite.Operation, error) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return nil, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()

	ops := ot.OperationsFromDiff(inst.state.Content(), newContent, clientID, inst.history.Version())
	for i, op := range ops {
		if _, err := e.applyLocked(ctx, editorID, inst, op); err != nil {
			return ops[:i], fmt.Errorf("replace content operation %d: %w", i, err)
		}
	}
	return ops, nil
}

// Reset clears the editor's content, history, cursor tracker, and
// snapshot, and cancels every pending cursor broadcast for the editor.
// The editor remains initialized. Emits an editor.reset event.
func (e *Engine) Reset(ctx context.Context, editorID string) {
	inst, err := e.editorFor(editorID)
	if err != nil {
		return
	}
	inst.mu.Lock()
	inst.state.Reset()
	inst.history.Clear()
	inst.cursors.Clear()
	inst.snapshot = nil
	inst.mu.Unlock()

	e.clearEditorTimers(editorID)
	e.emit(ctx, editorID, &cowrite.EditorResetData{})
	e.logger.Debug("editor reset", "editor_id", editorID)
}

// Close cancels every pending cursor broadcast across all editors. Call
// during server shutdown.
func (e *Engine) Close() {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	for key, timer := range e.timers {
		timer.Stop()
		delete(e.timers, key)
	}
}

func (e *Engine) emit(ctx context.Context, editorID string, data cowrite.EventData) {
	event := &cowrite.Event{
		ID:        ids.NewEventID(),
		Type:      data.EventType(),
		EditorID:  editorID,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.Warn("event publish failed",
			"event_type", event.Type,
			"editor_id", editorID,
			"error", err)
	}
}
