package editor

import (
	"sync"
	"time"

	"github.com/deepnoodle-ai/cowrite"
)

// History is one editor's append-only operation log plus its version
// counter. The version equals the number of operations applied to a
// freshly initialized editor. History is safe for concurrent use.
//
// Append does not re-validate op.Version against the counter; that
// check belongs to the engine, which serializes writers per editor.
type History struct {
	mu      sync.RWMutex
	ops     []*cowrite.Operation
	version int
}

// HistorySnapshot is a deep-copied capture of the log.
type HistorySnapshot struct {
	Operations []*cowrite.Operation `json:"operations"`
	Version    int                  `json:"version"`
	Timestamp  time.Time            `json:"timestamp"`
}

// NewHistory returns an empty history at version 0.
func NewHistory() *History {
	return &History{}
}

// Append pushes op and advances the version to max(version,
// op.Version+1).
func (h *History) Append(op *cowrite.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op.Clone())
	if op.Version+1 > h.version {
		h.version = op.Version + 1
	}
}

// Version returns the current version counter.
func (h *History) Version() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Len returns the number of logged operations.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ops)
}

// SinceVersion returns copies of all operations with version >= v, in
// log order.
func (h *History) SinceVersion(v int) []*cowrite.Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*cowrite.Operation
	for _, op := range h.ops {
		if op.Version >= v {
			out = append(out, op.Clone())
		}
	}
	return out
}

// Between returns copies of operations with from <= version < to, in
// log order.
func (h *History) Between(from, to int) []*cowrite.Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*cowrite.Operation
	for _, op := range h.ops {
		if op.Version >= from && op.Version < to {
			out = append(out, op.Clone())
		}
	}
	return out
}

// ByClient returns copies of all operations authored by clientID, in
// log order.
func (h *History) ByClient(clientID string) []*cowrite.Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*cowrite.Operation
	for _, op := range h.ops {
		if op.ClientID == clientID {
			out = append(out, op.Clone())
		}
	}
	return out
}

// All returns copies of every logged operation.
func (h *History) All() []*cowrite.Operation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*cowrite.Operation, len(h.ops))
	for i, op := range h.ops {
		out[i] = op.Clone()
	}
	return out
}

// Snapshot returns a deep-copied capture of the log with the current
// version and capture time.
func (h *History) Snapshot() *HistorySnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ops := make([]*cowrite.Operation, len(h.ops))
	for i, op := range h.ops {
		ops[i] = op.Clone()
	}
	return &HistorySnapshot{
		Operations: ops,
		Version:    h.version,
		Timestamp:  time.Now(),
	}
}

// Rebase retains operations with version < fromVersion, appends newOps,
// and forces the counter to toVersion. Used for recovery after
// server-authoritative reordering.
func (h *History) Rebase(fromVersion, toVersion int, newOps []*cowrite.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	retained := make([]*cowrite.Operation, 0, len(h.ops)+len(newOps))
	for _, op := range h.ops {
		if op.Version < fromVersion {
			retained = append(retained, op)
		}
	}
	for _, op := range newOps {
		retained = append(retained, op.Clone())
	}
	h.ops = retained
	h.version = toVersion
}

// Clear resets the history to empty at version 0.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = nil
	h.version = 0
}
