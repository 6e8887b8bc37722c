package editor

import (
	"testing"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/wonton/assert"
)

func historyOp(clientID string, version int) *cowrite.Operation {
	return &cowrite.Operation{
		ID:       "op-" + clientID,
		Type:     cowrite.OperationInsert,
		Position: 0,
		Content:  "x",
		ClientID: clientID,
		Version:  version,
	}
}

func TestHistoryAppend(t *testing.T) {
	h := NewHistory()
	assert.Equal(t, 0, h.Version())
	assert.Equal(t, 0, h.Len())

	h.Append(historyOp("c1", 0))
	assert.Equal(t, 1, h.Version())

	h.Append(historyOp("c2", 1))
	h.Append(historyOp("c1", 2))
	assert.Equal(t, 3, h.Version())
	assert.Equal(t, 3, h.Len())
}

func TestHistoryVersionEqualsAppliedCount(t *testing.T) {
	// The version counter equals the number of gap-free appended ops
	h := NewHistory()
	for i := 0; i < 25; i++ {
		h.Append(historyOp("c1", h.Version()))
	}
	assert.Equal(t, 25, h.Version())
	assert.Equal(t, 25, h.Len())
}

func TestHistoryAppendIsCopying(t *testing.T) {
	h := NewHistory()
	op := historyOp("c1", 0)
	h.Append(op)

	op.Position = 99
	stored := h.All()[0]
	assert.Equal(t, 0, stored.Position)
}

func TestHistorySinceVersion(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append(historyOp("c1", i))
	}

	since := h.SinceVersion(3)
	assert.Len(t, since, 2)
	assert.Equal(t, 3, since[0].Version)
	assert.Equal(t, 4, since[1].Version)

	assert.Len(t, h.SinceVersion(0), 5)
	assert.Len(t, h.SinceVersion(5), 0)
}

func TestHistoryBetween(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 6; i++ {
		h.Append(historyOp("c1", i))
	}

	// Half-open range [from, to)
	mid := h.Between(2, 5)
	assert.Len(t, mid, 3)
	assert.Equal(t, 2, mid[0].Version)
	assert.Equal(t, 4, mid[2].Version)

	assert.Len(t, h.Between(4, 4), 0)
}

func TestHistoryByClient(t *testing.T) {
	h := NewHistory()
	h.Append(historyOp("c1", 0))
	h.Append(historyOp("c2", 1))
	h.Append(historyOp("c1", 2))

	byC1 := h.ByClient("c1")
	assert.Len(t, byC1, 2)
	for _, op := range byC1 {
		assert.Equal(t, "c1", op.ClientID)
	}
	assert.Len(t, h.ByClient("nobody"), 0)
}

func TestHistorySnapshot(t *testing.T) {
	h := NewHistory()
	h.Append(historyOp("c1", 0))
	h.Append(historyOp("c2", 1))

	snap := h.Snapshot()
	assert.Equal(t, 2, snap.Version)
	assert.Len(t, snap.Operations, 2)
	assert.False(t, snap.Timestamp.IsZero())

	// The snapshot is isolated from later appends and mutation
	snap.Operations[0].Position = 42
	h.Append(historyOp("c1", 2))
	assert.Equal(t, 0, h.All()[0].Position)
	assert.Len(t, snap.Operations, 2)
}

func TestHistoryRebase(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append(historyOp("c1", i))
	}

	replacement := []*cowrite.Operation{
		historyOp("server", 2),
		historyOp("server", 3),
	}
	h.Rebase(2, 4, replacement)

	assert.Equal(t, 4, h.Version())
	ops := h.All()
	assert.Len(t, ops, 4)
	assert.Equal(t, "c1", ops[0].ClientID)
	assert.Equal(t, "c1", ops[1].ClientID)
	assert.Equal(t, "server", ops[2].ClientID)
	assert.Equal(t, "server", ops[3].ClientID)
}

func TestHistoryRebaseToSnapshot(t *testing.T) {
	// Rebasing with no new ops rewinds the log to a snapshot boundary
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append(historyOp("c1", i))
	}
	h.Rebase(3, 3, nil)
	assert.Equal(t, 3, h.Version())
	assert.Equal(t, 3, h.Len())
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory()
	h.Append(historyOp("c1", 0))
	h.Clear()
	assert.Equal(t, 0, h.Version())
	assert.Equal(t, 0, h.Len())
}
