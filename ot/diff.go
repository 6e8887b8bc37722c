package ot

import (
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/ids"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// OperationsFromDiff computes a minimal ordered operation sequence that
// transforms before into after. Versions are assigned sequentially from
// baseVersion, so the result can be applied through the normal
// operation path. Offsets are byte positions in the evolving document,
// matching the module's position model.
func OperationsFromDiff(before, after, clientID string, baseVersion int) []*cowrite.Operation {
	if before == after {
		return nil
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupEfficiency(diffs)

	now := time.Now()
	version := baseVersion
	position := 0
	var ops []*cowrite.Operation

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			position += len(d.Text)
		case diffmatchpatch.DiffDelete:
			ops = append(ops, &cowrite.Operation{
				ID:        ids.NewOperationID(),
				Type:      cowrite.OperationDelete,
				Position:  position,
				Length:    len(d.Text),
				ClientID:  clientID,
				Timestamp: now,
				Version:   version,
			})
			version++
		case diffmatchpatch.DiffInsert:
			ops = append(ops, &cowrite.Operation{
				ID:        ids.NewOperationID(),
				Type:      cowrite.OperationInsert,
				Position:  position,
				Content:   d.Text,
				ClientID:  clientID,
				Timestamp: now,
				Version:   version,
			})
			version++
			position += len(d.Text)
		}
	}
	return ops
}
