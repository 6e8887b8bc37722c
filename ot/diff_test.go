package ot

import (
	"testing"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/wonton/assert"
)

// replay applies a diff-derived operation sequence to before and
// returns the result.
func replay(t *testing.T, before string, ops []*cowrite.Operation) string {
	t.Helper()
	content := before
	for _, op := range ops {
		content = applyTo(t, content, op)
	}
	return content
}

func TestOperationsFromDiff(t *testing.T) {
	t.Run("identical content yields no operations", func(t *testing.T) {
		ops := OperationsFromDiff("same", "same", "c1", 0)
		assert.Nil(t, ops)
	})

	t.Run("pure insert", func(t *testing.T) {
		ops := OperationsFromDiff("Hello", "Hello World", "c1", 0)
		assert.Equal(t, "Hello World", replay(t, "Hello", ops))
		for _, op := range ops {
			assert.Equal(t, cowrite.OperationInsert, op.Type)
			assert.Equal(t, "c1", op.ClientID)
			assert.NoError(t, op.Validate())
		}
	})

	t.Run("pure delete", func(t *testing.T) {
		ops := OperationsFromDiff("Hello World", "Hello", "c1", 3)
		assert.Equal(t, "Hello", replay(t, "Hello World", ops))
		assert.Equal(t, 3, ops[0].Version)
	})

	t.Run("mixed edits replay to the target", func(t *testing.T) {
		before := "The quick brown fox"
		after := "The slow red fox jumps"
		ops := OperationsFromDiff(before, after, "c9", 0)
		assert.Equal(t, after, replay(t, before, ops))
	})

	t.Run("versions are sequential from the base", func(t *testing.T) {
		ops := OperationsFromDiff("abc", "xbz", "c1", 5)
		for i, op := range ops {
			assert.Equal(t, 5+i, op.Version)
		}
	})

	t.Run("multibyte content replays by byte offsets", func(t *testing.T) {
		before := "héllo wörld"
		after := "héllo brave wörld"
		ops := OperationsFromDiff(before, after, "c1", 0)
		assert.Equal(t, after, replay(t, before, ops))
	})

	t.Run("operation ids are fresh", func(t *testing.T) {
		ops := OperationsFromDiff("aaaa", "bbbb", "c1", 0)
		seen := map[string]bool{}
		for _, op := range ops {
			assert.False(t, seen[op.ID])
			seen[op.ID] = true
		}
	})
}
