package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInteger(t *testing.T) {
	value := Integer()
	require.NotEmpty(t, value)
	for _, r := range value {
		require.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
	}
}

func TestBase36(t *testing.T) {
	value := Base36(9)
	require.Len(t, value, 9)
	for _, r := range value {
		require.True(t, strings.ContainsRune(base36Alphabet, r), "unexpected rune %q", r)
	}

	require.Empty(t, Base36(0))
	require.Empty(t, Base36(-1))

	// Collisions over a small sample would indicate a broken generator
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		v := Base36(9)
		require.False(t, seen[v], "duplicate value %q", v)
		seen[v] = true
	}
}
