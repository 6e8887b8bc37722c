package ids

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEventID(t *testing.T) {
	id := NewEventID()
	require.True(t, strings.HasPrefix(id, "event_"), "got %q", id)
	require.NotEqual(t, id, NewEventID())
}

func TestNewSnapshotID(t *testing.T) {
	id := NewSnapshotID()
	require.True(t, strings.HasPrefix(id, "snap_"), "got %q", id)
}

func TestEventIDsSort(t *testing.T) {
	// typeid values are K-sortable; ids created later compare greater
	first := NewEventID()
	time.Sleep(2 * time.Millisecond)
	second := NewEventID()
	require.Less(t, first, second)
}

func TestNewOperationID(t *testing.T) {
	id := NewOperationID()
	require.True(t, strings.HasPrefix(id, "op_"), "got %q", id)
	require.NotEqual(t, id, NewOperationID())
}

func TestNewSessionID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewSessionID(now)

	pattern := regexp.MustCompile(`^1700000000123-[0-9a-z]{9}$`)
	require.True(t, pattern.MatchString(id), "got %q", id)

	require.NotEqual(t, id, NewSessionID(now))
}
