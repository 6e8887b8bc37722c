// Package ids generates the identifiers used across the module.
//
// Event and snapshot ids are typeid values: K-sortable, prefixed, safe
// to order lexicographically. Operation and broadcast ids are random
// UUIDs; they identify an instance and carry no ordering. Session ids
// follow the wire format "{unixMillis}-{9-char-base36-random}".
package ids

import (
	"fmt"
	"log"
	"time"

	"github.com/deepnoodle-ai/cowrite/internal/random"
	"github.com/google/uuid"
	"go.jetify.com/typeid"
)

// NewEventID creates a new sortable event id.
func NewEventID() string {
	value, err := typeid.WithPrefix("event")
	if err != nil {
		log.Fatalf("error creating new id: %v", err)
	}
	return value.String()
}

// NewSnapshotID creates a new sortable snapshot id.
func NewSnapshotID() string {
	value, err := typeid.WithPrefix("snap")
	if err != nil {
		log.Fatalf("error creating new id: %v", err)
	}
	return value.String()
}

// NewOperationID creates a new operation id.
func NewOperationID() string {
	return fmt.Sprintf("op_%s", uuid.New().String())
}

// NewBatchID creates a new operation batch id.
func NewBatchID() string {
	return fmt.Sprintf("batch_%s", uuid.New().String())
}

// NewBroadcastID creates a new cursor broadcast id.
func NewBroadcastID() string {
	return fmt.Sprintf("bcast_%s", uuid.New().String()[:8])
}

// SessionIDRandomLength is the number of base36 characters following
// the millisecond timestamp in a session id.
const SessionIDRandomLength = 9

// NewSessionID creates a session id of the form
// "{unixMillis}-{9-char-base36-random}".
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), random.Base36(SessionIDRandomLength))
}
