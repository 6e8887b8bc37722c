package fabric

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/cowrite"
)

// MessageType identifies the kind of frame crossing the transport.
type MessageType string

const (
	// Inbound frame types
	MessageOperation   MessageType = "operation"
	MessageHeartbeat   MessageType = "heartbeat"
	MessageSubscribe   MessageType = "subscribe"
	MessageUnsubscribe MessageType = "unsubscribe"

	// Outbound frame types
	MessageConnection   MessageType = "connection"
	MessageNotification MessageType = "notification"
)

// inboundType reports whether t is a frame type clients may send.
func inboundType(t MessageType) bool {
	switch t {
	case MessageOperation, MessageHeartbeat, MessageSubscribe, MessageUnsubscribe:
		return true
	}
	return false
}

// InboundMessage is the envelope of every client frame. Payload stays
// raw until the type-specific handler decodes it.
type InboundMessage struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// OperationPayload is the payload of an operation frame. Version is the
// document version the client believes it is editing, counted from 1.
type OperationPayload struct {
	DocumentID string             `json:"documentId"`
	Operation  *cowrite.Operation `json:"operation"`
	Version    int                `json:"version"`
}

// SubscriptionPayload is the payload of subscribe and unsubscribe
// frames.
type SubscriptionPayload struct {
	DocumentID string `json:"documentId"`
}

// BroadcastMessage is the outbound envelope fanned out to a document's
// subscribers.
type BroadcastMessage struct {
	Type             MessageType `json:"type"`
	DocumentID       string      `json:"documentId"`
	Data             any         `json:"data"`
	ExcludeSessionID string      `json:"excludeSessionId,omitempty"`
	Timestamp        int64       `json:"timestamp"`
}

// ConnectionMessage is sent once, immediately after a successful
// registration, to hand the client its session id.
type ConnectionMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp int64       `json:"timestamp"`
}

// HeartbeatMessage is the liveness probe sent on each heartbeat tick.
type HeartbeatMessage struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// NotificationMessage surfaces a per-frame problem to one client, such
// as a rate limit or a version conflict, without closing the session.
type NotificationMessage struct {
	Type       MessageType `json:"type"`
	DocumentID string      `json:"documentId,omitempty"`
	Error      string      `json:"error"`
	Timestamp  int64       `json:"timestamp"`
}

// ParseInbound decodes and validates a client frame: the type must be
// one of the four inbound types and the session id must be present.
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &MessageError{Err: fmt.Errorf("%w: %v", ErrInvalidMessage, err)}
	}
	if msg.Type == "" {
		return nil, &MessageError{Field: "type", Err: fmt.Errorf("%w: missing type", ErrInvalidMessage)}
	}
	if !inboundType(msg.Type) {
		return nil, &MessageError{Field: "type", Err: fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)}
	}
	if msg.SessionID == "" {
		return nil, &MessageError{Field: "sessionId", Err: fmt.Errorf("%w: missing session id", ErrInvalidMessage)}
	}
	return &msg, nil
}

// OperationPayload decodes and validates the payload of an operation
// frame: documentId, operation, and a version of at least 1 are all
// required.
func (m *InboundMessage) OperationPayload() (*OperationPayload, error) {
	var payload OperationPayload
	if len(m.Payload) == 0 {
		return nil, &MessageError{Field: "payload", Err: fmt.Errorf("%w: missing payload", ErrInvalidMessage)}
	}
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return nil, &MessageError{Field: "payload", Err: fmt.Errorf("%w: %v", ErrInvalidMessage, err)}
	}
	if payload.DocumentID == "" {
		return nil, &MessageError{Field: "payload.documentId", Err: fmt.Errorf("%w: missing document id", ErrInvalidMessage)}
	}
	if payload.Operation == nil {
		return nil, &MessageError{Field: "payload.operation", Err: fmt.Errorf("%w: missing operation", ErrInvalidMessage)}
	}
	if payload.Version < 1 {
		return nil, &MessageError{Field: "payload.version", Err: fmt.Errorf("%w: version %d below 1", ErrInvalidMessage, payload.Version)}
	}
	return &payload, nil
}

// SubscriptionPayload decodes and validates the payload of a subscribe
// or unsubscribe frame.
func (m *InboundMessage) SubscriptionPayload() (*SubscriptionPayload, error) {
	var payload SubscriptionPayload
	if len(m.Payload) == 0 {
		return nil, &MessageError{Field: "payload", Err: fmt.Errorf("%w: missing payload", ErrInvalidMessage)}
	}
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return nil, &MessageError{Field: "payload", Err: fmt.Errorf("%w: %v", ErrInvalidMessage, err)}
	}
	if payload.DocumentID == "" {
		return nil, &MessageError{Field: "payload.documentId", Err: fmt.Errorf("%w: missing document id", ErrInvalidMessage)}
	}
	return &payload, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
