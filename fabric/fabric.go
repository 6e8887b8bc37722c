// Package fabric is the session layer of the collaboration server. It
// registers client connections, tracks document subscriptions,
// validates inbound frames, rate-limits per user, fans broadcasts out
// to subscribers, and detects dead connections with a heartbeat loop.
//
// The fabric never closes a session over a bad frame: per-frame errors
// are logged and the frame dropped. Only transport failure, heartbeat
// timeout, or shutdown ends a session.
package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/ids"
	"github.com/deepnoodle-ai/cowrite/ratelimit"
	"github.com/deepnoodle-ai/cowrite/slogger"
)

// DefaultHeartbeatInterval is the tick spacing of the liveness loop. A
// session that misses one full tick is closed.
const DefaultHeartbeatInterval = 30 * time.Second

// Close reasons used with close code 1000.
const (
	CloseCodeNormal        = 1000
	ReasonHeartbeatTimeout = "Heartbeat timeout"
	ReasonServerShutdown   = "Server shutdown"
)

// CollaborationEngine is the slice of the engine the fabric drives when
// ingesting operation frames. engine.Engine satisfies it.
type CollaborationEngine interface {
	InitializeEditor(editorID, initialContent string)
	ApplyOperation(ctx context.Context, editorID string, op *cowrite.Operation) (int, error)
	TransformOperation(ctx context.Context, editorID string, op *cowrite.Operation, against []*cowrite.Operation) (*cowrite.Operation, error)
	EditorVersion(editorID string) (int, error)
	HistorySince(editorID string, version int) ([]*cowrite.Operation, error)
}

// Options are used to configure a Fabric.
type Options struct {
	// Registry holds sessions and subscriptions. A fresh one is created
	// when nil.
	Registry *Registry

	// RateLimiter bounds per-user operation frames. A limiter with
	// default limits is created when nil.
	RateLimiter *ratelimit.Limiter

	// Engine, when set, ingests operation frames before fan-out.
	// Without one the fabric relays operations verbatim.
	Engine CollaborationEngine

	Logger            slogger.Logger
	HeartbeatInterval time.Duration
}

// Fabric routes frames between clients and the collaboration engine.
// Safe for concurrent use.
type Fabric struct {
	registry          *Registry
	limiter           *ratelimit.Limiter
	engine            CollaborationEngine
	logger            slogger.Logger
	heartbeatInterval time.Duration
	stop              chan struct{}
	stopOnce          sync.Once
	wg                sync.WaitGroup
}

// New returns a Fabric configured with the given options.
func New(opts Options) *Fabric {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = ratelimit.New(ratelimit.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Fabric{
		registry:          opts.Registry,
		limiter:           opts.RateLimiter,
		engine:            opts.Engine,
		logger:            slogger.WithComponent(opts.Logger, "fabric"),
		heartbeatInterval: opts.HeartbeatInterval,
		stop:              make(chan struct{}),
	}
}

// Registry exposes the session registry, primarily for stats and tests.
func (f *Fabric) Registry() *Registry {
	return f.registry
}

// RegisterClient allocates a session for the authenticated user, wires
// its transport into the registry, and sends the connection frame that
// hands the client its session id.
func (f *Fabric) RegisterClient(userID string, transport Transport) *Session {
	now := time.Now()
	session := &Session{
		SessionID:        ids.NewSessionID(now),
		UserID:           userID,
		LastActivityTime: now,
	}
	f.registry.Register(session, transport)

	frame, err := json.Marshal(ConnectionMessage{
		Type:      MessageConnection,
		SessionID: session.SessionID,
		Timestamp: now.UnixMilli(),
	})
	if err == nil {
		if err := transport.Send(frame); err != nil {
			f.logger.Warn("connection frame send failed",
				"session_id", session.SessionID, "error", err)
		}
	}
	f.logger.Info("client registered",
		"session_id", session.SessionID, "user_id", userID)
	return session.Clone()
}

// UnregisterClient removes the session from every document it
// subscribed to, deletes it, and clears its user's rate-limit bucket.
// The transport is not closed; callers close it when they own it.
func (f *Fabric) UnregisterClient(sessionID string) {
	session, ok := f.registry.Session(sessionID)
	if !ok {
		return
	}
	f.registry.Unregister(sessionID)
	f.limiter.ClearUser(session.UserID)
	f.logger.Info("client unregistered",
		"session_id", sessionID, "user_id", session.UserID)
}

// Subscribe adds the session to a document's fan-out set.
func (f *Fabric) Subscribe(sessionID, documentID string) error {
	return f.registry.Subscribe(sessionID, documentID)
}

// Unsubscribe removes the session from a document's fan-out set.
func (f *Fabric) Unsubscribe(sessionID, documentID string) {
	f.registry.Unsubscribe(sessionID, documentID)
}

// MarkClientAlive records liveness for the session. Called for inbound
// heartbeat frames and for transport-level pongs.
func (f *Fabric) MarkClientAlive(sessionID string) {
	f.registry.MarkAlive(sessionID)
}

// HandleMessage validates one inbound frame and routes it by type. The
// returned error is informational: callers log it and keep the session
// open.
func (f *Fabric) HandleMessage(ctx context.Context, raw []byte) error {
	msg, err := ParseInbound(raw)
	if err != nil {
		f.logger.Warn("dropped invalid frame", "error", err)
		return err
	}

	switch msg.Type {
	case MessageHeartbeat:
		f.MarkClientAlive(msg.SessionID)
		f.registry.Touch(msg.SessionID, time.Now())
		return nil
	case MessageSubscribe:
		return f.handleSubscription(msg, true)
	case MessageUnsubscribe:
		return f.handleSubscription(msg, false)
	case MessageOperation:
		return f.handleOperation(ctx, msg)
	}
	return nil
}

func (f *Fabric) handleSubscription(msg *InboundMessage, subscribe bool) error {
	payload, err := msg.SubscriptionPayload()
	if err != nil {
		f.logger.Warn("dropped invalid subscription frame",
			"session_id", msg.SessionID, "error", err)
		return err
	}
	if subscribe {
		if err := f.registry.Subscribe(msg.SessionID, payload.DocumentID); err != nil {
			f.logger.Warn("subscribe failed",
				"session_id", msg.SessionID,
				"document_id", payload.DocumentID,
				"error", err)
			return err
		}
		f.logger.Debug("session subscribed",
			"session_id", msg.SessionID, "document_id", payload.DocumentID)
	} else {
		f.registry.Unsubscribe(msg.SessionID, payload.DocumentID)
		f.logger.Debug("session unsubscribed",
			"session_id", msg.SessionID, "document_id", payload.DocumentID)
	}
	f.registry.Touch(msg.SessionID, time.Now())
	return nil
}

// handleOperation is the main ingest path: session lookup, rate limit,
// subscription check, optional engine apply, then fan-out excluding the
// sender.
func (f *Fabric) handleOperation(ctx context.Context, msg *InboundMessage) error {
	session, ok := f.registry.Session(msg.SessionID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrSessionNotFound, msg.SessionID)
		f.logger.Warn("dropped operation for unknown session", "session_id", msg.SessionID)
		return err
	}

	payload, err := msg.OperationPayload()
	if err != nil {
		f.logger.Warn("dropped invalid operation frame",
			"session_id", msg.SessionID, "error", err)
		return err
	}

	if err := f.limiter.CheckAndRecord(session.UserID); err != nil {
		f.logger.Warn("operation rate limited",
			"session_id", msg.SessionID, "user_id", session.UserID)
		f.notify(msg.SessionID, payload.DocumentID, "rate limit exceeded")
		return err
	}

	if !session.subscribed(payload.DocumentID) {
		err := fmt.Errorf("%w: session %s is not subscribed to %s",
			ErrOperationDenied, msg.SessionID, payload.DocumentID)
		f.logger.Warn("dropped operation for non-subscribed document",
			"session_id", msg.SessionID, "document_id", payload.DocumentID)
		return err
	}

	op := payload.Operation
	if f.engine != nil {
		op, err = f.ingest(ctx, payload.DocumentID, op)
		if err != nil {
			f.logger.Warn("operation ingest failed",
				"session_id", msg.SessionID,
				"document_id", payload.DocumentID,
				"error", err)
			f.notify(msg.SessionID, payload.DocumentID, err.Error())
			return err
		}
	}

	f.Broadcast(&BroadcastMessage{
		Type:             MessageOperation,
		DocumentID:       payload.DocumentID,
		Data:             op,
		ExcludeSessionID: msg.SessionID,
		Timestamp:        nowMillis(),
	})
	f.registry.Touch(msg.SessionID, time.Now())
	return nil
}

// ingest runs an inbound operation through the engine. An operation
// based on an older version is first transformed against the operations
// it missed; one based on a future version is a conflict the client
// must resolve by fetching history.
func (f *Fabric) ingest(ctx context.Context, documentID string, op *cowrite.Operation) (*cowrite.Operation, error) {
	f.engine.InitializeEditor(documentID, "")
	current, err := f.engine.EditorVersion(documentID)
	if err != nil {
		return nil, err
	}
	if op.Version < current {
		missed, err := f.engine.HistorySince(documentID, op.Version)
		if err != nil {
			return nil, err
		}
		transformed, err := f.engine.TransformOperation(ctx, documentID, op, missed)
		if err != nil {
			return nil, err
		}
		transformed.Version = current
		op = transformed
	}
	if _, err := f.engine.ApplyOperation(ctx, documentID, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Broadcast serializes the message once and sends it to every session
// subscribed to the document, skipping the excluded session and any
// transport that is not open. Per-send failures are logged and do not
// abort the fan-out.
func (f *Fabric) Broadcast(msg *BroadcastMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		f.logger.Error("broadcast marshal failed",
			"document_id", msg.DocumentID, "error", err)
		return
	}
	for _, sessionID := range f.registry.SessionsForDocument(msg.DocumentID) {
		if sessionID == msg.ExcludeSessionID {
			continue
		}
		transport, ok := f.registry.Transport(sessionID)
		if !ok || !transport.IsOpen() {
			continue
		}
		if err := transport.Send(frame); err != nil {
			f.logger.Warn("broadcast send failed",
				"session_id", sessionID,
				"document_id", msg.DocumentID,
				"error", err)
		}
	}
}

// notify sends a notification frame to one session, best effort.
func (f *Fabric) notify(sessionID, documentID, message string) {
	transport, ok := f.registry.Transport(sessionID)
	if !ok || !transport.IsOpen() {
		return
	}
	frame, err := json.Marshal(NotificationMessage{
		Type:       MessageNotification,
		DocumentID: documentID,
		Error:      message,
		Timestamp:  nowMillis(),
	})
	if err != nil {
		return
	}
	if err := transport.Send(frame); err != nil {
		f.logger.Warn("notification send failed",
			"session_id", sessionID, "error", err)
	}
}

// Start launches the heartbeat loop. Call Shutdown to stop it.
func (f *Fabric) Start() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-f.stop:
				return
			case <-ticker.C:
				f.heartbeatTick()
			}
		}
	}()
}

// heartbeatTick closes sessions that missed the previous probe and
// probes the rest.
func (f *Fabric) heartbeatTick() {
	dead, live := f.registry.BeginHeartbeatPass()

	for _, sessionID := range dead {
		f.logger.Info("closing session after missed heartbeat", "session_id", sessionID)
		if transport, ok := f.registry.Transport(sessionID); ok {
			if err := transport.Close(CloseCodeNormal, ReasonHeartbeatTimeout); err != nil {
				f.logger.Warn("heartbeat close failed",
					"session_id", sessionID, "error", err)
			}
		}
		f.UnregisterClient(sessionID)
	}

	frame, err := json.Marshal(HeartbeatMessage{
		Type:      MessageHeartbeat,
		Timestamp: nowMillis(),
	})
	if err != nil {
		return
	}
	for _, transport := range live {
		if !transport.IsOpen() {
			continue
		}
		if err := transport.Send(frame); err != nil {
			f.logger.Warn("heartbeat send failed", "error", err)
		}
	}
}

// Shutdown stops the heartbeat loop, closes every transport with close
// code 1000 and reason "Server shutdown", and clears the registry and
// all rate-limit buckets.
func (f *Fabric) Shutdown() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})
	f.wg.Wait()

	for _, sessionID := range f.registry.SessionIDs() {
		if transport, ok := f.registry.Transport(sessionID); ok {
			if err := transport.Close(CloseCodeNormal, ReasonServerShutdown); err != nil {
				f.logger.Warn("shutdown close failed",
					"session_id", sessionID, "error", err)
			}
		}
	}
	f.registry.Clear()
	f.limiter.ClearAll()
	f.logger.Info("fabric shut down")
}
