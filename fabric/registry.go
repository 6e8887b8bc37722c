package fabric

import (
	"fmt"
	"sync"
	"time"
)

// Transport is one client's outbound channel. Implementations must be
// safe for concurrent use; the ws package provides the WebSocket one.
type Transport interface {
	// Send writes one serialized frame to the client.
	Send(data []byte) error

	// Close shuts the transport with a close code and reason.
	Close(code int, reason string) error

	// IsOpen reports whether the transport can still send.
	IsOpen() bool
}

// Session is the fabric's record of one connected client.
type Session struct {
	SessionID           string    `json:"sessionId"`
	UserID              string    `json:"userId"`
	SubscribedDocuments []string  `json:"subscribedDocuments"`
	LastActivityTime    time.Time `json:"lastActivityTime"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	dup.SubscribedDocuments = append([]string(nil), s.SubscribedDocuments...)
	return &dup
}

func (s *Session) subscribed(documentID string) bool {
	for _, id := range s.SubscribedDocuments {
		if id == documentID {
			return true
		}
	}
	return false
}

// connection pairs a session with its transport and liveness flag. All
// fields are guarded by the owning registry's mutex.
type connection struct {
	transport Transport
	session   *Session
	isAlive   bool
}

// Registry maps session ids to connections and document ids to the
// sessions subscribed to them. The two maps are kept consistent: a
// document appears in a session's subscription list exactly when the
// session appears in that document's set. Safe for concurrent use.
type Registry struct {
	mu                 sync.RWMutex
	clients            map[string]*connection
	sessionsByDocument map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:            make(map[string]*connection),
		sessionsByDocument: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection for the session with no subscriptions and
// the liveness flag set.
func (r *Registry) Register(session *Session, transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[session.SessionID] = &connection{
		transport: transport,
		session:   session,
		isAlive:   true,
	}
}

// Unregister removes the session from every document set and deletes
// the connection, returning its transport for the caller to close.
func (r *Registry) Unregister(sessionID string) (Transport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.clients[sessionID]
	if !ok {
		return nil, false
	}
	for _, documentID := range conn.session.SubscribedDocuments {
		r.removeFromDocument(sessionID, documentID)
	}
	delete(r.clients, sessionID)
	return conn.transport, true
}

// removeFromDocument drops the session from a document set, deleting
// the set when it empties. Caller holds r.mu.
func (r *Registry) removeFromDocument(sessionID, documentID string) {
	set, ok := r.sessionsByDocument[documentID]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.sessionsByDocument, documentID)
	}
}

// Session returns a copy of the session record.
func (r *Registry) Session(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.clients[sessionID]
	if !ok {
		return nil, false
	}
	return conn.session.Clone(), true
}

// Subscribe adds the session to the document's set. Subscribing twice
// is a no-op. Returns ErrSessionNotFound for unknown sessions.
func (r *Registry) Subscribe(sessionID, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.clients[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if conn.session.subscribed(documentID) {
		return nil
	}
	conn.session.SubscribedDocuments = append(conn.session.SubscribedDocuments, documentID)
	set, ok := r.sessionsByDocument[documentID]
	if !ok {
		set = make(map[string]struct{})
		r.sessionsByDocument[documentID] = set
	}
	set[sessionID] = struct{}{}
	return nil
}

// Unsubscribe removes the session from the document's set. Unknown
// sessions and absent subscriptions are silently ignored.
func (r *Registry) Unsubscribe(sessionID, documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.clients[sessionID]
	if !ok {
		return
	}
	for i, id := range conn.session.SubscribedDocuments {
		if id == documentID {
			conn.session.SubscribedDocuments = append(
				conn.session.SubscribedDocuments[:i],
				conn.session.SubscribedDocuments[i+1:]...)
			break
		}
	}
	r.removeFromDocument(sessionID, documentID)
}

// IsSubscribed reports whether the session subscribes to the document.
func (r *Registry) IsSubscribed(sessionID, documentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.clients[sessionID]
	return ok && conn.session.subscribed(documentID)
}

// SessionsForDocument returns the ids of the sessions subscribed to the
// document.
func (r *Registry) SessionsForDocument(documentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.sessionsByDocument[documentID]
	out := make([]string, 0, len(set))
	for sessionID := range set {
		out = append(out, sessionID)
	}
	return out
}

// Transport returns the session's transport.
func (r *Registry) Transport(sessionID string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.clients[sessionID]
	if !ok {
		return nil, false
	}
	return conn.transport, true
}

// Touch updates the session's last activity time.
func (r *Registry) Touch(sessionID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.clients[sessionID]; ok {
		conn.session.LastActivityTime = now
	}
}

// MarkAlive sets the session's liveness flag, reporting whether the
// session exists.
func (r *Registry) MarkAlive(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.clients[sessionID]
	if !ok {
		return false
	}
	conn.isAlive = true
	return true
}

// BeginHeartbeatPass partitions connections for one heartbeat tick:
// sessions whose flag is still down from the previous tick are returned
// as dead; the rest have their flag lowered and their transports
// returned for a heartbeat probe.
func (r *Registry) BeginHeartbeatPass() (dead []string, live []Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID, conn := range r.clients {
		if !conn.isAlive {
			dead = append(dead, sessionID)
			continue
		}
		conn.isAlive = false
		live = append(live, conn.transport)
	}
	return dead, live
}

// SessionCount returns the number of registered sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// SessionIDs returns the ids of every registered session.
func (r *Registry) SessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.clients))
	for sessionID := range r.clients {
		out = append(out, sessionID)
	}
	return out
}

// Clear removes every connection and subscription.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[string]*connection)
	r.sessionsByDocument = make(map[string]map[string]struct{})
}
