// Package ws provides the WebSocket transport for the session fabric:
// the authenticated upgrade handler and the per-connection read and
// write pumps. It is the only package that touches gorilla/websocket;
// everything above it speaks fabric.Transport and JSON frames.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deepnoodle-ai/cowrite/fabric"
	"github.com/deepnoodle-ai/cowrite/slogger"
	"github.com/gorilla/websocket"
)

// Options are used to configure a Handler.
type Options struct {
	// Fabric routes frames for established connections. Required.
	Fabric *fabric.Fabric

	// Authenticator decodes upgrade tokens. Defaults to
	// TokenAuthenticator.
	Authenticator Authenticator

	Logger slogger.Logger

	// CheckOrigin overrides the upgrader's origin policy. The default
	// accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades HTTP requests to WebSocket sessions. Requests
// without a valid token are rejected with 401 before the upgrade.
type Handler struct {
	fabric   *fabric.Fabric
	auth     Authenticator
	logger   slogger.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler configured with the given options.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Fabric == nil {
		return nil, fmt.Errorf("fabric is required")
	}
	if opts.Authenticator == nil {
		opts.Authenticator = TokenAuthenticator{}
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	return &Handler{
		fabric: opts.Fabric,
		auth:   opts.Authenticator,
		logger: slogger.WithComponent(opts.Logger, "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := extractToken(r)
	if err != nil {
		h.logger.Warn("upgrade rejected: no token", "remote", r.RemoteAddr)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	userID, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		h.logger.Warn("upgrade rejected: bad token",
			"remote", r.RemoteAddr, "error", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConn(socket)
	go conn.writePump()
	session := h.fabric.RegisterClient(userID, conn)
	go h.readPump(conn, session.SessionID)
}

// readPump reads frames off the socket and hands them to the fabric
// until the connection dies. Frame-level errors are already logged and
// absorbed by the fabric; only transport failure ends the loop, which
// then unregisters the session.
func (h *Handler) readPump(conn *Conn, sessionID string) {
	defer func() {
		h.fabric.UnregisterClient(sessionID)
		conn.markClosed()
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		h.fabric.MarkClientAlive(sessionID)
		return nil
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.logger.Warn("unexpected close",
					"session_id", sessionID, "error", err)
			}
			return
		}
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		// HandleMessage logs and drops bad frames; the session stays up
		h.fabric.HandleMessage(context.Background(), data)
	}
}
