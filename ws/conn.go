package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection tuning. The ping period must stay under the pong wait so a
// healthy client always answers before its read deadline expires.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512 * 1024
	sendBufferSize = 256
)

// Conn adapts a gorilla WebSocket connection to fabric.Transport. All
// writes funnel through a single write pump; Send enqueues without
// blocking and sheds frames when a slow client fills its buffer.
type Conn struct {
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	open     bool
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
		open: true,
	}
}

// Send enqueues one frame for the write pump. It never blocks: a full
// buffer returns ErrSendBufferFull and the frame is dropped.
func (c *Conn) Send(data []byte) error {
	if !c.IsOpen() {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return fmt.Errorf("%w: dropped %d bytes", ErrSendBufferFull, len(data))
	}
}

// Close sends a close frame with the given code and reason, then tears
// the connection down. Safe to call more than once.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	var err error
	if wasOpen {
		message := websocket.FormatCloseMessage(code, reason)
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		err = c.ws.WriteMessage(websocket.CloseMessage, message)
	}
	c.doneOnce.Do(func() { close(c.done) })
	if closeErr := c.ws.Close(); err == nil {
		err = closeErr
	}
	return err
}

// IsOpen reports whether the connection can still send.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// markClosed flips the open flag without writing a close frame, for
// paths where the peer already went away.
func (c *Conn) markClosed() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.doneOnce.Do(func() { close(c.done) })
	c.ws.Close()
}

// writePump owns all writes to the socket: queued frames plus periodic
// protocol-level pings. It exits when the connection closes.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.markClosed()
	}()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
