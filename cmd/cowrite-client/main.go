// Command cowrite-client is an interactive terminal client for the
// collaboration server. It dials the WebSocket endpoint, subscribes to
// a document, and turns typed commands into operation frames while
// printing everything the server fans out.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/cowrite/fabric"
	"github.com/deepnoodle-ai/cowrite/ids"
	"github.com/deepnoodle-ai/cowrite/retry"
	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

var (
	errorStyle   = color.New(color.FgRed)
	successStyle = color.New(color.FgGreen)
	remoteStyle  = color.New(color.FgCyan)
	boldStyle    = color.New(color.Bold)
)

func fatal(msg string, args ...interface{}) {
	fmt.Printf(errorStyle.Sprint(msg)+"\n", args...)
	os.Exit(1)
}

type client struct {
	conn      *websocket.Conn
	clientID  string
	sessionID string
	document  string

	// version is the document version the next operation is based on,
	// advanced by our own sends and by remote operation broadcasts.
	version atomic.Int64
}

func main() {
	var url, token, document string
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "WebSocket endpoint")
	flag.StringVar(&token, "token", "", "Session token (required)")
	flag.StringVar(&document, "doc", "", "Document to subscribe to on connect")
	flag.Parse()

	if token == "" {
		fatal("The -token flag is required")
	}

	conn, err := dial(context.Background(), url, token)
	if err != nil {
		fatal("Error connecting to %s: %s", url, err)
	}
	defer conn.Close()

	// The first frame the server sends carries our session id
	var hello fabric.ConnectionMessage
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&hello); err != nil {
		fatal("Error reading connection frame: %s", err)
	}
	conn.SetReadDeadline(time.Time{})
	fmt.Println(successStyle.Sprintf("Connected. Session %s", hello.SessionID))

	c := &client{
		conn:      conn,
		clientID:  token,
		sessionID: hello.SessionID,
		document:  document,
	}
	if document != "" {
		if err := c.sendSubscription(fabric.MessageSubscribe, document); err != nil {
			fatal("Error subscribing to %s: %s", document, err)
		}
		fmt.Println(successStyle.Sprintf("Subscribed to %s", document))
	}

	go c.readLoop()
	c.repl()
}

// dial connects with backoff. Handshake rejections such as a bad token
// are permanent; network errors are worth retrying.
func dial(ctx context.Context, url, token string) (*websocket.Conn, error) {
	var conn *websocket.Conn
	err := retry.Do(ctx, func() error {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)
		var resp *http.Response
		var err error
		conn, resp, err = websocket.DefaultDialer.DialContext(ctx, url, header)
		if err == nil {
			return nil
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("authentication rejected: %w", err)
		}
		fmt.Println(errorStyle.Sprintf("Dial failed (%s), retrying...", err))
		return retry.NewRecoverableError(err)
	}, retry.WithMaxRetries(5), retry.WithBaseWait(500*time.Millisecond))
	return conn, err
}

func (c *client) repl() {
	fmt.Println(boldStyle.Sprint("Commands: sub <doc> | unsub <doc> | insert <pos> <text> | delete <pos> <len> | ping | quit"))
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		var err error
		switch fields[0] {
		case "quit", "exit":
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case "sub":
			err = c.command(fields, 2, func() error {
				c.document = fields[1]
				c.version.Store(0)
				return c.sendSubscription(fabric.MessageSubscribe, fields[1])
			})
		case "unsub":
			err = c.command(fields, 2, func() error {
				return c.sendSubscription(fabric.MessageUnsubscribe, fields[1])
			})
		case "insert":
			err = c.command(fields, 3, func() error {
				pos, convErr := strconv.Atoi(fields[1])
				if convErr != nil {
					return convErr
				}
				text := strings.Join(fields[2:], " ")
				return c.sendOperation(&cowrite.Operation{
					ID:       ids.NewOperationID(),
					Type:     cowrite.OperationInsert,
					Position: pos,
					Content:  text,
				})
			})
		case "delete":
			err = c.command(fields, 3, func() error {
				pos, convErr := strconv.Atoi(fields[1])
				if convErr != nil {
					return convErr
				}
				length, convErr := strconv.Atoi(fields[2])
				if convErr != nil {
					return convErr
				}
				return c.sendOperation(&cowrite.Operation{
					ID:       ids.NewOperationID(),
					Type:     cowrite.OperationDelete,
					Position: pos,
					Length:   length,
				})
			})
		case "ping":
			err = c.send(&fabric.InboundMessage{
				Type:      fabric.MessageHeartbeat,
				SessionID: c.sessionID,
				Timestamp: time.Now().UnixMilli(),
			})
		default:
			err = fmt.Errorf("unknown command %q", fields[0])
		}
		if err != nil {
			fmt.Println(errorStyle.Sprintf("Error: %s", err))
		}
	}
}

func (c *client) command(fields []string, minArgs int, run func() error) error {
	if len(fields) < minArgs {
		return fmt.Errorf("%s needs %d arguments", fields[0], minArgs-1)
	}
	return run()
}

func (c *client) sendSubscription(msgType fabric.MessageType, document string) error {
	payload, err := json.Marshal(fabric.SubscriptionPayload{DocumentID: document})
	if err != nil {
		return err
	}
	return c.send(&fabric.InboundMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *client) sendOperation(op *cowrite.Operation) error {
	if c.document == "" {
		return fmt.Errorf("no document selected; use sub <doc> first")
	}
	version := int(c.version.Load())
	op.ClientID = c.clientID
	op.Timestamp = time.Now()
	op.Version = version
	payload, err := json.Marshal(fabric.OperationPayload{
		DocumentID: c.document,
		Operation:  op,
		Version:    version + 1,
	})
	if err != nil {
		return err
	}
	if err := c.send(&fabric.InboundMessage{
		Type:      fabric.MessageOperation,
		SessionID: c.sessionID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return err
	}
	c.version.Add(1)
	return nil
}

func (c *client) send(msg *fabric.InboundMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

// readLoop prints every server frame. Operation broadcasts for the
// current document also advance the local version so later edits are
// based on what the server has applied.
func (c *client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			fmt.Println(errorStyle.Sprintf("\nConnection closed: %s", err))
			os.Exit(0)
		}
		var envelope struct {
			Type       fabric.MessageType `json:"type"`
			DocumentID string             `json:"documentId"`
			Error      string             `json:"error"`
			Data       json.RawMessage    `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			fmt.Println(errorStyle.Sprintf("\nUnreadable frame: %s", err))
			continue
		}
		switch envelope.Type {
		case fabric.MessageHeartbeat:
			// Liveness probes are noise at the prompt
		case fabric.MessageNotification:
			fmt.Println(errorStyle.Sprintf("\n[%s] %s", envelope.DocumentID, envelope.Error))
			fmt.Print("> ")
		case fabric.MessageOperation:
			if envelope.DocumentID == c.document {
				c.version.Add(1)
			}
			fmt.Println(remoteStyle.Sprintf("\n[%s] %s", envelope.DocumentID, summarize(envelope.Data)))
			fmt.Print("> ")
		default:
			fmt.Println(remoteStyle.Sprintf("\n[%s] %s", envelope.Type, string(data)))
			fmt.Print("> ")
		}
	}
}

func summarize(data json.RawMessage) string {
	var op cowrite.Operation
	if err := json.Unmarshal(data, &op); err == nil && op.Type.Valid() {
		if op.Type == cowrite.OperationInsert {
			return fmt.Sprintf("%s inserted %q at %d", op.ClientID, op.Content, op.Position)
		}
		return fmt.Sprintf("%s deleted %d bytes at %d", op.ClientID, op.Length, op.Position)
	}
	return string(data)
}
