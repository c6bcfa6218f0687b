// Package wsgateway carries the same command/response/event JSON bodies as
// internal/tcpproto, but over gofiber/contrib/v3/websocket +
// fasthttp/websocket frames instead of raw length-prefixed TCP, wired at
// ChatEngine and internal/dispatch the same way internal/tcpproto is.
// There is no handshake stage here (TLS termination and the HTTP upgrade
// already authenticate the transport); the auth/idle timeouts mirror
// internal/tcpproto's.
package wsgateway

import (
	"errors"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
)

// writeWait bounds a single frame write.
const writeWait = 10 * time.Second

var errConnClosed = errors.New("wsgateway: connection closed")

// Conn adapts a single WebSocket connection to session.ConnHandle. Writes
// are buffered through a channel drained by writePump; a full buffer closes
// the connection rather than blocking, the same backpressure policy as
// internal/tcpproto.Conn.
type Conn struct {
	ws *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

// Send enqueues payload for delivery as a single text frame.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		c.Close()
		return errConnClosed
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// readMessage blocks for the next inbound text/binary frame.
func (c *Conn) readMessage() ([]byte, error) {
	_, payload, err := c.ws.ReadMessage()
	return payload, err
}

// writePump drains send onto the WebSocket connection until closed.
func (c *Conn) writePump() {
	defer func() { _ = c.ws.Close() }()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
