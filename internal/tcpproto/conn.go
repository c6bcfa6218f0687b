package tcpproto

import (
	"errors"
	"net"
	"sync"
	"time"
)

// writeWait bounds how long a single frame write may take.
const writeWait = 10 * time.Second

var errConnClosed = errors.New("tcpproto: connection closed")

// Conn is a single encrypted TCP connection. It implements
// session.ConnHandle so the session registry can address it directly. Reads
// happen on the caller's goroutine via readMessage (driven by Server's
// accept-loop handler); writes are buffered through a channel drained by
// writePump, the same enqueue-and-drain shape internal/wsgateway's
// connection uses.
type Conn struct {
	raw    net.Conn
	cipher frameCipher

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(raw net.Conn, cipher frameCipher) *Conn {
	return &Conn{
		raw:    raw,
		cipher: cipher,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Send encrypts and enqueues payload for delivery. A full send buffer means
// this connection's peer is not keeping up; rather than block the
// dispatcher or the command loop, the connection is closed instead — a
// slow consumer never blocks delivery to anyone else.
func (c *Conn) Send(payload []byte) error {
	sealed, err := c.cipher.seal(payload)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- sealed:
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
		_ = c.raw.Close()
	})
	return nil
}

// readMessage blocks for the next frame and decrypts it. The caller is
// responsible for setting an appropriate read deadline on raw beforehand.
func (c *Conn) readMessage() ([]byte, error) {
	sealed, err := readFrame(c.raw)
	if err != nil {
		return nil, err
	}
	return c.cipher.open(sealed)
}

// writePump drains the send channel onto the wire until the connection is
// closed. It must run in its own goroutine for the lifetime of the
// connection.
func (c *Conn) writePump() {
	defer func() { _ = c.raw.Close() }()
	for {
		select {
		case msg := <-c.send:
			_ = c.raw.SetWriteDeadline(time.Now().Add(writeWait))
			if err := writeFrame(c.raw, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
