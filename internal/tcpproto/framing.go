// Package tcpproto implements the raw-TCP transport for lair-chat: a
// 4-byte length-prefixed frame carrying the same command/response/event
// JSON bodies internal/wire produces for the REST surface. Its connection
// lifecycle — readPump/writePump, an outbound enqueue channel,
// backpressure-closes-connection, an identify/auth timer — follows the
// same shape as internal/wsgateway's WebSocket connections, adapted to
// raw framed bytes instead of WebSocket messages.
package tcpproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxFrameSize is the largest payload a frame may carry. It bounds both
// reads (reject an oversized length prefix before allocating) and writes
// (a caller handing us more than this is a programming error upstream,
// not a wire-layer concern to recover from).
const maxFrameSize = 1 << 20 // 1 MiB

// lengthPrefixSize is the width of the frame's length header.
const lengthPrefixSize = 4

var errFrameTooLarge = errors.New("tcpproto: frame exceeds maximum size")

// readFrame reads one length-prefixed frame from r: a 4-byte big-endian
// length followed by that many bytes of payload.
func readFrame(r io.Reader) ([]byte, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, errFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeFrame writes payload to w as a single length-prefixed frame.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("tcpproto: refusing to write %d byte frame: %w", len(payload), errFrameTooLarge)
	}
	var header [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
