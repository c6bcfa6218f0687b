package tcpproto

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"type":"ping"}`)
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	got, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, maxFrameSize+1)
	if err := writeFrame(&buf, oversized); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestReadFrameRejectsOversizedLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header)
	if _, err := readFrame(&buf); err != errFrameTooLarge {
		t.Fatalf("err = %v, want errFrameTooLarge", err)
	}
}

func TestReadFrameErrorsOnTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	truncated := buf.Bytes()[:len(buf.Bytes())-2]
	if _, err := readFrame(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error reading truncated frame")
	}
}
