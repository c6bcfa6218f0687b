package tcpproto

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestHandshakeDerivesMatchingCiphers(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	type result struct {
		cipher frameCipher
		err    error
	}
	serverResult := make(chan result, 1)
	clientResult := make(chan result, 1)

	go func() {
		c, err := serverHandshake(serverConn, true)
		serverResult <- result{c, err}
	}()
	go func() {
		c, err := clientHandshake(clientConn, true)
		clientResult <- result{c, err}
	}()

	sr := <-serverResult
	cr := <-clientResult
	if sr.err != nil {
		t.Fatalf("serverHandshake: %v", sr.err)
	}
	if cr.err != nil {
		t.Fatalf("clientHandshake: %v", cr.err)
	}

	plaintext := []byte("hello over an encrypted tcp frame")
	sealed, err := cr.cipher.seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	opened, err := sr.cipher.open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("opened = %q, want %q", opened, plaintext)
	}
}

func TestSessionCipherRejectsTamperedCiphertext(t *testing.T) {
	var key [keySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	c, err := newSessionCipher(key)
	if err != nil {
		t.Fatalf("newSessionCipher: %v", err)
	}
	sealed, err := c.seal([]byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := c.open(sealed); err == nil {
		t.Fatal("expected tampered ciphertext to fail authentication")
	}
}

func TestServerHandshakeTimesOutOnSlowClient(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	_ = serverConn.SetDeadline(time.Now().Add(50 * time.Millisecond))
	if _, err := serverHandshake(serverConn, true); err == nil {
		t.Fatal("expected handshake to fail when the client never sends ClientHello")
	}
}
