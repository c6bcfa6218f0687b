package tcpproto

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/dispatch"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/repo/memory"
	"github.com/lair-chat/lair-chat-server/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	rooms := memory.NewRoomRepository()
	messages := memory.NewMessageRepository()
	invitations := memory.NewInvitationRepository()
	blocks := memory.NewBlockRepository()

	now := time.Now()
	clock := func() time.Time { return now }

	auth, err := authsvc.New(users, sessions, nil, authsvc.Config{
		HashParams:       authsvc.HashParams{Memory: 64 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		JWTSecret:        "test-secret-at-least-32-characters!",
		JWTIssuer:        "lair-chat-test",
		SessionTTL:       time.Hour,
		LockoutThreshold: 100,
		LockoutWindow:    time.Minute,
	}, zerolog.Nop(), clock)
	if err != nil {
		t.Fatalf("authsvc.New: %v", err)
	}

	eng := engine.New(engine.Config{
		Auth:        auth,
		Users:       users,
		Rooms:       rooms,
		Messages:    messages,
		Invitations: invitations,
		Blocks:      blocks,
		Clock:       clock,
		Logger:      zerolog.Nop(),
	})

	registry := session.New()
	d := dispatch.New(registry, rooms, messages, zerolog.Nop())
	return New(eng, d, registry, zerolog.Nop())
}

func TestServerRegisterOverEncryptedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer clientConn.Close()

	cipher, err := clientHandshake(clientConn, true)
	if err != nil {
		t.Fatalf("clientHandshake: %v", err)
	}

	cmd := []byte(`{"type":"register","data":{"username":"alice","email":"alice@example.com","password":"correct horse battery staple"}}`)
	sealed, err := cipher.seal(cmd)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := writeFrame(clientConn, sealed); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	rawResp, err := readFrame(clientConn)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	plaintext, err := cipher.open(rawResp)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var env struct {
		Type    string `json:"type"`
		Success bool   `json:"success"`
	}
	if err := json.Unmarshal(plaintext, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "register_response" {
		t.Fatalf("Type = %q, want register_response", env.Type)
	}
	if !env.Success {
		t.Fatalf("expected success=true, body=%s", plaintext)
	}
}

// TestServerNegotiatesAwayEncryptionWhenNotRequired exercises the
// unencrypted-but-authenticated path: a server configured not to require
// encryption and a client that doesn't offer it end up on a plaintext
// connection, with commands still dispatched and answered normally.
func TestServerNegotiatesAwayEncryptionWhenNotRequired(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	srv := newTestServer(t)
	srv.SetRequireEncryption(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer clientConn.Close()

	cipher, err := clientHandshake(clientConn, false)
	if err != nil {
		t.Fatalf("clientHandshake: %v", err)
	}
	if _, ok := cipher.(plainCipher); !ok {
		t.Fatalf("cipher = %T, want plainCipher", cipher)
	}

	cmd := []byte(`{"type":"register","data":{"username":"bob","email":"bob@example.com","password":"correct horse battery staple"}}`)
	sealed, err := cipher.seal(cmd)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := writeFrame(clientConn, sealed); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	rawResp, err := readFrame(clientConn)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	plaintext, err := cipher.open(rawResp)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var env struct {
		Type    string `json:"type"`
		Success bool   `json:"success"`
	}
	if err := json.Unmarshal(plaintext, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "register_response" {
		t.Fatalf("Type = %q, want register_response", env.Type)
	}
	if !env.Success {
		t.Fatalf("expected success=true, body=%s", plaintext)
	}
}

// TestServerRequiresEncryptionOverridesClient exercises the other side of
// negotiation: a server that requires encryption encrypts the connection
// even when the client didn't ask for it.
func TestServerRequiresEncryptionOverridesClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer clientConn.Close()

	cipher, err := clientHandshake(clientConn, false)
	if err != nil {
		t.Fatalf("clientHandshake: %v", err)
	}
	if _, ok := cipher.(*sessionCipher); !ok {
		t.Fatalf("cipher = %T, want *sessionCipher", cipher)
	}
}

// TestServerHandshakeRejectsVersionMismatch exercises the version_mismatch
// wire error frame: a client speaking an unsupported protocol version gets
// a readable error back before the connection closes, rather than just
// having it dropped.
func TestServerHandshakeRejectsVersionMismatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer clientConn.Close()

	hello, err := json.Marshal(clientHello{ProtocolVersion: protocolVersion + 1, PublicKey: make([]byte, keySize)})
	if err != nil {
		t.Fatalf("marshal clientHello: %v", err)
	}
	if err := writeFrame(clientConn, hello); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	raw, err := readFrame(clientConn)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}

	var env struct {
		Type  string `json:"type"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal error frame: %v", err)
	}
	if env.Type != "error" {
		t.Fatalf("Type = %q, want error", env.Type)
	}
	if env.Error.Code != "version_mismatch" {
		t.Fatalf("Error.Code = %q, want version_mismatch", env.Error.Code)
	}
}
