package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/dispatch"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/repo/memory"
	"github.com/lair-chat/lair-chat-server/internal/session"
)

// newTestApp wires a Handler against in-memory repositories, mirroring
// internal/engine's testEngine helper.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	rooms := memory.NewRoomRepository()
	messages := memory.NewMessageRepository()
	invitations := memory.NewInvitationRepository()
	blocks := memory.NewBlockRepository()

	clock := func() time.Time { return time.Now() }

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
	dispatcher := dispatch.New(registry, rooms, messages, zerolog.Nop())

	h := New(eng, dispatcher, auth, users, nil, nil, zerolog.Nop())

	app := fiber.New()
	h.Mount(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("decode body: %v\nraw: %s", err, data)
	}
}

func TestHealthAndReady(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/ready status = %d, want 200 (nil db/redis should report ok)", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestRegisterAndGetMe(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Username: "alice", Email: "alice@example.com", Password: "passw0rd!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var registerEnv struct {
		Data engine.AuthResponse `json:"data"`
	}
	decodeJSON(t, resp, &registerEnv)
	token := registerEnv.Data.Token
	if token == "" {
		t.Fatal("expected a non-empty token from register")
	}

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /users/me status = %d, want 200", resp.StatusCode)
	}
	var meEnv struct {
		Data engine.UserResponse `json:"data"`
	}
	decodeJSON(t, resp, &meEnv)
	if meEnv.Data.User.Username.String() != "alice" {
		t.Errorf("username = %q, want %q", meEnv.Data.User.Username.String(), "alice")
	}
}

func TestGetMeWithoutTokenIsUnauthorized(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateRoomSendMessageAndList(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Username: "bob", Email: "bob@example.com", Password: "passw0rd!",
	})
	var authEnv struct {
		Data engine.AuthResponse `json:"data"`
	}
	decodeJSON(t, resp, &authEnv)
	token := authEnv.Data.Token

	resp = doJSON(t, app, http.MethodPost, "/api/v1/rooms", token, createRoomRequest{Name: "general"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d, want 201", resp.StatusCode)
	}
	var roomEnv struct {
		Data engine.RoomResponse `json:"data"`
	}
	decodeJSON(t, resp, &roomEnv)
	roomID := roomEnv.Data.Room.ID.String()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/messages", token, map[string]any{
		"target":  map[string]string{"target_type": "room", "target_id": roomID},
		"content": "hello room",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send message status = %d, want 201", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/messages?target_type=room&target_id="+roomID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list messages status = %d, want 200", resp.StatusCode)
	}
	var listEnv struct {
		Data engine.MessagesResponse `json:"data"`
	}
	decodeJSON(t, resp, &listEnv)
	if len(listEnv.Data.Messages) != 1 {
		t.Fatalf("messages returned = %d, want 1", len(listEnv.Data.Messages))
	}
	if listEnv.Data.Messages[0].Content.String() != "hello room" {
		t.Errorf("content = %q, want %q", listEnv.Data.Messages[0].Content.String(), "hello room")
	}
}

func TestListMessagesWithInvalidTargetTypeIsBadRequest(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/messages?target_type=bogus&target_id=x", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPresenceRoutesReportUnavailableWithoutRedis(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", registerRequest{
		Username: "carol", Email: "carol@example.com", Password: "passw0rd!",
	})
	var authEnv struct {
		Data engine.AuthResponse `json:"data"`
	}
	decodeJSON(t, resp, &authEnv)
	token := authEnv.Data.Token
	userID := authEnv.Data.User.ID.String()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/"+userID+"/presence", token, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("GET presence status = %d, want 503 (no Redis client wired in this build)", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPut, "/api/v1/users/me/presence", token, map[string]string{"status": "online"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("PUT presence status = %d, want 503", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/presence/typing", token, map[string]any{
		"target": map[string]string{"target_type": "room", "target_id": userID},
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("POST typing status = %d, want 503", resp.StatusCode)
	}
	_ = resp.Body.Close()
}
