package authsvc

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo/memory"
)

func testService(t *testing.T, now time.Time) (*Service, *memory.UserRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	clock := func() time.Time { return now }

	svc, err := New(users, sessions, nil, Config{
		HashParams:       HashParams{Memory: 64 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		JWTSecret:        "test-secret-at-least-32-characters!",
		JWTIssuer:        "lair-chat-test",
		SessionTTL:       time.Hour,
		LockoutThreshold: 3,
		LockoutWindow:    time.Minute,
	}, zerolog.Nop(), clock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, users
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, _ := testService(t, now)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@x.y", Password: "passw0rd!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Username.String() != "alice" {
		t.Errorf("username = %q, want alice", reg.User.Username.String())
	}
	if reg.User.Role != domain.RoleUser {
		t.Errorf("role = %v, want RoleUser", reg.User.Role)
	}
	if reg.Token == "" {
		t.Error("expected non-empty token")
	}

	login, err := svc.Login(ctx, "ALICE", "passw0rd!", "127.0.0.1", domain.SessionHTTP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Token == reg.Token {
		t.Error("login token should differ from registration token")
	}
	if !login.Session.ExpiresAt.After(now) {
		t.Error("session should expire in the future")
	}
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, _ := testService(t, now)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@x.y", Password: "passw0rd!"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, errUnknownUser := svc.Login(ctx, "nobody", "whatever1", "10.0.0.1", domain.SessionHTTP)
	_, errWrongPass := svc.Login(ctx, "bob", "wrongpass", "10.0.0.2", domain.SessionHTTP)

	if !apperr.Is(errUnknownUser, apperr.CodeInvalidCreds) || !apperr.Is(errWrongPass, apperr.CodeInvalidCreds) {
		t.Fatalf("expected both failures to be invalid_credentials, got %v / %v", errUnknownUser, errWrongPass)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, _ := testService(t, now)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Username: "carol", Email: "carol@x.y", Password: "passw0rd!"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, "carol", "wrongpass", "1.2.3.4", domain.SessionHTTP); !apperr.Is(err, apperr.CodeInvalidCreds) {
			t.Fatalf("attempt %d: err = %v, want invalid_credentials", i, err)
		}
	}

	_, err := svc.Login(ctx, "carol", "passw0rd!", "1.2.3.4", domain.SessionHTTP)
	if !apperr.Is(err, apperr.CodeAccountLocked) {
		t.Fatalf("err = %v, want account_locked", err)
	}
}

func TestValidateTokenRevokedSessionTakesPrecedenceOverExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, _ := testService(t, now)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Username: "dora", Email: "dora@x.y", Password: "passw0rd!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(ctx, reg.Session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err = svc.ValidateToken(ctx, reg.Token)
	if !apperr.Is(err, apperr.CodeSessionRevoked) {
		t.Fatalf("err = %v, want session_revoked", err)
	}
}

func TestChangePasswordRejectsSameNewPassword(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc, _ := testService(t, now)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Username: "erin", Email: "erin@x.y", Password: "passw0rd!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	err = svc.ChangePassword(ctx, reg.User.ID, "passw0rd!", "passw0rd!")
	if !apperr.Is(err, apperr.CodeValidationFailed) {
		t.Fatalf("err = %v, want validation_failed", err)
	}
}
