package config

import (
	"strings"
	"testing"
	"time"
)

// TestLoadDefaults is not t.Parallel because it mutates process-wide environment variables.
func TestLoadDefaults(t *testing.T) {
	keys := []string{
		"SERVER_NAME", "SERVER_URL", "SERVER_ENV",
		"TCP_PORT", "TCP_HANDSHAKE_TIMEOUT", "TCP_AUTH_TIMEOUT", "TCP_IDLE_TIMEOUT", "COMMAND_DEADLINE",
		"HTTP_PORT", "LOG_HEALTH_REQUESTS", "CORS_ALLOW_ORIGINS",
		"DATABASE_URL", "DATABASE_MAX_CONNS", "DATABASE_MIN_CONNS",
		"VALKEY_URL",
		"ARGON2_MEMORY", "ARGON2_ITERATIONS", "ARGON2_PARALLELISM", "ARGON2_SALT_LENGTH", "ARGON2_KEY_LENGTH",
		"JWT_SECRET", "JWT_ISSUER", "SESSION_TTL",
		"ABUSE_DISPOSABLE_EMAIL_BLOCKLIST_ENABLED", "ABUSE_DISPOSABLE_EMAIL_BLOCKLIST_URL",
		"ABUSE_DISPOSABLE_EMAIL_BLOCKLIST_REFRESH_INTERVAL",
		"LOCKOUT_THRESHOLD", "LOCKOUT_WINDOW",
		"RATE_LIMIT_AUTH_CAPACITY", "RATE_LIMIT_AUTH_REFILL_SECONDS",
		"RATE_LIMIT_MESSAGE_CAPACITY", "RATE_LIMIT_MESSAGE_REFILL_SECONDS",
		"RATE_LIMIT_ROOM_CREATE_CAPACITY", "RATE_LIMIT_ROOM_CREATE_REFILL_SECONDS",
		"RATE_LIMIT_GENERAL_CAPACITY", "RATE_LIMIT_GENERAL_REFILL_SECONDS",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}

	// JWT_SECRET is required by validation
	t.Setenv("JWT_SECRET", "test-secret-for-defaults-minimum-32")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerName != "Lair Chat" {
		t.Errorf("ServerName = %q, want %q", cfg.ServerName, "Lair Chat")
	}
	if cfg.ServerEnv != "production" {
		t.Errorf("ServerEnv = %q, want %q", cfg.ServerEnv, "production")
	}
	if cfg.TCPPort != 7878 {
		t.Errorf("TCPPort = %d, want 7878", cfg.TCPPort)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.HandshakeTimeout != 30*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 30s", cfg.HandshakeTimeout)
	}
	if cfg.AuthTimeout != 60*time.Second {
		t.Errorf("AuthTimeout = %v, want 60s", cfg.AuthTimeout)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 90s", cfg.IdleTimeout)
	}
	if cfg.CommandDeadline != 5*time.Second {
		t.Errorf("CommandDeadline = %v, want 5s", cfg.CommandDeadline)
	}

	if cfg.DatabaseMaxConn != 25 {
		t.Errorf("DatabaseMaxConn = %d, want 25", cfg.DatabaseMaxConn)
	}
	if cfg.DatabaseMinConn != 5 {
		t.Errorf("DatabaseMinConn = %d, want 5", cfg.DatabaseMinConn)
	}

	if cfg.Argon2Memory != 65536 {
		t.Errorf("Argon2Memory = %d, want 65536", cfg.Argon2Memory)
	}
	if cfg.Argon2Iterations != 3 {
		t.Errorf("Argon2Iterations = %d, want 3", cfg.Argon2Iterations)
	}
	if cfg.Argon2Parallelism != 2 {
		t.Errorf("Argon2Parallelism = %d, want 2", cfg.Argon2Parallelism)
	}
	if cfg.Argon2SaltLength != 16 {
		t.Errorf("Argon2SaltLength = %d, want 16", cfg.Argon2SaltLength)
	}
	if cfg.Argon2KeyLength != 32 {
		t.Errorf("Argon2KeyLength = %d, want 32", cfg.Argon2KeyLength)
	}

	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}

	if !cfg.DisposableEmailBlocklistEnabled {
		t.Error("DisposableEmailBlocklistEnabled = false, want true")
	}
	if cfg.DisposableEmailBlocklistURL == "" {
		t.Error("DisposableEmailBlocklistURL is empty, want default URL")
	}
	if cfg.DisposableEmailBlocklistRefreshInterval != 24*time.Hour {
		t.Errorf("DisposableEmailBlocklistRefreshInterval = %v, want 24h", cfg.DisposableEmailBlocklistRefreshInterval)
	}

	if cfg.LockoutThreshold != 5 {
		t.Errorf("LockoutThreshold = %d, want 5", cfg.LockoutThreshold)
	}
	if cfg.LockoutWindow != 15*time.Minute {
		t.Errorf("LockoutWindow = %v, want 15m", cfg.LockoutWindow)
	}

	if cfg.RateLimitAuthCapacity != 5 {
		t.Errorf("RateLimitAuthCapacity = %d, want 5", cfg.RateLimitAuthCapacity)
	}
	if cfg.RateLimitMessageCapacity != 20 {
		t.Errorf("RateLimitMessageCapacity = %d, want 20", cfg.RateLimitMessageCapacity)
	}
	if cfg.RateLimitRoomCreateCapacity != 5 {
		t.Errorf("RateLimitRoomCreateCapacity = %d, want 5", cfg.RateLimitRoomCreateCapacity)
	}
	if cfg.RateLimitGeneralCapacity != 60 {
		t.Errorf("RateLimitGeneralCapacity = %d, want 60", cfg.RateLimitGeneralCapacity)
	}
}

func TestLoadValidationRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for missing JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error %q does not mention JWT_SECRET", err.Error())
	}
}

func TestLoadValidationJWTSecretTooShort(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for short JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET must be at least 32 characters") {
		t.Errorf("error %q does not mention minimum length", err.Error())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_NAME", "Test Server")
	t.Setenv("SERVER_ENV", "development")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_MAX_CONNS", "50")
	t.Setenv("ARGON2_MEMORY", "131072")
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-32-chars!")
	t.Setenv("SESSION_TTL", "12h")
	t.Setenv("ABUSE_DISPOSABLE_EMAIL_BLOCKLIST_ENABLED", "false")
	t.Setenv("ABUSE_DISPOSABLE_EMAIL_BLOCKLIST_REFRESH_INTERVAL", "12h")
	t.Setenv("LOCKOUT_THRESHOLD", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerName != "Test Server" {
		t.Errorf("ServerName = %q, want %q", cfg.ServerName, "Test Server")
	}
	if cfg.ServerEnv != "development" {
		t.Errorf("ServerEnv = %q, want %q", cfg.ServerEnv, "development")
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.DatabaseMaxConn != 50 {
		t.Errorf("DatabaseMaxConn = %d, want 50", cfg.DatabaseMaxConn)
	}
	if cfg.Argon2Memory != 131072 {
		t.Errorf("Argon2Memory = %d, want 131072", cfg.Argon2Memory)
	}
	if cfg.JWTSecret != "test-secret-key-that-is-32-chars!" {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "test-secret-key-that-is-32-chars!")
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
	if cfg.DisposableEmailBlocklistEnabled {
		t.Error("DisposableEmailBlocklistEnabled = true, want false")
	}
	if cfg.DisposableEmailBlocklistRefreshInterval != 12*time.Hour {
		t.Errorf("DisposableEmailBlocklistRefreshInterval = %v, want 12h", cfg.DisposableEmailBlocklistRefreshInterval)
	}
	if cfg.LockoutThreshold != 10 {
		t.Errorf("LockoutThreshold = %d, want 10", cfg.LockoutThreshold)
	}
	// development mode overrides ServerURL to point at localhost:HTTPPort
	if cfg.ServerURL != "http://localhost:9090" {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, "http://localhost:9090")
	}
}

func TestLoadInvalidInt(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-defaults-minimum-32")
	t.Setenv("TCP_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "TCP_PORT") {
		t.Errorf("error %q does not mention TCP_PORT", err.Error())
	}
	if !strings.Contains(err.Error(), "not-a-number") {
		t.Errorf("error %q does not include the invalid value", err.Error())
	}
}

func TestLoadInvalidBool(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-defaults-minimum-32")
	t.Setenv("LOG_HEALTH_REQUESTS", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "LOG_HEALTH_REQUESTS") {
		t.Errorf("error %q does not mention LOG_HEALTH_REQUESTS", err.Error())
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-defaults-minimum-32")
	t.Setenv("SESSION_TTL", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "SESSION_TTL") {
		t.Errorf("error %q does not mention SESSION_TTL", err.Error())
	}
}

func TestLoadMultipleErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-defaults-minimum-32")
	t.Setenv("TCP_PORT", "abc")
	t.Setenv("DATABASE_MAX_CONNS", "xyz")
	t.Setenv("LOG_HEALTH_REQUESTS", "nope")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want multiple parse errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "TCP_PORT") {
		t.Errorf("error missing TCP_PORT, got: %s", errStr)
	}
	if !strings.Contains(errStr, "DATABASE_MAX_CONNS") {
		t.Errorf("error missing DATABASE_MAX_CONNS, got: %s", errStr)
	}
	if !strings.Contains(errStr, "LOG_HEALTH_REQUESTS") {
		t.Errorf("error missing LOG_HEALTH_REQUESTS, got: %s", errStr)
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"", false},
		{"staging", false},
	}
	for _, tt := range tests {
		cfg := &Config{ServerEnv: tt.env}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() with env=%q = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestLoadTimeoutOrderingValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-defaults-minimum-32")
	t.Setenv("TCP_AUTH_TIMEOUT", "10s")
	t.Setenv("TCP_HANDSHAKE_TIMEOUT", "30s")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for auth timeout shorter than handshake timeout")
	}
	if !strings.Contains(err.Error(), "TCP_AUTH_TIMEOUT") {
		t.Errorf("error %q does not mention TCP_AUTH_TIMEOUT", err.Error())
	}
}
