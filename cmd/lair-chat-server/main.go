package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/config"
	"github.com/lair-chat/lair-chat-server/internal/disposable"
	"github.com/lair-chat/lair-chat-server/internal/dispatch"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/ratelimit"
	"github.com/lair-chat/lair-chat-server/internal/repo/postgres"
	"github.com/lair-chat/lair-chat-server/internal/restapi"
	"github.com/lair-chat/lair-chat-server/internal/session"
	"github.com/lair-chat/lair-chat-server/internal/tcpproto"
	"github.com/lair-chat/lair-chat-server/internal/valkey"
	"github.com/lair-chat/lair-chat-server/internal/wsgateway"
)

// Build metadata injected via ldflags at compile time.
var (
	version = "dev"
	commit = "unknown"
	date = "unknown"
)

// sweepInterval is how often the session registry is swept for expired
// entries.
const sweepInterval = 30 * time.Second

// valkeyDialTimeout bounds the initial Valkey connection attempt; config.Config
// has no separate knob for it since this repo treats Valkey as always
// co-located with the application.
const valkeyDialTimeout = 5 * time.Second

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Str("env", cfg.ServerEnv).
		Msg("Starting Lair Chat server")

	if cfg.CORSAllowOrigins == "*" {
		log.Warn().Msg("CORS_ALLOW_ORIGINS is set to a wildcard. Set an explicit origin when in production.")
	}

	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConn, cfg.DatabaseMinConn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("Database migrations complete")

	rdb, err := valkey.Connect(ctx, cfg.ValkeyURL, valkeyDialTimeout)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	log.Info().Msg("Valkey connected")

	// The disposable email blocklist has no built-in refresh loop; Prefetch
	// just loads the list once. A ticker here re-fetches on the configured
	// interval so newly added disposable domains are picked up without a
	// restart.
	blocklist := disposable.NewBlocklist(cfg.DisposableEmailBlocklistURL, cfg.DisposableEmailBlocklistEnabled)
	blocklist.Prefetch(ctx)

	// bg supervises every long-running background loop (blocklist refresh,
	// session sweep, the TCP accept loop) under one cancellation: if any of
	// them returns a non-nil error the group context is cancelled, which in
	// turn unwinds the rest and the process exits rather than limping along
	// with a dead background service. shutdownCancel additionally lets the
	// signal handler below tear the same group down on SIGINT/SIGTERM.
	shutdownCtx, shutdownCancel := context.WithCancel(ctx)
	defer shutdownCancel()
	bg, subCtx := errgroup.WithContext(shutdownCtx)

	if cfg.DisposableEmailBlocklistEnabled {
		bg.Go(func() error {
			runOnInterval(subCtx, cfg.DisposableEmailBlocklistRefreshInterval, blocklist.Prefetch)
			return nil
		})
	}

	users := postgres.NewUserRepository(db, log.Logger)
	rooms := postgres.NewRoomRepository(db, log.Logger)
	messages := postgres.NewMessageRepository(db, log.Logger)
	sessionRepo := postgres.NewSessionRepository(db, log.Logger)
	invitations := postgres.NewInvitationRepository(db, log.Logger)
	blocks := postgres.NewBlockRepository(db, log.Logger)

	authCfg := authsvc.Config{
		HashParams: authsvc.HashParams{
			Memory: cfg.Argon2Memory,
			Iterations: cfg.Argon2Iterations,
			Parallelism: cfg.Argon2Parallelism,
			SaltLength: cfg.Argon2SaltLength,
			KeyLength: cfg.Argon2KeyLength,
		},
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
		LockoutThreshold: cfg.LockoutThreshold,
		LockoutWindow: cfg.LockoutWindow,
	}
	auth, err := authsvc.New(users, sessionRepo, blocklist, authCfg, log.Logger, time.Now)
	if err != nil {
		return fmt.Errorf("build auth service: %w", err)
	}

	policies := ratelimit.Policies{
		ratelimit.CategoryAuth: {Capacity: cfg.RateLimitAuthCapacity, RefillInterval: time.Duration(cfg.RateLimitAuthRefillSecs) * time.Second},
		ratelimit.CategoryMessage: {Capacity: cfg.RateLimitMessageCapacity, RefillInterval: time.Duration(cfg.RateLimitMessageRefillSecs) * time.Second},
		ratelimit.CategoryRoomCreate: {Capacity: cfg.RateLimitRoomCreateCapacity, RefillInterval: time.Duration(cfg.RateLimitRoomCreateRefillSecs) * time.Second},
		ratelimit.CategoryGeneral: {Capacity: cfg.RateLimitGeneralCapacity, RefillInterval: time.Duration(cfg.RateLimitGeneralRefillSecs) * time.Second},
	}
	limiter := ratelimit.NewRedisLimiter(rdb, policies)

	registry := session.New()

	eng := engine.New(engine.Config{
		Auth: auth,
		Users: users,
		Rooms: rooms,
		Messages: messages,
		Invitations: invitations,
		Blocks: blocks,
		Limiter: limiter,
		Clock: time.Now,
		Logger: log.Logger,
	})

	dispatcher := dispatch.New(registry, rooms, messages, log.Logger)

	bg.Go(func() error {
		runOnIntervalNoErr(subCtx, sweepInterval, func(now time.Time) {
			expired := registry.Sweep(now)
			if len(expired) > 0 {
				log.Debug().Int("count", len(expired)).Msg("Swept expired sessions")
			}
			for _, userID := range expired {
				evt := events.New(events.UserOffline, now)
				evt.Presence = &events.PresencePayload{UserID: userID}
				dispatcher.Dispatch(subCtx, evt)
			}
		})
		return nil
	})

	tcpSrv := tcpproto.New(eng, dispatcher, registry, log.Logger)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.TCPPort))
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}
	bg.Go(func() error {
		return tcpSrv.Serve(subCtx, ln)
	})
	log.Info().Int("port", cfg.TCPPort).Msg("TCP wire listening")

	wsHandler := wsgateway.New(eng, dispatcher, registry, log.Logger)

	restHandler := restapi.New(eng, dispatcher, auth, users, db, rdb, log.Logger)

	app := fiber.New(fiber.Config{
		AppName: "Lair Chat",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Split(cfg.CORSAllowOrigins, ","),
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
	}))

	restHandler.Mount(app)
	app.Get("/api/v1/gateway", wsHandler.Upgrade)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-quit:
		case <-subCtx.Done():
		}
		log.Info().Msg("Shutting down server")
		shutdownCancel()
		_ = ln.Close()
		if err := bg.Wait(); err != nil {
			log.Warn().Err(err).Msg("Background service exited with error during shutdown")
		}
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer drainCancel()
		if err := app.ShutdownWithContext(drainCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	log.Info().Str("addr", addr).Msg("REST/WebSocket server listening")

	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runOnInterval calls fn on every tick until ctx is done, for best-effort
// background refreshes that should keep retrying rather than give up.
func runOnInterval(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// runOnIntervalNoErr is runOnInterval's variant for callbacks keyed on wall
// time rather than a context, used by the session registry sweep.
func runOnIntervalNoErr(ctx context.Context, interval time.Duration, fn func(time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(time.Now())
		}
	}
}
