// Package restapi translates the stateless REST surface onto
// internal/engine.ChatEngine, the same command router internal/tcpproto
// and internal/wsgateway dispatch against. Every mutating handler forwards
// the events ChatEngine returns to internal/dispatch, so a REST write fans
// out to connected TCP/WebSocket sessions exactly like a command issued
// over those transports would.
package restapi

import (
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/dispatch"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
	"github.com/lair-chat/lair-chat-server/internal/presence"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// Handler holds every dependency the REST surface needs to translate HTTP
// requests into engine.Command values and fan out the resulting events.
type Handler struct {
	engine *engine.ChatEngine
	dispatcher *dispatch.Dispatcher
	auth *authsvc.Service
	users repo.UserRepository
	db *pgxpool.Pool
	redis *redis.Client
	log zerolog.Logger

	presenceOnce sync.Once
	presenceStoreVal *presence.Store
}

// New builds a Handler. db and redisClient may be nil (the in-memory
// repository build has no pool to ping); Ready reports "ok" for either
// dependency left nil.
func New(eng *engine.ChatEngine, dispatcher *dispatch.Dispatcher, auth *authsvc.Service, users repo.UserRepository, db *pgxpool.Pool, redisClient *redis.Client, log zerolog.Logger) *Handler {
	return &Handler{engine: eng, dispatcher: dispatcher, auth: auth, users: users, db: db, redis: redisClient, log: log}
}

// Mount registers the /health and /ready probes at the root and every other
// REST route under /api/v1.
func (h *Handler) Mount(app *fiber.App) {
	app.Use(requestid.New())
	app.Use(httputil.RequestLogger(h.log))
	app.Use(h.authenticate)

	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/logout", h.Logout)
	authGroup.Post("/refresh", h.Refresh)
	authGroup.Post("/change-password", h.ChangePassword)

	users := v1.Group("/users")
	users.Get("/me", h.GetMe)
	users.Get("/", h.ListUsers)
	users.Get("/:id", h.GetUser)
	users.Get("/:id/presence", h.GetPresence)
	users.Put("/me/presence", h.SetPresence)

	rooms := v1.Group("/rooms")
	rooms.Post("/", h.CreateRoom)
	rooms.Get("/", h.ListRooms)
	rooms.Get("/:id", h.GetRoom)
	rooms.Patch("/:id", h.UpdateRoom)
	rooms.Delete("/:id", h.DeleteRoom)
	rooms.Post("/:id/join", h.JoinRoom)
	rooms.Post("/:id/leave", h.LeaveRoom)
	rooms.Get("/:id/members", h.ListMembers)
	rooms.Put("/:id/members/:user_id/role", h.ChangeMemberRole)
	rooms.Delete("/:id/members/:user_id", h.RemoveMember)

	messages := v1.Group("/messages")
	messages.Post("/", h.SendMessage)
	messages.Get("/", h.ListMessages)
	messages.Patch("/:id", h.EditMessage)
	messages.Delete("/:id", h.DeleteMessage)

	invitations := v1.Group("/invitations")
	invitations.Post("/", h.InviteToRoom)
	invitations.Get("/", h.ListInvitations)
	invitations.Post("/:id/accept", h.AcceptInvitation)
	invitations.Post("/:id/decline", h.DeclineInvitation)

	v1.Post("/presence/typing", h.SetTyping)

	admin := v1.Group("/admin")
	admin.Get("/stats", h.AdminStats)
	admin.Post("/users/:id/ban", h.AdminBanUser)
	admin.Post("/users/:id/unban", h.AdminUnbanUser)
	admin.Delete("/rooms/:id", h.AdminDeleteRoom)
}
