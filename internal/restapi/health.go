package restapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

// Health handles GET /health: a bare liveness probe with no dependency
// checks, so it stays fast and cheap for an orchestrator's restart policy.
func (h *Handler) Health(c fiber.Ctx) error {
	return httputil.SuccessStatus(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}

// Ready handles GET /ready: pings storage and the cache. Either dependency
// left nil (the in-memory repository build) is reported "ok" without a
// ping.
func (h *Handler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	pgStatus := "ok"
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			pgStatus = "unavailable"
		}
	}

	redisStatus := "ok"
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unavailable"
		}
	}

	overall := "ok"
	status := fiber.StatusOK
	if pgStatus != "ok" || redisStatus != "ok" {
		overall = "degraded"
		status = fiber.StatusServiceUnavailable
	}

	return httputil.SuccessStatus(c, status, fiber.Map{
		"status":   overall,
		"postgres": pgStatus,
		"valkey":   redisStatus,
	})
}
