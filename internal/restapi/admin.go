package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

// AdminStats handles GET /api/v1/admin/stats.
func (h *Handler) AdminStats(c fiber.Ctx) error {
	cmd := engine.Command{Kind: engine.CmdAdminStats, AdminStats: &engine.AdminStatsPayload{}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// AdminBanUser handles POST /api/v1/admin/users/:id/ban.
func (h *Handler) AdminBanUser(c fiber.Ctx) error {
	id, err := domain.ParseUserID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid user id")
	}
	cmd := engine.Command{Kind: engine.CmdAdminBanUser, AdminBanUser: &engine.AdminBanUserPayload{UserID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// AdminUnbanUser handles POST /api/v1/admin/users/:id/unban.
func (h *Handler) AdminUnbanUser(c fiber.Ctx) error {
	id, err := domain.ParseUserID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid user id")
	}
	cmd := engine.Command{Kind: engine.CmdAdminUnbanUser, AdminUnbanUser: &engine.AdminUnbanUserPayload{UserID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// AdminDeleteRoom handles DELETE /api/v1/admin/rooms/:id.
func (h *Handler) AdminDeleteRoom(c fiber.Ctx) error {
	id, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	cmd := engine.Command{Kind: engine.CmdAdminDeleteRoom, AdminDeleteRoom: &engine.AdminDeleteRoomPayload{RoomID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}
