package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// GetMe handles GET /api/v1/users/me.
func (h *Handler) GetMe(c fiber.Ctx) error {
	ac, ok := callerFrom(c).(engine.AuthenticatedCaller)
	if !ok {
		return httputil.FailErr(c, apperr.Unauthorized(""))
	}

	cmd := engine.Command{Kind: engine.CmdGetUser, GetUser: &engine.GetUserPayload{UserID: ac.UserID}}
	return h.dispatch(c, cmd, ac, fiber.StatusOK)
}

// GetUser handles GET /api/v1/users/:id.
func (h *Handler) GetUser(c fiber.Ctx) error {
	id, err := domain.ParseUserID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid user id")
	}

	cmd := engine.Command{Kind: engine.CmdGetUser, GetUser: &engine.GetUserPayload{UserID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// ListUsers handles GET /api/v1/users, filtered by the optional
// ?username=&role=&banned= query parameters.
func (h *Handler) ListUsers(c fiber.Ctx) error {
	filter := repo.UserFilter{UsernamePrefix: c.Query("username")}
	if v := c.Query("role"); v != "" {
		if role, ok := domain.ParseRole(v); ok {
			filter.Role = &role
		}
	}
	if v := c.Query("banned"); v != "" {
		banned := v == "true"
		filter.Banned = &banned
	}

	cmd := engine.Command{Kind: engine.CmdListUsers, ListUsers: &engine.ListUsersPayload{Filter: filter, Page: pagination(c)}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}
