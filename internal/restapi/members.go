package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

// ListMembers handles GET /api/v1/rooms/:id/members.
func (h *Handler) ListMembers(c fiber.Ctx) error {
	roomID, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	cmd := engine.Command{Kind: engine.CmdListMembers, ListMembers: &engine.ListMembersPayload{RoomID: roomID}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

type changeMemberRoleRequest struct {
	Role string `json:"role"`
}

// ChangeMemberRole handles PUT /api/v1/rooms/:id/members/:user_id/role.
func (h *Handler) ChangeMemberRole(c fiber.Ctx) error {
	roomID, userID, err := parseRoomMemberParams(c)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room or user id")
	}

	var body changeMemberRoleRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}
	role, ok := domain.ParseRoomRole(body.Role)
	if !ok {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid role")
	}

	cmd := engine.Command{Kind: engine.CmdChangeMemberRole, ChangeMemberRole: &engine.ChangeMemberRolePayload{
		RoomID: roomID, UserID: userID, Role: role,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// RemoveMember handles DELETE /api/v1/rooms/:id/members/:user_id.
func (h *Handler) RemoveMember(c fiber.Ctx) error {
	roomID, userID, err := parseRoomMemberParams(c)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room or user id")
	}

	cmd := engine.Command{Kind: engine.CmdRemoveMember, RemoveMember: &engine.RemoveMemberPayload{
		RoomID: roomID, UserID: userID,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

func parseRoomMemberParams(c fiber.Ctx) (domain.RoomID, domain.UserID, error) {
	roomID, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return domain.RoomID{}, domain.UserID{}, err
	}
	userID, err := domain.ParseUserID(c.Params("user_id"))
	if err != nil {
		return domain.RoomID{}, domain.UserID{}, err
	}
	return roomID, userID, nil
}
