package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

type inviteToRoomRequest struct {
	RoomID    string `json:"room_id"`
	InviteeID string `json:"invitee_id"`
	ExpiresIn *int64 `json:"expires_in,omitempty"`
}

// InviteToRoom handles POST /api/v1/invitations.
func (h *Handler) InviteToRoom(c fiber.Ctx) error {
	var body inviteToRoomRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	roomID, err := domain.ParseRoomID(body.RoomID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	inviteeID, err := domain.ParseUserID(body.InviteeID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid invitee id")
	}

	cmd := engine.Command{Kind: engine.CmdInviteToRoom, InviteToRoom: &engine.InviteToRoomPayload{
		RoomID: roomID, InviteeID: inviteeID, ExpiresIn: body.ExpiresIn,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusCreated)
}

// ListInvitations handles GET /api/v1/invitations.
func (h *Handler) ListInvitations(c fiber.Ctx) error {
	cmd := engine.Command{Kind: engine.CmdListInvitations, ListInvitations: &engine.ListInvitationsPayload{}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// AcceptInvitation handles POST /api/v1/invitations/:id/accept.
func (h *Handler) AcceptInvitation(c fiber.Ctx) error {
	id, err := domain.ParseInvitationID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid invitation id")
	}
	cmd := engine.Command{Kind: engine.CmdAcceptInvitation, AcceptInvitation: &engine.AcceptInvitationPayload{InvitationID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// DeclineInvitation handles POST /api/v1/invitations/:id/decline.
func (h *Handler) DeclineInvitation(c fiber.Ctx) error {
	id, err := domain.ParseInvitationID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid invitation id")
	}
	cmd := engine.Command{Kind: engine.CmdDeclineInvitation, DeclineInvitation: &engine.DeclineInvitationPayload{InvitationID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}
