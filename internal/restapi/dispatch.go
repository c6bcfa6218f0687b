package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

// dispatch runs cmd through ChatEngine, fans out any resulting events, and
// writes the REST response. successStatus is used only when the command
// succeeds; a command error is always mapped through httputil.FailErr
// regardless of successStatus.
func (h *Handler) dispatch(c fiber.Ctx, cmd engine.Command, caller engine.Caller, successStatus int) error {
	ctx := c.Context()

	resp, evts, err := h.engine.Dispatch(ctx, cmd, caller)
	if err != nil {
		return httputil.FailErr(c, err)
	}

	for _, evt := range evts {
		h.dispatcher.Dispatch(ctx, evt)
	}

	return httputil.SuccessStatus(c, successStatus, responsePayload(resp))
}

// responsePayload returns the single populated payload field of resp, the
// REST twin of internal/wire's responsePayload.
func responsePayload(resp engine.Response) any {
	switch {
	case resp.Auth != nil:
		return resp.Auth
	case resp.User != nil:
		return resp.User
	case resp.Users != nil:
		return resp.Users
	case resp.Room != nil:
		return resp.Room
	case resp.Rooms != nil:
		return resp.Rooms
	case resp.Members != nil:
		return resp.Members
	case resp.Invitation != nil:
		return resp.Invitation
	case resp.Invitations != nil:
		return resp.Invitations
	case resp.Message != nil:
		return resp.Message
	case resp.Messages != nil:
		return resp.Messages
	case resp.DeletedMessage != nil:
		return resp.DeletedMessage
	case resp.Stats != nil:
		return resp.Stats
	case resp.AlreadyMember != nil:
		return resp.AlreadyMember
	case resp.NotRoomMember != nil:
		return resp.NotRoomMember
	default:
		return resp.Empty
	}
}
