package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

// SendMessage handles POST /api/v1/messages. The request body matches
// engine.SendMessagePayload directly: {"target": {"target_type": ...,
// "target_id": ...}, "content": ...}.
func (h *Handler) SendMessage(c fiber.Ctx) error {
	var payload engine.SendMessagePayload
	if err := c.Bind().Body(&payload); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdSendMessage, SendMessage: &payload}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusCreated)
}

// ListMessages handles GET /api/v1/messages?target_type=room|direct_message&target_id=....
func (h *Handler) ListMessages(c fiber.Ctx) error {
	target, err := targetFromQuery(c)
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid target")
	}

	cmd := engine.Command{Kind: engine.CmdListMessages, ListMessages: &engine.ListMessagesPayload{
		Target: target, Page: pagination(c),
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// EditMessage handles PATCH /api/v1/messages/:id.
func (h *Handler) EditMessage(c fiber.Ctx) error {
	id, err := domain.ParseMessageID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid message id")
	}

	var body editMessageRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdEditMessage, EditMessage: &engine.EditMessagePayload{
		MessageID: id, Content: body.Content,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// DeleteMessage handles DELETE /api/v1/messages/:id.
func (h *Handler) DeleteMessage(c fiber.Ctx) error {
	id, err := domain.ParseMessageID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid message id")
	}

	cmd := engine.Command{Kind: engine.CmdDeleteMessage, DeleteMessage: &engine.DeleteMessagePayload{MessageID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// targetFromQuery builds a domain.MessageTarget from the target_type/
// target_id query parameters GET /messages accepts.
func targetFromQuery(c fiber.Ctx) (domain.MessageTarget, error) {
	switch c.Query("target_type") {
	case "room":
		roomID, err := domain.ParseRoomID(c.Query("target_id"))
		if err != nil {
			return domain.MessageTarget{}, err
		}
		return domain.NewRoomTarget(roomID), nil
	case "direct_message":
		userID, err := domain.ParseUserID(c.Query("target_id"))
		if err != nil {
			return domain.MessageTarget{}, err
		}
		return domain.NewDirectMessageTarget(userID), nil
	default:
		return domain.MessageTarget{}, apperr.ValidationField("target_type", "invalid_format", "target_type must be room or direct_message")
	}
}
