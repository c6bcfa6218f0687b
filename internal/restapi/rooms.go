package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

type createRoomRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Settings    domain.RoomSettings `json:"settings"`
}

// CreateRoom handles POST /api/v1/rooms.
func (h *Handler) CreateRoom(c fiber.Ctx) error {
	var body createRoomRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdCreateRoom, CreateRoom: &engine.CreateRoomPayload{
		Name: body.Name, Description: body.Description, Settings: body.Settings,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusCreated)
}

// GetRoom handles GET /api/v1/rooms/:id.
func (h *Handler) GetRoom(c fiber.Ctx) error {
	id, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	cmd := engine.Command{Kind: engine.CmdGetRoom, GetRoom: &engine.GetRoomPayload{RoomID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// ListRooms handles GET /api/v1/rooms.
func (h *Handler) ListRooms(c fiber.Ctx) error {
	cmd := engine.Command{Kind: engine.CmdListRooms, ListRooms: &engine.ListRoomsPayload{
		Mine: c.Query("mine") == "true",
		Page: pagination(c),
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

type updateRoomRequest struct {
	Description *string              `json:"description,omitempty"`
	Settings    *domain.RoomSettings `json:"settings,omitempty"`
}

// UpdateRoom handles PATCH /api/v1/rooms/:id.
func (h *Handler) UpdateRoom(c fiber.Ctx) error {
	id, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}

	var body updateRoomRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdUpdateRoom, UpdateRoom: &engine.UpdateRoomPayload{
		RoomID: id, Description: body.Description, Settings: body.Settings,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// DeleteRoom handles DELETE /api/v1/rooms/:id.
func (h *Handler) DeleteRoom(c fiber.Ctx) error {
	id, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	cmd := engine.Command{Kind: engine.CmdDeleteRoom, DeleteRoom: &engine.DeleteRoomPayload{RoomID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// JoinRoom handles POST /api/v1/rooms/:id/join.
func (h *Handler) JoinRoom(c fiber.Ctx) error {
	id, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	cmd := engine.Command{Kind: engine.CmdJoinRoom, JoinRoom: &engine.JoinRoomPayload{RoomID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// LeaveRoom handles POST /api/v1/rooms/:id/leave.
func (h *Handler) LeaveRoom(c fiber.Ctx) error {
	id, err := domain.ParseRoomID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid room id")
	}
	cmd := engine.Command{Kind: engine.CmdLeaveRoom, LeaveRoom: &engine.LeaveRoomPayload{RoomID: id}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}
