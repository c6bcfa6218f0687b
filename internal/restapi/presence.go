package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
	"github.com/lair-chat/lair-chat-server/internal/presence"
)

// presenceStore lazily builds an internal/presence.Store the first time a
// presence route is hit. It returns nil when the Handler was built without a
// Redis client (the in-memory test build), in which case presence routes
// report the endpoint as unavailable rather than panicking.
func (h *Handler) presenceStore() *presence.Store {
	if h.redis == nil {
		return nil
	}
	h.presenceOnce.Do(func() {
		h.presenceStoreVal = presence.NewStore(h.redis)
	})
	return h.presenceStoreVal
}

// GetPresence handles GET /api/v1/users/:id/presence: the voluntary status
// (online/idle/dnd/invisible/offline) layers on top of
// internal/session's connection-derived online/offline truth.
func (h *Handler) GetPresence(c fiber.Ctx) error {
	store := h.presenceStore()
	if store == nil {
		return httputil.Fail(c, fiber.StatusServiceUnavailable, apperr.CodeInternal, "presence store unavailable")
	}

	id, err := domain.ParseUserID(c.Params("id"))
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid user id")
	}

	status, err := store.Get(c.Context(), id)
	if err != nil {
		return httputil.Fail(c, fiber.StatusInternalServerError, apperr.CodeInternal, "presence lookup failed")
	}
	return httputil.Success(c, fiber.Map{"user_id": id.String(), "status": status})
}

// setPresenceRequest is the body PUT /api/v1/users/me/presence expects.
type setPresenceRequest struct {
	Status string `json:"status"`
}

// SetPresence handles PUT /api/v1/users/me/presence.
func (h *Handler) SetPresence(c fiber.Ctx) error {
	ac, ok := callerFrom(c).(engine.AuthenticatedCaller)
	if !ok {
		return httputil.FailErr(c, apperr.Unauthorized(""))
	}

	store := h.presenceStore()
	if store == nil {
		return httputil.Fail(c, fiber.StatusServiceUnavailable, apperr.CodeInternal, "presence store unavailable")
	}

	var req setPresenceRequest
	if err := c.Bind().Body(&req); err != nil || !presence.ValidStatus(req.Status) {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "status must be one of online, idle, dnd, invisible")
	}

	if err := store.Set(c.Context(), ac.UserID, req.Status); err != nil {
		return httputil.Fail(c, fiber.StatusInternalServerError, apperr.CodeInternal, "failed to set presence")
	}
	return httputil.SuccessStatus(c, fiber.StatusOK, fiber.Map{"user_id": ac.UserID.String(), "status": req.Status})
}

// typingRequest is the body POST /api/v1/presence/typing expects, matching
// SendMessagePayload's nested target shape.
type typingRequest struct {
	Target domain.MessageTarget `json:"target"`
}

// SetTyping handles POST /api/v1/presence/typing: records that the caller
// started typing toward target, coalescing repeats within the 3-second
// window. internal/dispatch is not involved
// here — fan-out of the resulting typing indicator to other session
// connections is a transport-layer concern for whichever of
// internal/tcpproto or internal/wsgateway the recipients are attached to,
// not something the stateless REST surface can push.
func (h *Handler) SetTyping(c fiber.Ctx) error {
	ac, ok := callerFrom(c).(engine.AuthenticatedCaller)
	if !ok {
		return httputil.FailErr(c, apperr.Unauthorized(""))
	}

	store := h.presenceStore()
	if store == nil {
		return httputil.Fail(c, fiber.StatusServiceUnavailable, apperr.CodeInternal, "presence store unavailable")
	}

	var req typingRequest
	if err := c.Bind().Body(&req); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	started, err := store.SetTyping(c.Context(), req.Target, ac.UserID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusInternalServerError, apperr.CodeInternal, "failed to record typing state")
	}
	return httputil.SuccessStatus(c, fiber.StatusOK, fiber.Map{"coalesced": !started})
}
