package restapi

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/engine"
)

const localsCaller = "caller"

// authenticate resolves the Authorization: Bearer <token> header into an
// engine.Caller and stores it in Locals. A missing or
// invalid token resolves to AnonymousCaller rather than rejecting the
// request outright — ChatEngine.Dispatch itself rejects commands that
// require authentication via requireAuthenticated, so a REST request for a
// public endpoint (register, login, health) never needs a token at all.
func (h *Handler) authenticate(c fiber.Ctx) error {
	c.Locals(localsCaller, engine.Caller(engine.AnonymousCaller{}))

	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Next()
	}

	caller, err := h.callerFromToken(c.Context(), token)
	if err == nil {
		c.Locals(localsCaller, caller)
	}
	return c.Next()
}

func (h *Handler) callerFromToken(ctx context.Context, token string) (engine.Caller, error) {
	session, err := h.auth.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	rec, err := h.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return engine.AuthenticatedCaller{SessionID: session.ID, UserID: session.UserID, Role: rec.Role}, nil
}

func callerFrom(c fiber.Ctx) engine.Caller {
	if caller, ok := c.Locals(localsCaller).(engine.Caller); ok {
		return caller
	}
	return engine.AnonymousCaller{}
}
