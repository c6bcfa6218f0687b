package restapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/httputil"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c fiber.Ctx) error {
	var body registerRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdRegister, Register: &engine.RegisterPayload{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
		SourceIP: c.IP(),
	}}
	return h.dispatch(c, cmd, engine.AnonymousCaller{}, fiber.StatusCreated)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c fiber.Ctx) error {
	var body loginRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdLogin, Login: &engine.LoginPayload{
		Identifier: body.Identifier,
		Password:   body.Password,
		SourceIP:   c.IP(),
		Kind:       domain.SessionHTTP,
	}}
	return h.dispatch(c, cmd, engine.AnonymousCaller{}, fiber.StatusOK)
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(c fiber.Ctx) error {
	cmd := engine.Command{Kind: engine.CmdLogout, Logout: &engine.LogoutPayload{}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(c fiber.Ctx) error {
	cmd := engine.Command{Kind: engine.CmdRefresh, Refresh: &engine.RefreshPayload{}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles POST /api/v1/auth/change-password.
func (h *Handler) ChangePassword(c fiber.Ctx) error {
	var body changePasswordRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, apperr.CodeValidationFailed, "invalid request body")
	}

	cmd := engine.Command{Kind: engine.CmdChangePassword, ChangePassword: &engine.ChangePasswordPayload{
		OldPassword: body.OldPassword,
		NewPassword: body.NewPassword,
	}}
	return h.dispatch(c, cmd, callerFrom(c), fiber.StatusOK)
}
