package httputil

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
)

// SuccessResponse wraps successful API responses.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorBody holds structured error details, the REST twin of
// internal/wire.ErrorDTO.
type ErrorBody struct {
	Code apperr.Code `json:"code"`
	Message string `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse wraps failed API responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Success sends a 200 JSON response with the given data.
func Success(c fiber.Ctx, data any) error {
	return c.JSON(SuccessResponse{Data: data})
}

// SuccessStatus sends a JSON response with a custom status code.
func SuccessStatus(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessResponse{Data: data})
}

// Fail sends a JSON error response with the given status, code, and message.
func Fail(c fiber.Ctx, status int, code apperr.Code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// FailErr translates any error returned by ChatEngine.Dispatch into its REST
// response
// "structured object {code, message, details?}" contract. A non-*apperr.Error
// is a programming mistake somewhere upstream — every core operation is
// documented to return one — so it is reported as internal_error without its
// original message.
func FailErr(c fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return Fail(c, fiber.StatusInternalServerError, apperr.CodeInternal, "an internal error occurred")
	}

	if appErr.Code == apperr.CodeRateLimited {
		applyRateLimitHeaders(c, appErr.Details)
	}

	return c.Status(statusForCode(appErr.Code)).JSON(ErrorResponse{
		Error: ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details},
	})
}

// applyRateLimitHeaders sets Retry-After and X-RateLimit-* from the details
// attached by apperr.RateLimited / internal/ratelimit.Result.
func applyRateLimitHeaders(c fiber.Ctx, details map[string]any) {
	if retryAfter, ok := details["retry_after_seconds"].(int); ok {
		c.Set("Retry-After", strconv.Itoa(retryAfter))
	}
	if limit, ok := details["limit"].(int); ok {
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	}
	if remaining, ok := details["remaining"].(int); ok {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	}
}

// statusForCode maps apperr.Code to the HTTP status
// assigns it.
func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthorized, apperr.CodeInvalidCreds, apperr.CodeTokenExpired, apperr.CodeSessionRevoked:
		return fiber.StatusUnauthorized
	case apperr.CodePermissionDenied, apperr.CodeAccountBanned, apperr.CodeRoomPrivate, apperr.CodeNotInvitee:
		return fiber.StatusForbidden
	case apperr.CodeNotFound, apperr.CodeRoomNotFound, apperr.CodeMessageNotFound:
		return fiber.StatusNotFound
	case apperr.CodeConflict, apperr.CodeUsernameTaken, apperr.CodeEmailTaken, apperr.CodeAlreadyMember,
		apperr.CodeAlreadyInvited, apperr.CodeLastOwner, apperr.CodeVersionMismatch:
		return fiber.StatusConflict
	case apperr.CodeValidationFailed, apperr.CodeContentEmpty, apperr.CodeContentTooLong,
		apperr.CodeNotRoomMember, apperr.CodeRoomFull, apperr.CodeInvitationExpired, apperr.CodeInvitationUsed,
		apperr.CodeNotMessageAuthor, apperr.CodeAccountLocked:
		return fiber.StatusBadRequest
	case apperr.CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
