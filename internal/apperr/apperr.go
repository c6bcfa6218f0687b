// Package apperr defines the stable error taxonomy exposed on the wire. Every
// fallible core operation returns one of these values rather than a bare Go
// error, so that wire adapters (TCP, REST) never need to interpret driver or
// internal error strings.
package apperr

import "fmt"

// Code is a stable, wire-visible error identifier.
type Code string

// Error codes in the stable wire-visible taxonomy.
const (
	CodeUnauthorized      Code = "unauthorized"
	CodePermissionDenied  Code = "permission_denied"
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeValidationFailed  Code = "validation_failed"
	CodeRateLimited       Code = "rate_limited"
	CodeInternal          Code = "internal_error"
	CodeUsernameTaken     Code = "username_taken"
	CodeEmailTaken        Code = "email_taken"
	CodeInvalidCreds      Code = "invalid_credentials"
	CodeAccountLocked     Code = "account_locked"
	CodeAccountBanned     Code = "account_banned"
	CodeRoomNotFound      Code = "room_not_found"
	CodeNotRoomMember     Code = "not_room_member"
	CodeRoomFull          Code = "room_full"
	CodeRoomPrivate       Code = "room_private"
	CodeAlreadyMember     Code = "already_member"
	CodeAlreadyInvited    Code = "already_invited"
	CodeLastOwner         Code = "last_owner"
	CodeInvitationExpired Code = "invitation_expired"
	CodeInvitationUsed    Code = "invitation_used"
	CodeNotInvitee        Code = "not_invitee"
	CodeMessageNotFound   Code = "message_not_found"
	CodeNotMessageAuthor  Code = "not_message_author"
	CodeContentEmpty      Code = "content_empty"
	CodeContentTooLong    Code = "content_too_long"
	CodeVersionMismatch   Code = "version_mismatch"
	CodeTokenExpired      Code = "token_expired"
	CodeSessionRevoked    Code = "session_revoked"
)

// Error is the structured, wire-safe error value returned by every fallible
// core operation. Message is always safe for direct display; internal causes
// (driver errors, stack traces) must never be attached here.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with no details.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails attaches a details map to a (copy of the) error.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Convenience constructors for the most frequently returned codes.

func Unauthorized(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message)
}

func PermissionDenied(message string) *Error {
	if message == "" {
		message = "you do not have permission to perform this action"
	}
	return New(CodePermissionDenied, message)
}

func NotFound(message string) *Error {
	if message == "" {
		message = "the requested resource was not found"
	}
	return New(CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// ValidationFailed builds a validation_failed error carrying the offending
// field and reason in Details.
func ValidationFailed(field, reason string) *Error {
	return New(CodeValidationFailed, reason).WithDetails(map[string]any{"field": field, "reason": reason})
}

// ValidationField builds a validation_failed error tagging which of the
// domain.ValidationError variants {empty, too_short, too_long,
// invalid_format} applies, plus any extra structured details (min/max/actual
// counts), and a human-readable message.
func ValidationField(field, variant, message string) *Error {
	return New(CodeValidationFailed, message).WithDetails(map[string]any{
		"field":   field,
		"variant": variant,
	})
}

// ValidationFieldf is ValidationField with extra structured details merged in
// and a printf-formatted message.
func ValidationFieldf(field, variant string, extra map[string]any, format string, args ...any) *Error {
	details := map[string]any{"field": field, "variant": variant}
	for k, v := range extra {
		details[k] = v
	}
	return New(CodeValidationFailed, fmt.Sprintf(format, args...)).WithDetails(details)
}

func RateLimited(retryAfterSeconds int, limit int) *Error {
	return New(CodeRateLimited, "rate limit exceeded").WithDetails(map[string]any{
		"retry_after_seconds": retryAfterSeconds,
		"limit":               limit,
		"remaining":           0,
	})
}

// Internal wraps an internal failure. cause is logged by the caller but never
// placed into the returned Error.
func Internal() *Error {
	return New(CodeInternal, "an internal error occurred")
}

// InternalTimeout is returned when a command's server-side deadline expires.
func InternalTimeout() *Error {
	return New(CodeInternal, "the request timed out").WithDetails(map[string]any{"timeout": true})
}

// Is reports whether err is an *Error with the given code, for use with
// errors.Is-style call sites that only care about the code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
