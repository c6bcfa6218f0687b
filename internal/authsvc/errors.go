package authsvc

import "github.com/lair-chat/lair-chat-server/internal/apperr"

// Sentinel apperr values returned by Service methods,
var (
	errInvalidCredentials = apperr.New(apperr.CodeInvalidCreds, "invalid username/email or password")
	errAccountLocked = apperr.New(apperr.CodeAccountLocked, "account temporarily locked after too many failed attempts")
	errAccountBanned = apperr.New(apperr.CodeAccountBanned, "this account has been banned")
	errTokenExpired = apperr.New(apperr.CodeTokenExpired, "session token has expired")
	errSessionRevoked = apperr.New(apperr.CodeSessionRevoked, "session has been revoked")
)
