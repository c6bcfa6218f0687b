package engine

import "github.com/lair-chat/lair-chat-server/internal/domain"

// Caller identifies who is invoking a Command. Register, Login,
// Authenticate, Ping and Pong accept AnonymousCaller; every other command
// requires AuthenticatedCaller.
type Caller interface {
	isCaller()
}

// AuthenticatedCaller is a Caller backed by a valid, non-revoked session.
type AuthenticatedCaller struct {
	SessionID domain.SessionID
	UserID domain.UserID
	Role domain.Role
}

func (AuthenticatedCaller) isCaller() {}

// AnonymousCaller is the pre-authentication Caller used by Register and
// Login.
type AnonymousCaller struct{}

func (AnonymousCaller) isCaller() {}
