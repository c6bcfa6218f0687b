package repo

import (
	"context"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// SessionRepository is the durable record of issued sessions, used to
// survive process restarts and to validate refresh tokens. The live,
// in-memory view of which sessions are currently connected is the separate
// session.Registry; this repository only persists the authentication
// fact, not the transport connection.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (*domain.Session, error)
	GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	Revoke(ctx context.Context, id domain.SessionID) error
	RevokeAllForUser(ctx context.Context, userID domain.UserID) error
	Touch(ctx context.Context, id domain.SessionID, lastActive time.Time) error
}
