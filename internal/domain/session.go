package domain

import "time"

// Session is a server-side record proving a user is authenticated on some
// wire. A Session is valid iff now <= ExpiresAt and it has not been revoked.
type Session struct {
	ID         SessionID   `json:"id"`
	UserID     UserID      `json:"user_id"`
	Kind       SessionKind `json:"kind"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	LastActive time.Time   `json:"last_active"`
	Revoked    bool        `json:"revoked"`
}

// Valid reports whether the session is usable at instant now.
func (s Session) Valid(now time.Time) bool {
	return !s.Revoked && !now.After(s.ExpiresAt)
}
