package repo

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// UserRecord is a User joined with its credential hash, the shape a
// UserRepository reads and writes. The hash never leaves this package's
// boundary into domain.User.
type UserRecord struct {
	domain.User
	PasswordHash string
}

// UserFilter narrows List to a subset of accounts. A zero-value UserFilter
// matches every user. UsernamePrefix matches case-folded, so "ali" matches
// "Alice".
type UserFilter struct {
	UsernamePrefix string `json:"username_prefix,omitempty"`
	Role *domain.Role `json:"role,omitempty"`
	Banned *bool `json:"banned,omitempty"`
}

// UserRepository is the data-access contract for account storage.
// Username and email uniqueness is case-folded: implementations must treat
// two usernames equal under domain.Username.Fold, or two emails with the same
// (already lowercased) domain.Email value, as a conflict.
type UserRepository interface {
	Create(ctx context.Context, rec UserRecord) (*UserRecord, error)
	GetByID(ctx context.Context, id domain.UserID) (*UserRecord, error)
	GetByUsername(ctx context.Context, username domain.Username) (*UserRecord, error)
	GetByEmail(ctx context.Context, email domain.Email) (*UserRecord, error)
	// List returns accounts matching filter, newest-first and
	// cursor-paginated like every other list operation in this package.
	List(ctx context.Context, filter UserFilter, page Pagination) ([]domain.User, error)
	UpdatePasswordHash(ctx context.Context, id domain.UserID, hash string) error
	UpdateRole(ctx context.Context, id domain.UserID, role domain.Role) error
	SetBanned(ctx context.Context, id domain.UserID, banned bool) error
}
