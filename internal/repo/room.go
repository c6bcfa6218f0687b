package repo

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// RoomRepository is the data-access contract for rooms and their
// memberships. Implementations must enforce, at the storage layer,
// that a room always keeps at least one Owner membership: callers rely on
// RemoveMember and ChangeMemberRole returning a conflict rather than
// silently leaving a room ownerless.
type RoomRepository interface {
	Create(ctx context.Context, room domain.Room, owner domain.UserID) (*domain.Room, error)
	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetByName(ctx context.Context, name domain.RoomName) (*domain.Room, error)
	Update(ctx context.Context, id domain.RoomID, settings domain.RoomSettings, description string) (*domain.Room, error)
	// Delete removes a room. archiveMessages is always passed true by the
	// core; implementations must retain historical messages under the
	// deleted room's id rather than purging them, while never exposing them
	// through ListByRoom again (the room no longer exists to list against).
	Delete(ctx context.Context, id domain.RoomID, archiveMessages bool) error
	ListPublic(ctx context.Context, page Pagination) ([]domain.Room, error)
	ListForUser(ctx context.Context, userID domain.UserID, page Pagination) ([]domain.Room, error)

	AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.RoomRole) (*domain.RoomMembership, error)
	RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	ChangeMemberRole(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.RoomRole) error
	GetMembership(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.RoomMembership, error)
	ListMembers(ctx context.Context, roomID domain.RoomID) ([]domain.RoomMembership, error)
	CountMembers(ctx context.Context, roomID domain.RoomID) (int, error)

	// RoomIDsForUser returns every room a user belongs to, unpaginated. It
	// exists alongside ListForUser for internal/dispatch's audience
	// computation , which needs the complete membership
	// set rather than a page of it.
	RoomIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.RoomID, error)
}
