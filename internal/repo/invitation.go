package repo

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// InvitationRepository is the data-access contract for room invitations
// Implementations must enforce at most one Pending invitation per
// (room, invitee) pair, returning a conflict when Create would violate it.
type InvitationRepository interface {
	Create(ctx context.Context, inv domain.Invitation) (*domain.Invitation, error)
	GetByID(ctx context.Context, id domain.InvitationID) (*domain.Invitation, error)
	GetPending(ctx context.Context, roomID domain.RoomID, invitee domain.UserID) (*domain.Invitation, error)
	ListPendingForUser(ctx context.Context, invitee domain.UserID) ([]domain.Invitation, error)
	SetStatus(ctx context.Context, id domain.InvitationID, status domain.InvitationStatus) error
}
