package memory

import (
	"context"
	"sync"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// InvitationRepository is an in-memory repo.InvitationRepository. It
// enforces "at most one Pending invitation per (room, invitee)" on Create.
type InvitationRepository struct {
	mu          sync.RWMutex
	invitations map[domain.InvitationID]*domain.Invitation
}

func NewInvitationRepository() *InvitationRepository {
	return &InvitationRepository{invitations: make(map[domain.InvitationID]*domain.Invitation)}
}

func (r *InvitationRepository) Create(ctx context.Context, inv domain.Invitation) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invitations {
		if existing.RoomID == inv.RoomID && existing.InviteeID == inv.InviteeID && existing.Status == domain.InvitationPending {
			return nil, repo.NewError(repo.ErrKindConflict, "pending_invitation", errConflict)
		}
	}
	cp := inv
	r.invitations[inv.ID] = &cp
	out := cp
	return &out, nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id domain.InvitationID) (*domain.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invitations[id]
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	out := *inv
	return &out, nil
}

func (r *InvitationRepository) GetPending(ctx context.Context, roomID domain.RoomID, invitee domain.UserID) (*domain.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.invitations {
		if inv.RoomID == roomID && inv.InviteeID == invitee && inv.Status == domain.InvitationPending {
			out := *inv
			return &out, nil
		}
	}
	return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
}

func (r *InvitationRepository) ListPendingForUser(ctx context.Context, invitee domain.UserID) ([]domain.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Invitation
	for _, inv := range r.invitations {
		if inv.InviteeID == invitee && inv.Status == domain.InvitationPending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *InvitationRepository) SetStatus(ctx context.Context, id domain.InvitationID, status domain.InvitationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	inv.Status = status
	return nil
}
