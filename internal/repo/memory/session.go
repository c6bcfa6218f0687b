package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// SessionRepository is an in-memory repo.SessionRepository.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[domain.SessionID]*domain.Session)}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := session
	r.sessions[session.ID] = &cp
	out := cp
	return &out, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	out := *s
	return &out, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	s.Revoked = true
	return nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, id domain.SessionID, lastActive time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	s.LastActive = lastActive
	return nil
}
