// Package memory provides in-memory repo.* implementations backed by plain
// maps under sync.RWMutex, used by ChatEngine unit tests together with a
// fake clock.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// UserRepository is an in-memory repo.UserRepository.
type UserRepository struct {
	mu sync.RWMutex
	byID map[domain.UserID]*repo.UserRecord
	byUsername map[string]domain.UserID // keyed on Username.Fold()
	byEmail map[string]domain.UserID // keyed on Email value (already lowercased)
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID: make(map[domain.UserID]*repo.UserRecord),
		byUsername: make(map[string]domain.UserID),
		byEmail: make(map[string]domain.UserID),
	}
}

func (r *UserRepository) Create(ctx context.Context, rec repo.UserRecord) (*repo.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[rec.Username.Fold()]; ok {
		return nil, repo.NewError(repo.ErrKindConflict, "username", errConflict)
	}
	if _, ok := r.byEmail[rec.Email.String()]; ok {
		return nil, repo.NewError(repo.ErrKindConflict, "email", errConflict)
	}

	cp := rec
	r.byID[rec.ID] = &cp
	r.byUsername[rec.Username.Fold()] = rec.ID
	r.byEmail[rec.Email.String()] = rec.ID

	out := cp
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*repo.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	out := *rec
	return &out, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username domain.Username) (*repo.UserRecord, error) {
	r.mu.RLock()
	id, ok := r.byUsername[username.Fold()]
	r.mu.RUnlock()
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return r.GetByID(context.Background(), id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email domain.Email) (*repo.UserRecord, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email.String()]
	r.mu.RUnlock()
	if !ok {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return r.GetByID(context.Background(), id)
}

func (r *UserRepository) List(ctx context.Context, filter repo.UserFilter, page repo.Pagination) ([]domain.User, error) {
	r.mu.RLock()
	var out []domain.User
	prefix := strings.ToLower(filter.UsernamePrefix)
	for _, rec := range r.byID {
		if prefix != "" && !strings.HasPrefix(rec.Username.Fold(), prefix) {
			continue
		}
		if filter.Role != nil && rec.Role != *filter.Role {
			continue
		}
		if filter.Banned != nil && rec.Banned != *filter.Banned {
			continue
		}
		out = append(out, rec.User)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	limit := repo.ClampLimit(page.Limit)
	start := 0
	if page.Before != nil {
		for i, u := range out {
			if u.ID.String() == *page.Before {
				start = i + 1
				break
			}
		}
	}
	if start > len(out) {
		return nil, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id domain.UserID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	rec.PasswordHash = hash
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id domain.UserID, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	rec.Role = role
	return nil
}

func (r *UserRepository) SetBanned(ctx context.Context, id domain.UserID, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	rec.Banned = banned
	return nil
}
