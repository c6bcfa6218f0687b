package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// MessageRepository is an in-memory repo.MessageRepository.
type MessageRepository struct {
	mu       sync.RWMutex
	messages map[domain.MessageID]*domain.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[domain.MessageID]*domain.Message)}
}

func (r *MessageRepository) Create(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := msg
	r.messages[msg.ID] = &cp
	out := cp
	return &out, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.messages[id]
	if !ok || msg.Deleted {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	out := *msg
	return &out, nil
}

func (r *MessageRepository) ListByRoom(ctx context.Context, roomID domain.RoomID, page repo.Pagination) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.Target.Kind == domain.TargetRoom && msg.Target.RoomID == roomID && !msg.Deleted {
			out = append(out, *msg)
		}
	}
	return paginateMessages(out, page), nil
}

func (r *MessageRepository) ListDirect(ctx context.Context, a, b domain.UserID, page repo.Pagination) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := domain.NewDirectMessageTarget(b).Key(a)
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.Target.Kind != domain.TargetDirectMessage || msg.Deleted {
			continue
		}
		if msg.Target.Key(msg.AuthorID) == key {
			out = append(out, *msg)
		}
	}
	return paginateMessages(out, page), nil
}

func (r *MessageRepository) DMPartners(ctx context.Context, a domain.UserID) ([]domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.UserID]struct{})
	for _, msg := range r.messages {
		if msg.Target.Kind != domain.TargetDirectMessage {
			continue
		}
		var other domain.UserID
		switch a {
		case msg.AuthorID:
			other = msg.Target.RecipientID
		case msg.Target.RecipientID:
			other = msg.AuthorID
		default:
			continue
		}
		seen[other] = struct{}{}
	}
	out := make([]domain.UserID, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	return out, nil
}

func paginateMessages(messages []domain.Message, page repo.Pagination) []domain.Message {
	sort.Slice(messages, func(i, j int) bool { return messages[i].CreatedAt.After(messages[j].CreatedAt) })
	limit := repo.ClampLimit(page.Limit)
	start := 0
	if page.Before != nil {
		for i, m := range messages {
			if m.ID.String() == *page.Before {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(messages) {
		end = len(messages)
	}
	if start > len(messages) {
		return nil
	}
	return messages[start:end]
}

func (r *MessageRepository) Update(ctx context.Context, id domain.MessageID, content domain.MessageContent, editedAt time.Time) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok || msg.Deleted {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &editedAt
	out := *msg
	return &out, nil
}

func (r *MessageRepository) SoftDelete(ctx context.Context, id domain.MessageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok || msg.Deleted {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	msg.Deleted = true
	msg.Content = domain.TombstoneContent()
	return nil
}
