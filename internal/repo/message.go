package repo

import (
	"context"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// MessageRepository is the data-access contract for message storage.
// List returns messages newest-first; Before in the page request restricts
// to messages created strictly before the referenced message, the same
// cursor-pagination convention every list operation in this package uses.
type MessageRepository interface {
	Create(ctx context.Context, msg domain.Message) (*domain.Message, error)
	GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error)
	ListByRoom(ctx context.Context, roomID domain.RoomID, page Pagination) ([]domain.Message, error)
	ListDirect(ctx context.Context, a, b domain.UserID, page Pagination) ([]domain.Message, error)
	// DMPartners returns every user a has exchanged direct messages with,
	// unpaginated — internal/dispatch's audience computation needs the
	// complete set, not a page of conversation history.
	DMPartners(ctx context.Context, a domain.UserID) ([]domain.UserID, error)
	// Update sets new content on a non-deleted message, marks it edited, and
	// stamps EditedAt with editedAt (the caller's injected clock value, so
	// tests can use a fake clock rather than time.Now).
	Update(ctx context.Context, id domain.MessageID, content domain.MessageContent, editedAt time.Time) (*domain.Message, error)
	SoftDelete(ctx context.Context, id domain.MessageID) error
}
