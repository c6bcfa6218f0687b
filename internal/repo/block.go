package repo

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// BlockRepository backs the "blocked users" open question from spec section
// 9: it exists only so SendMessage's direct-message authorization step can
// check whether the recipient has blocked the sender. There is no REST or
// wire surface for managing blocks; internal/repo/memory and
// internal/repo/postgres implement it.
type BlockRepository interface {
	Block(ctx context.Context, blocker, blocked domain.UserID) error
	Unblock(ctx context.Context, blocker, blocked domain.UserID) error
	IsBlocked(ctx context.Context, blocker, blocked domain.UserID) (bool, error)
}
