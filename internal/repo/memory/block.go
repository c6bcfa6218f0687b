package memory

import (
	"context"
	"sync"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

type blockKey struct {
	blocker domain.UserID
	blocked domain.UserID
}

// BlockRepository is an in-memory repo.BlockRepository.
type BlockRepository struct {
	mu     sync.RWMutex
	blocks map[blockKey]struct{}
}

func NewBlockRepository() *BlockRepository {
	return &BlockRepository{blocks: make(map[blockKey]struct{})}
}

func (r *BlockRepository) Block(ctx context.Context, blocker, blocked domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[blockKey{blocker, blocked}] = struct{}{}
	return nil
}

func (r *BlockRepository) Unblock(ctx context.Context, blocker, blocked domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, blockKey{blocker, blocked})
	return nil
}

func (r *BlockRepository) IsBlocked(ctx context.Context, blocker, blocked domain.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blocks[blockKey{blocker, blocked}]
	return ok, nil
}
