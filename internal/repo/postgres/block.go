package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// BlockRepository implements repo.BlockRepository using PostgreSQL.
type BlockRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewBlockRepository(db *pgxpool.Pool, logger zerolog.Logger) *BlockRepository {
	return &BlockRepository{db: db, log: logger}
}

func (r *BlockRepository) Block(ctx context.Context, blocker, blocked domain.UserID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO blocks (blocker_id, blocked_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		uuid.UUID(blocker), uuid.UUID(blocked))
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (r *BlockRepository) Unblock(ctx context.Context, blocker, blocked domain.UserID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		uuid.UUID(blocker), uuid.UUID(blocked))
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

func (r *BlockRepository) IsBlocked(ctx context.Context, blocker, blocked domain.UserID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)`,
		uuid.UUID(blocker), uuid.UUID(blocked),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return exists, nil
}
