package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

const sessionSelectColumns = `id, user_id, kind, created_at, expires_at, last_active, revoked`

// SessionRepository implements repo.SessionRepository using PostgreSQL. It
// persists the authentication fact session.Registry tracks live, so
// refresh tokens survive a process restart.
type SessionRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewSessionRepository(db *pgxpool.Pool, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{db: db, log: logger}
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var id, userID uuid.UUID
	var kind int

	err := row.Scan(&id, &userID, &kind, &s.CreatedAt, &s.ExpiresAt, &s.LastActive, &s.Revoked)
	if err != nil {
		return nil, err
	}
	s.ID = domain.SessionID(id)
	s.UserID = domain.UserID(userID)
	s.Kind = domain.SessionKind(kind)
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) (*domain.Session, error) {
	id := uuid.UUID(session.ID)
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, kind, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, last_active`,
		id, uuid.UUID(session.UserID), int(session.Kind), session.ExpiresAt,
	)

	out := session
	out.ID = domain.SessionID(id)
	if err := row.Scan(&out.CreatedAt, &out.LastActive); err != nil {
		if IsForeignKeyViolation(err) {
			return nil, repo.NewError(repo.ErrKindIntegrityViolation, "", err)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &out, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionSelectColumns+` FROM sessions WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query session by id: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id domain.SessionID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET revoked = true WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID domain.UserID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET revoked = true WHERE user_id = $1 AND revoked = false`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("revoke all sessions for user: %w", err)
	}
	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, id domain.SessionID, lastActive time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET last_active = $1 WHERE id = $2`, lastActive, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}
