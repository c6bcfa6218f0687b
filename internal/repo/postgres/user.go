package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

const userSelectColumns = `id, username, email, password_hash, role, banned, created_at, updated_at`

// UserRepository implements repo.UserRepository using PostgreSQL, with the
// same scan-row/cursor shape as the rest of this package applied to the
// account schema.
type UserRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db *pgxpool.Pool, logger zerolog.Logger) *UserRepository {
	return &UserRepository{db: db, log: logger}
}

func scanUserRecord(row pgx.Row) (*repo.UserRecord, error) {
	var rec repo.UserRecord
	var id uuid.UUID
	var username, email string
	var role int

	err := row.Scan(&id, &username, &email, &rec.PasswordHash, &role, &rec.Banned, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rec.ID = domain.UserID(id)
	if rec.Username, err = domain.NewUsername(username); err != nil {
		return nil, fmt.Errorf("scan username %q: %w", username, err)
	}
	if rec.Email, err = domain.NewEmail(email); err != nil {
		return nil, fmt.Errorf("scan email %q: %w", email, err)
	}
	rec.Role = domain.Role(role)
	return &rec, nil
}

func (r *UserRepository) Create(ctx context.Context, rec repo.UserRecord) (*repo.UserRecord, error) {
	id := uuid.UUID(rec.ID)
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO users (id, username, username_fold, email, password_hash, role, banned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		id, rec.Username.String(), rec.Username.Fold(), rec.Email.String(), rec.PasswordHash, int(rec.Role), rec.Banned,
	)

	out := rec
	out.ID = domain.UserID(id)
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		if IsUniqueViolation(err) {
			return nil, repo.NewError(repo.ErrKindConflict, "username_or_email", err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*repo.UserRecord, error) {
	rec, err := scanUserRecord(r.db.QueryRow(ctx,
		`SELECT `+userSelectColumns+` FROM users WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return rec, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username domain.Username) (*repo.UserRecord, error) {
	rec, err := scanUserRecord(r.db.QueryRow(ctx,
		`SELECT `+userSelectColumns+` FROM users WHERE username_fold = $1`, username.Fold()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query user by username: %w", err)
	}
	return rec, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email domain.Email) (*repo.UserRecord, error) {
	rec, err := scanUserRecord(r.db.QueryRow(ctx,
		`SELECT `+userSelectColumns+` FROM users WHERE email = $1`, email.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return rec, nil
}

// List returns accounts matching filter, newest-first, using the same
// two-branch before/no-before cursor shape as RoomRepository.ListPublic.
// Unlike GetByID/GetByUsername/GetByEmail, it scans straight into
// domain.User rather than repo.UserRecord — the password hash has no
// business leaving the repository for a list of accounts.
func (r *UserRepository) List(ctx context.Context, filter repo.UserFilter, page repo.Pagination) ([]domain.User, error) {
	limit := repo.ClampLimit(page.Limit)

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UsernamePrefix != "" {
		conds = append(conds, "username_fold LIKE "+arg(strings.ToLower(filter.UsernamePrefix)+"%"))
	}
	if filter.Role != nil {
		conds = append(conds, "role = "+arg(int(*filter.Role)))
	}
	if filter.Banned != nil {
		conds = append(conds, "banned = "+arg(*filter.Banned))
	}
	if page.Before != nil {
		beforeID, err := uuid.Parse(*page.Before)
		if err != nil {
			return nil, fmt.Errorf("parse cursor: %w", err)
		}
		conds = append(conds, "(created_at, id) < (SELECT created_at, id FROM users WHERE id = "+arg(beforeID)+")")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC, id DESC LIMIT $%d`,
		userSelectColumns, where, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		rec, err := scanUserRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, rec.User)
	}
	return out, rows.Err()
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id domain.UserID, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id domain.UserID, role domain.Role) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, int(role), uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) SetBanned(ctx context.Context, id domain.UserID, banned bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET banned = $1, updated_at = now() WHERE id = $2`, banned, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("update banned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}
