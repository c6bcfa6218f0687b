package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

const invitationSelectColumns = `id, room_id, inviter_id, invitee_id, status, created_at, expires_at`

// InvitationRepository implements repo.InvitationRepository using
// PostgreSQL.
type InvitationRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewInvitationRepository(db *pgxpool.Pool, logger zerolog.Logger) *InvitationRepository {
	return &InvitationRepository{db: db, log: logger}
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	var id, roomID, inviterID, inviteeID uuid.UUID
	var status int

	err := row.Scan(&id, &roomID, &inviterID, &inviteeID, &status, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	inv.ID = domain.InvitationID(id)
	inv.RoomID = domain.RoomID(roomID)
	inv.InviterID = domain.UserID(inviterID)
	inv.InviteeID = domain.UserID(inviteeID)
	inv.Status = domain.InvitationStatus(status)
	return &inv, nil
}

func (r *InvitationRepository) Create(ctx context.Context, inv domain.Invitation) (*domain.Invitation, error) {
	id := uuid.UUID(inv.ID)
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO invitations (id, room_id, inviter_id, invitee_id, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		id, uuid.UUID(inv.RoomID), uuid.UUID(inv.InviterID), uuid.UUID(inv.InviteeID), int(inv.Status), inv.ExpiresAt,
	)

	out := inv
	out.ID = domain.InvitationID(id)
	if err := row.Scan(&out.CreatedAt); err != nil {
		if IsUniqueViolation(err) {
			return nil, repo.NewError(repo.ErrKindConflict, "pending_invitation", err)
		}
		if IsForeignKeyViolation(err) {
			return nil, repo.NewError(repo.ErrKindIntegrityViolation, "", err)
		}
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	return &out, nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id domain.InvitationID) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx,
		`SELECT `+invitationSelectColumns+` FROM invitations WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query invitation by id: %w", err)
	}
	return inv, nil
}

func (r *InvitationRepository) GetPending(ctx context.Context, roomID domain.RoomID, invitee domain.UserID) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx,
		`SELECT `+invitationSelectColumns+` FROM invitations WHERE room_id = $1 AND invitee_id = $2 AND status = 0`,
		uuid.UUID(roomID), uuid.UUID(invitee)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query pending invitation: %w", err)
	}
	return inv, nil
}

func (r *InvitationRepository) ListPendingForUser(ctx context.Context, invitee domain.UserID) ([]domain.Invitation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+invitationSelectColumns+` FROM invitations WHERE invitee_id = $1 AND status = 0 ORDER BY created_at DESC`,
		uuid.UUID(invitee))
	if err != nil {
		return nil, fmt.Errorf("query pending invitations: %w", err)
	}
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func (r *InvitationRepository) SetStatus(ctx context.Context, id domain.InvitationID, status domain.InvitationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invitations SET status = $1 WHERE id = $2`, int(status), uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}
