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

const roomSelectColumns = `id, name, description, owner_id, public, max_members, moderated, min_join_role, created_at`

// roomSelectColumnsQualified is roomSelectColumns with every column prefixed
// by the "r" alias, for queries that join rooms against another table.
const roomSelectColumnsQualified = `r.id, r.name, r.description, r.owner_id, r.public, r.max_members, r.moderated, r.min_join_role, r.created_at`

// RoomRepository implements repo.RoomRepository using PostgreSQL. A room
// plays two roles here: the container itself and its membership list.
type RoomRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewRoomRepository(db *pgxpool.Pool, logger zerolog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: logger}
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	var id, ownerID uuid.UUID
	var name string
	var minJoinRole int

	err := row.Scan(&id, &name, &rm.Description, &ownerID, &rm.Settings.Public,
		&rm.Settings.MaxMembers, &rm.Settings.Moderated, &minJoinRole, &rm.CreatedAt)
	if err != nil {
		return nil, err
	}

	rm.ID = domain.RoomID(id)
	rm.OwnerID = domain.UserID(ownerID)
	rm.Settings.MinJoinRole = domain.RoomRole(minJoinRole)
	if rm.Name, err = domain.NewRoomName(name); err != nil {
		return nil, fmt.Errorf("scan room name %q: %w", name, err)
	}
	return &rm, nil
}

func (r *RoomRepository) Create(ctx context.Context, room domain.Room, owner domain.UserID) (*domain.Room, error) {
	id := uuid.UUID(room.ID)
	if id == uuid.Nil {
		id = uuid.New()
	}

	var out domain.Room
	err := WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO rooms (id, name, name_fold, description, owner_id, public, max_members, moderated, min_join_role)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING created_at`,
			id, room.Name.String(), room.Name.Fold(), room.Description, uuid.UUID(owner),
			room.Settings.Public, room.Settings.MaxMembers, room.Settings.Moderated, int(room.Settings.MinJoinRole),
		)
		out = room
		out.ID = domain.RoomID(id)
		out.OwnerID = owner
		if err := row.Scan(&out.CreatedAt); err != nil {
			if IsUniqueViolation(err) {
				return repo.NewError(repo.ErrKindConflict, "name", err)
			}
			return fmt.Errorf("insert room: %w", err)
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO room_memberships (room_id, user_id, role) VALUES ($1, $2, $3)`,
			id, uuid.UUID(owner), int(domain.RoomRoleOwner),
		)
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx,
		`SELECT `+roomSelectColumns+` FROM rooms WHERE id = $1 AND deleted_at IS NULL`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query room by id: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) GetByName(ctx context.Context, name domain.RoomName) (*domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx,
		`SELECT `+roomSelectColumns+` FROM rooms WHERE name_fold = $1 AND deleted_at IS NULL`, name.Fold()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query room by name: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) Update(ctx context.Context, id domain.RoomID, settings domain.RoomSettings, description string) (*domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRow(ctx,
		`UPDATE rooms SET description = $1, public = $2, max_members = $3, moderated = $4, min_join_role = $5
		 WHERE id = $6 AND deleted_at IS NULL
		 RETURNING `+roomSelectColumns,
		description, settings.Public, settings.MaxMembers, settings.Moderated, int(settings.MinJoinRole), uuid.UUID(id),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("update room: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) Delete(ctx context.Context, id domain.RoomID, archiveMessages bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rooms SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("soft delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func (r *RoomRepository) ListPublic(ctx context.Context, page repo.Pagination) ([]domain.Room, error) {
	limit := repo.ClampLimit(page.Limit)

	var rows pgx.Rows
	var err error
	if page.Before != nil {
		beforeID, parseErr := uuid.Parse(*page.Before)
		if parseErr != nil {
			return nil, fmt.Errorf("parse cursor: %w", parseErr)
		}
		rows, err = r.db.Query(ctx,
			`SELECT `+roomSelectColumns+` FROM rooms
			 WHERE public = true AND deleted_at IS NULL
			   AND (created_at, id) < (SELECT created_at, id FROM rooms WHERE id = $1)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`, beforeID, limit)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+roomSelectColumns+` FROM rooms
			 WHERE public = true AND deleted_at IS NULL
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query public rooms: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func (r *RoomRepository) ListForUser(ctx context.Context, userID domain.UserID, page repo.Pagination) ([]domain.Room, error) {
	limit := repo.ClampLimit(page.Limit)

	var rows pgx.Rows
	var err error
	if page.Before != nil {
		beforeID, parseErr := uuid.Parse(*page.Before)
		if parseErr != nil {
			return nil, fmt.Errorf("parse cursor: %w", parseErr)
		}
		rows, err = r.db.Query(ctx,
			`SELECT `+roomSelectColumnsQualified+` FROM rooms r
			 JOIN room_memberships rm ON rm.room_id = r.id
			 WHERE rm.user_id = $1 AND r.deleted_at IS NULL
			   AND (r.created_at, r.id) < (SELECT created_at, id FROM rooms WHERE id = $2)
			 ORDER BY r.created_at DESC, r.id DESC
			 LIMIT $3`, uuid.UUID(userID), beforeID, limit)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+roomSelectColumnsQualified+` FROM rooms r
			 JOIN room_memberships rm ON rm.room_id = r.id
			 WHERE rm.user_id = $1 AND r.deleted_at IS NULL
			 ORDER BY r.created_at DESC, r.id DESC
			 LIMIT $2`, uuid.UUID(userID), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query rooms for user: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func (r *RoomRepository) RoomIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.RoomID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT room_id FROM room_memberships WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query room ids for user: %w", err)
	}
	defer rows.Close()

	var ids []domain.RoomID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, domain.RoomID(id))
	}
	return ids, rows.Err()
}

func (r *RoomRepository) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.RoomRole) (*domain.RoomMembership, error) {
	var m domain.RoomMembership
	err := r.db.QueryRow(ctx,
		`INSERT INTO room_memberships (room_id, user_id, role) VALUES ($1, $2, $3)
		 RETURNING joined_at`,
		uuid.UUID(roomID), uuid.UUID(userID), int(role),
	).Scan(&m.JoinedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, repo.NewError(repo.ErrKindConflict, "membership", err)
		}
		if IsForeignKeyViolation(err) {
			return nil, repo.NewError(repo.ErrKindIntegrityViolation, "", err)
		}
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	m.RoomID = roomID
	m.UserID = userID
	m.Role = role
	return &m, nil
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM room_memberships WHERE room_id = $1 AND user_id = $2`,
		uuid.UUID(roomID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func (r *RoomRepository) ChangeMemberRole(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.RoomRole) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE room_memberships SET role = $1 WHERE room_id = $2 AND user_id = $3`,
		int(role), uuid.UUID(roomID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func (r *RoomRepository) GetMembership(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.RoomMembership, error) {
	var m domain.RoomMembership
	var role int
	err := r.db.QueryRow(ctx,
		`SELECT role, joined_at FROM room_memberships WHERE room_id = $1 AND user_id = $2`,
		uuid.UUID(roomID), uuid.UUID(userID),
	).Scan(&role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query membership: %w", err)
	}
	m.RoomID = roomID
	m.UserID = userID
	m.Role = domain.RoomRole(role)
	return &m, nil
}

func (r *RoomRepository) ListMembers(ctx context.Context, roomID domain.RoomID) ([]domain.RoomMembership, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, role, joined_at FROM room_memberships WHERE room_id = $1 ORDER BY joined_at ASC`,
		uuid.UUID(roomID))
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []domain.RoomMembership
	for rows.Next() {
		var m domain.RoomMembership
		var userID uuid.UUID
		var role int
		if err := rows.Scan(&userID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.RoomID = roomID
		m.UserID = domain.UserID(userID)
		m.Role = domain.RoomRole(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *RoomRepository) CountMembers(ctx context.Context, roomID domain.RoomID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM room_memberships WHERE room_id = $1`, uuid.UUID(roomID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func collectRooms(rows pgx.Rows) ([]domain.Room, error) {
	var rooms []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}
