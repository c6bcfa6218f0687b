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

const messageSelectColumns = `id, author_id, target_kind, room_id, recipient_id, content, edited, deleted, created_at, edited_at`

// MessageRepository implements repo.MessageRepository using PostgreSQL,
// using the same cursor query shape as the rest of this package,
// generalized to a room-or-DM target instead of a single channel_id
// column.
type MessageRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewMessageRepository(db *pgxpool.Pool, logger zerolog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: logger}
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var id, authorID uuid.UUID
	var roomID, recipientID *uuid.UUID
	var targetKind int
	var content string

	err := row.Scan(&id, &authorID, &targetKind, &roomID, &recipientID,
		&content, &msg.Edited, &msg.Deleted, &msg.CreatedAt, &msg.EditedAt)
	if err != nil {
		return nil, err
	}

	msg.ID = domain.MessageID(id)
	msg.AuthorID = domain.UserID(authorID)
	if msg.Content, err = domain.NewMessageContent(content); err != nil {
		if msg.Deleted {
			msg.Content = domain.TombstoneContent()
		} else {
			return nil, fmt.Errorf("scan content: %w", err)
		}
	}

	switch domain.TargetKind(targetKind) {
	case domain.TargetRoom:
		if roomID == nil {
			return nil, fmt.Errorf("room-targeted message %s has no room_id", id)
		}
		msg.Target = domain.NewRoomTarget(domain.RoomID(*roomID))
	case domain.TargetDirectMessage:
		if recipientID == nil {
			return nil, fmt.Errorf("dm-targeted message %s has no recipient_id", id)
		}
		msg.Target = domain.NewDirectMessageTarget(domain.UserID(*recipientID))
	default:
		return nil, fmt.Errorf("message %s has unknown target_kind %d", id, targetKind)
	}
	return &msg, nil
}

func (r *MessageRepository) Create(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	id := uuid.UUID(msg.ID)
	if id == uuid.Nil {
		id = uuid.New()
	}

	var roomID, recipientID *uuid.UUID
	if msg.Target.Kind == domain.TargetRoom {
		v := uuid.UUID(msg.Target.RoomID)
		roomID = &v
	} else {
		v := uuid.UUID(msg.Target.RecipientID)
		recipientID = &v
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO messages (id, author_id, target_kind, room_id, recipient_id, content)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		id, uuid.UUID(msg.AuthorID), int(msg.Target.Kind), roomID, recipientID, msg.Content.String(),
	)

	out := msg
	out.ID = domain.MessageID(id)
	if err := row.Scan(&out.CreatedAt); err != nil {
		if IsForeignKeyViolation(err) {
			return nil, repo.NewError(repo.ErrKindIntegrityViolation, "", err)
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &out, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	msg, err := scanMessage(r.db.QueryRow(ctx,
		`SELECT `+messageSelectColumns+` FROM messages WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("query message by id: %w", err)
	}
	return msg, nil
}

func (r *MessageRepository) ListByRoom(ctx context.Context, roomID domain.RoomID, page repo.Pagination) ([]domain.Message, error) {
	limit := repo.ClampLimit(page.Limit)

	var rows pgx.Rows
	var err error
	if page.Before != nil {
		beforeID, parseErr := uuid.Parse(*page.Before)
		if parseErr != nil {
			return nil, fmt.Errorf("parse cursor: %w", parseErr)
		}
		rows, err = r.db.Query(ctx,
			`SELECT `+messageSelectColumns+` FROM messages
			 WHERE room_id = $1 AND deleted = false
			   AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`, uuid.UUID(roomID), beforeID, limit)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+messageSelectColumns+` FROM messages
			 WHERE room_id = $1 AND deleted = false
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`, uuid.UUID(roomID), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query room messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *MessageRepository) ListDirect(ctx context.Context, a, b domain.UserID, page repo.Pagination) ([]domain.Message, error) {
	limit := repo.ClampLimit(page.Limit)

	var rows pgx.Rows
	var err error
	if page.Before != nil {
		beforeID, parseErr := uuid.Parse(*page.Before)
		if parseErr != nil {
			return nil, fmt.Errorf("parse cursor: %w", parseErr)
		}
		rows, err = r.db.Query(ctx,
			`SELECT `+messageSelectColumns+` FROM messages
			 WHERE target_kind = 1 AND deleted = false
			   AND ((author_id = $1 AND recipient_id = $2) OR (author_id = $2 AND recipient_id = $1))
			   AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`, uuid.UUID(a), uuid.UUID(b), beforeID, limit)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+messageSelectColumns+` FROM messages
			 WHERE target_kind = 1 AND deleted = false
			   AND ((author_id = $1 AND recipient_id = $2) OR (author_id = $2 AND recipient_id = $1))
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`, uuid.UUID(a), uuid.UUID(b), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query direct messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *MessageRepository) DMPartners(ctx context.Context, a domain.UserID) ([]domain.UserID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT CASE WHEN author_id = $1 THEN recipient_id ELSE author_id END AS partner
		 FROM messages
		 WHERE target_kind = 1 AND (author_id = $1 OR recipient_id = $1)`,
		uuid.UUID(a))
	if err != nil {
		return nil, fmt.Errorf("query dm partners: %w", err)
	}
	defer rows.Close()

	var partners []domain.UserID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dm partner: %w", err)
		}
		partners = append(partners, domain.UserID(id))
	}
	return partners, rows.Err()
}

func (r *MessageRepository) Update(ctx context.Context, id domain.MessageID, content domain.MessageContent, editedAt time.Time) (*domain.Message, error) {
	msg, err := scanMessage(r.db.QueryRow(ctx,
		`UPDATE messages SET content = $1, edited = true, edited_at = $2
		 WHERE id = $3 AND deleted = false
		 RETURNING `+messageSelectColumns,
		content.String(), editedAt, uuid.UUID(id),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
		}
		return nil, fmt.Errorf("update message: %w", err)
	}
	return msg, nil
}

func (r *MessageRepository) SoftDelete(ctx context.Context, id domain.MessageID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET deleted = true, content = $1 WHERE id = $2 AND deleted = false`,
		domain.TombstoneContent().String(), uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return nil
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}
