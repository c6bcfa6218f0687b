// Package events defines the Event variants emitted by internal/engine and
// consumed by internal/dispatch. Each Event carries a
// 128-bit id for client-side dedup and an explicit Kind discriminator so
// the dispatcher can compute its audience without type-switching on the
// payload.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// Kind discriminates the Event payload variants.
type Kind int

const (
	MessageReceived Kind = iota
	MessageEdited
	MessageDeleted
	UserJoinedRoom
	UserLeftRoom
	RoomUpdated
	RoomDeleted
	UserOnline
	UserOffline
	UserTyping
	InvitationReceived
	InvitationCancelled
	ServerNotice
	SessionExpiring
)

func (k Kind) String() string {
	switch k {
	case MessageReceived:
		return "message_received"
	case MessageEdited:
		return "message_edited"
	case MessageDeleted:
		return "message_deleted"
	case UserJoinedRoom:
		return "user_joined_room"
	case UserLeftRoom:
		return "user_left_room"
	case RoomUpdated:
		return "room_updated"
	case RoomDeleted:
		return "room_deleted"
	case UserOnline:
		return "user_online"
	case UserOffline:
		return "user_offline"
	case UserTyping:
		return "user_typing"
	case InvitationReceived:
		return "invitation_received"
	case InvitationCancelled:
		return "invitation_cancelled"
	case ServerNotice:
		return "server_notice"
	case SessionExpiring:
		return "session_expiring"
	default:
		return "unknown"
	}
}

// Event is (EventId, payload variant, timestamp). Exactly one of the
// payload fields is populated, matching which Kind the
// event carries; internal/wire's codec is responsible for projecting this
// onto the wire's snake_case envelope.
type Event struct {
	ID uuid.UUID
	Kind Kind
	Timestamp time.Time

	Message *MessagePayload
	Membership *MembershipPayload
	Room *RoomPayload
	Presence *PresencePayload
	Typing *TypingPayload
	Invitation *InvitationPayload
	Notice *NoticePayload
	Expiring *ExpiringPayload
}

// New stamps a fresh Event with a random id and the given timestamp (passed
// explicitly so tests can drive a fake clock).
func New(kind Kind, now time.Time) Event {
	return Event{ID: uuid.New(), Kind: kind, Timestamp: now}
}

// MessagePayload backs MessageReceived/Edited/Deleted. PreviousContent is
// populated only for MessageEdited, carrying the content the message held
// immediately before the edit. Audience, when non-nil, is the membership
// snapshot internal/engine took under the per-target lock that serialized
// the write; internal/dispatch uses it instead of re-querying membership so
// a concurrent membership change can't race the computed audience.
type MessagePayload struct {
	Message domain.Message `json:"message"`
	AlreadyDeleted bool `json:"already_deleted,omitempty"`
	PreviousContent *domain.MessageContent `json:"previous_content,omitempty"`
	Audience []domain.UserID `json:"-"`
}

// MembershipPayload backs UserJoinedRoom/UserLeftRoom. Members, when
// non-nil, is the room's membership snapshot taken under the same
// per-room lock that performed the join/leave, letting internal/dispatch
// skip a second, racy membership query.
type MembershipPayload struct {
	RoomID domain.RoomID `json:"room_id"`
	UserID domain.UserID `json:"user_id"`
	Members []domain.UserID `json:"-"`
}

// RoomPayload backs RoomUpdated/RoomDeleted. Members is populated only for
// RoomDeleted, where the repository no longer has any membership rows to
// query by the time the dispatcher computes an audience — internal/engine
// snapshots "members at deletion time" before the delete commits.
type RoomPayload struct {
	Room domain.Room `json:"room"`
	Members []domain.UserID `json:"members,omitempty"`
}

// PresencePayload backs UserOnline/UserOffline.
type PresencePayload struct {
	UserID domain.UserID `json:"user_id"`
}

// TypingPayload backs UserTyping.
type TypingPayload struct {
	Target domain.MessageTarget `json:"target"`
	UserID domain.UserID `json:"user_id"`
}

// InvitationPayload backs InvitationReceived/InvitationCancelled.
type InvitationPayload struct {
	Invitation domain.Invitation `json:"invitation"`
}

// NoticePayload backs ServerNotice.
type NoticePayload struct {
	Message string `json:"message"`
}

// ExpiringPayload backs SessionExpiring. SessionID identifies which session
// registry entry the dispatcher must target: the audience is "the owning
// user's session", not every session of that user. UserID names the owner.
type ExpiringPayload struct {
	SessionID domain.SessionID `json:"session_id"`
	UserID domain.UserID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
