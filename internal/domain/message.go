package domain

import (
	"encoding/json"
	"time"
)

// TargetKind discriminates a MessageTarget.
type TargetKind int

const (
	TargetRoom TargetKind = iota
	TargetDirectMessage
)

func (k TargetKind) String() string {
	if k == TargetDirectMessage {
		return "direct_message"
	}
	return "room"
}

// MessageTarget is the scope a Message is addressed to: either a Room or a
// specific DM counterpart. Exactly one of RoomID/RecipientID is meaningful,
// selected by Kind.
type MessageTarget struct {
	Kind TargetKind
	RoomID RoomID
	RecipientID UserID
}

// messageTargetWire is MessageTarget's wire shape, matching the
// "target_type=room|direct_message&target_id=..." REST convention.
type messageTargetWire struct {
	TargetType string `json:"target_type"`
	TargetID string `json:"target_id"`
}

func (t MessageTarget) MarshalJSON() ([]byte, error) {
	id := t.RoomID.String()
	if t.Kind == TargetDirectMessage {
		id = t.RecipientID.String()
	}
	return json.Marshal(messageTargetWire{TargetType: t.Kind.String(), TargetID: id})
}

func (t *MessageTarget) UnmarshalJSON(b []byte) error {
	var w messageTargetWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.TargetType {
	case "room":
		id, err := ParseRoomID(w.TargetID)
		if err != nil {
			return errInvalidFormat("target_id", "must be a valid room id")
		}
		*t = NewRoomTarget(id)
	case "direct_message":
		id, err := ParseUserID(w.TargetID)
		if err != nil {
			return errInvalidFormat("target_id", "must be a valid user id")
		}
		*t = NewDirectMessageTarget(id)
	default:
		return errInvalidFormat("target_type", "must be one of room, direct_message")
	}
	return nil
}

// NewRoomTarget builds a Room-scoped MessageTarget.
func NewRoomTarget(roomID RoomID) MessageTarget {
	return MessageTarget{Kind: TargetRoom, RoomID: roomID}
}

// NewDirectMessageTarget builds a DM-scoped MessageTarget.
func NewDirectMessageTarget(recipientID UserID) MessageTarget {
	return MessageTarget{Kind: TargetDirectMessage, RecipientID: recipientID}
}

// Key returns a string uniquely identifying this target, suitable for use as
// a per-target lock or worker-routing key. DM keys are symmetric: the two
// participant ids are sorted so either direction maps to the same key.
func (t MessageTarget) Key(author UserID) string {
	if t.Kind == TargetRoom {
		return "room:" + t.RoomID.String()
	}
	a, b := author.String(), t.RecipientID.String()
	if a > b {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}

// Message is a single chat message, addressed to a Room or a DM pair.
type Message struct {
	ID MessageID `json:"id"`
	AuthorID UserID `json:"author_id"`
	Target MessageTarget `json:"target"`
	Content MessageContent `json:"content"`
	Edited bool `json:"edited"`
	Deleted bool `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt *time.Time `json:"edited_at,omitempty"`
}
