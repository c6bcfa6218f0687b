package domain

import "github.com/google/uuid"

// UserID, RoomID, MessageID, SessionID and InvitationID are opaque 128-bit
// identifiers with textual parse/format, per spec section 4.1. Each is a
// distinct type so the compiler catches a RoomID passed where a UserID is
// expected.
type (
	UserID       uuid.UUID
	RoomID       uuid.UUID
	MessageID    uuid.UUID
	SessionID    uuid.UUID
	InvitationID uuid.UUID
)

// NewUserID, NewRoomID, etc. generate fresh random identifiers.
func NewUserID() UserID             { return UserID(uuid.New()) }
func NewRoomID() RoomID             { return RoomID(uuid.New()) }
func NewMessageID() MessageID       { return MessageID(uuid.New()) }
func NewSessionID() SessionID       { return SessionID(uuid.New()) }
func NewInvitationID() InvitationID { return InvitationID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id RoomID) String() string       { return uuid.UUID(id).String() }
func (id MessageID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }
func (id InvitationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool       { return id == UserID{} }
func (id RoomID) IsZero() bool       { return id == RoomID{} }
func (id MessageID) IsZero() bool    { return id == MessageID{} }
func (id SessionID) IsZero() bool    { return id == SessionID{} }
func (id InvitationID) IsZero() bool { return id == InvitationID{} }

func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func ParseRoomID(s string) (RoomID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID(u), nil
}

func ParseMessageID(s string) (MessageID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MessageID{}, err
	}
	return MessageID(u), nil
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

func ParseInvitationID(s string) (InvitationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return InvitationID{}, err
	}
	return InvitationID(u), nil
}

// MarshalText / UnmarshalText make the id types transparent in JSON, matching
// the wire codec's requirement that ids serialise as plain strings.

func (id UserID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id RoomID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *RoomID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = RoomID(u)
	return nil
}

func (id MessageID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *MessageID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}

func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

func (id InvitationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *InvitationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = InvitationID(u)
	return nil
}
