package domain

import "time"

// RoomSettings holds the per-room policy knobs from spec section 3.
type RoomSettings struct {
	Public     bool `json:"public"`
	MaxMembers *int `json:"max_members,omitempty"`
	Moderated  bool `json:"moderated"`
	// MinJoinRole is stored and returned with the room's settings. JoinRoom
	// does not consult it: a non-public room is joinable only through a
	// Pending Invitation.
	MinJoinRole RoomRole `json:"min_join_role"`
}

// Room is a chat room: a named, owned container for memberships and
// room-targeted messages.
type Room struct {
	ID          RoomID       `json:"id"`
	Name        RoomName     `json:"name"`
	Description string       `json:"description"`
	OwnerID     UserID       `json:"owner_id"`
	Settings    RoomSettings `json:"settings"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RoomMembership links a User to a Room with a RoomRole.
type RoomMembership struct {
	RoomID   RoomID    `json:"room_id"`
	UserID   UserID    `json:"user_id"`
	Role     RoomRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
