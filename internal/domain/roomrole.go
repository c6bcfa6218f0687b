package domain

// RoomRole is a user's role within a single room's membership. Like Role, it
// is a total order: Owner > Moderator > Member.
type RoomRole int

const (
	RoomRoleMember RoomRole = iota
	RoomRoleModerator
	RoomRoleOwner
)

func (r RoomRole) String() string {
	switch r {
	case RoomRoleMember:
		return "member"
	case RoomRoleModerator:
		return "moderator"
	case RoomRoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParseRoomRole parses the wire string form of a RoomRole.
func ParseRoomRole(s string) (RoomRole, bool) {
	switch s {
	case "member":
		return RoomRoleMember, true
	case "moderator":
		return RoomRoleModerator, true
	case "owner":
		return RoomRoleOwner, true
	default:
		return 0, false
	}
}

// AtLeast reports whether r outranks or equals required.
func (r RoomRole) AtLeast(required RoomRole) bool {
	return r >= required
}

func (r RoomRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RoomRole) UnmarshalText(b []byte) error {
	parsed, ok := ParseRoomRole(string(b))
	if !ok {
		return errInvalidFormat("room_role", "must be one of member, moderator, owner")
	}
	*r = parsed
	return nil
}
