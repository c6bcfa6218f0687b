package domain

// Role is a user's global (server-wide) role. The three variants form a
// total order: Admin > Moderator > User.
type Role int

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole parses the wire string form of a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "user":
		return RoleUser, true
	case "moderator":
		return RoleModerator, true
	case "admin":
		return RoleAdmin, true
	default:
		return 0, false
	}
}

// HasPermission reports whether r outranks or equals required in the total
// order Admin > Moderator > User.
func (r Role) HasPermission(required Role) bool {
	return r >= required
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	parsed, ok := ParseRole(string(b))
	if !ok {
		return errInvalidFormat("role", "must be one of user, moderator, admin")
	}
	*r = parsed
	return nil
}
