package domain

// InvitationStatus is the lifecycle state of a room Invitation.
type InvitationStatus int

const (
	InvitationPending InvitationStatus = iota
	InvitationAccepted
	InvitationDeclined
	InvitationCancelled
	InvitationExpired
)

func (s InvitationStatus) String() string {
	switch s {
	case InvitationPending:
		return "pending"
	case InvitationAccepted:
		return "accepted"
	case InvitationDeclined:
		return "declined"
	case InvitationCancelled:
		return "cancelled"
	case InvitationExpired:
		return "expired"
	default:
		return "unknown"
	}
}

func ParseInvitationStatus(s string) (InvitationStatus, bool) {
	switch s {
	case "pending":
		return InvitationPending, true
	case "accepted":
		return InvitationAccepted, true
	case "declined":
		return InvitationDeclined, true
	case "cancelled":
		return InvitationCancelled, true
	case "expired":
		return InvitationExpired, true
	default:
		return 0, false
	}
}

func (s InvitationStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *InvitationStatus) UnmarshalText(b []byte) error {
	parsed, ok := ParseInvitationStatus(string(b))
	if !ok {
		return errInvalidFormat("invitation_status", "must be one of pending, accepted, declined, cancelled, expired")
	}
	*s = parsed
	return nil
}

// SessionKind identifies which wire a Session was established over.
type SessionKind int

const (
	SessionTCP SessionKind = iota
	SessionHTTP
	SessionWebSocket
)

func (k SessionKind) String() string {
	switch k {
	case SessionTCP:
		return "tcp"
	case SessionHTTP:
		return "http"
	case SessionWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

func ParseSessionKind(s string) (SessionKind, bool) {
	switch s {
	case "tcp":
		return SessionTCP, true
	case "http":
		return SessionHTTP, true
	case "websocket":
		return SessionWebSocket, true
	default:
		return 0, false
	}
}
