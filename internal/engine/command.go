package engine

import (
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// Kind discriminates which payload field of Command is populated — a
// tagged sum dispatched by a single switch.
type Kind int

const (
	CmdRegister Kind = iota
	CmdLogin
	CmdLogout
	CmdRefresh
	CmdAuthenticate
	CmdChangePassword

	CmdGetUser
	CmdListUsers

	CmdCreateRoom
	CmdGetRoom
	CmdListRooms
	CmdUpdateRoom
	CmdDeleteRoom
	CmdJoinRoom
	CmdLeaveRoom
	CmdListMembers
	CmdChangeMemberRole
	CmdRemoveMember

	CmdInviteToRoom
	CmdAcceptInvitation
	CmdDeclineInvitation
	CmdListInvitations

	CmdSendMessage
	CmdEditMessage
	CmdDeleteMessage
	CmdListMessages

	CmdAdminStats
	CmdAdminBanUser
	CmdAdminUnbanUser
	CmdAdminDeleteRoom

	CmdPing
	CmdPong
)

// String returns the wire discriminator for k. internal/wire uses this both
// to encode outgoing Responses/Events and to parse incoming Commands.
func (k Kind) String() string {
	switch k {
	case CmdRegister:
		return "register"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdRefresh:
		return "refresh"
	case CmdAuthenticate:
		return "authenticate"
	case CmdChangePassword:
		return "change_password"
	case CmdGetUser:
		return "get_user"
	case CmdListUsers:
		return "list_users"
	case CmdCreateRoom:
		return "create_room"
	case CmdGetRoom:
		return "get_room"
	case CmdListRooms:
		return "list_rooms"
	case CmdUpdateRoom:
		return "update_room"
	case CmdDeleteRoom:
		return "delete_room"
	case CmdJoinRoom:
		return "join_room"
	case CmdLeaveRoom:
		return "leave_room"
	case CmdListMembers:
		return "list_members"
	case CmdChangeMemberRole:
		return "change_member_role"
	case CmdRemoveMember:
		return "remove_member"
	case CmdInviteToRoom:
		return "invite_to_room"
	case CmdAcceptInvitation:
		return "accept_invitation"
	case CmdDeclineInvitation:
		return "decline_invitation"
	case CmdListInvitations:
		return "list_invitations"
	case CmdSendMessage:
		return "send_message"
	case CmdEditMessage:
		return "edit_message"
	case CmdDeleteMessage:
		return "delete_message"
	case CmdListMessages:
		return "list_messages"
	case CmdAdminStats:
		return "admin_stats"
	case CmdAdminBanUser:
		return "admin_ban_user"
	case CmdAdminUnbanUser:
		return "admin_unban_user"
	case CmdAdminDeleteRoom:
		return "admin_delete_room"
	case CmdPing:
		return "ping"
	case CmdPong:
		return "pong"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire discriminator back to a Kind. ok is false for any
// string not produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := CmdRegister; k <= CmdPong; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Command is the single input type ChatEngine.Dispatch accepts. Exactly one
// payload field is populated, selected by Kind; wire adapters (TCP, REST)
// build one of these from parsed request data and never touch repositories
// directly.
type Command struct {
	Kind Kind

	Register *RegisterPayload
	Login *LoginPayload
	Logout *LogoutPayload
	Refresh *RefreshPayload
	Authenticate *AuthenticatePayload
	ChangePassword *ChangePasswordPayload
	GetUser *GetUserPayload
	ListUsers *ListUsersPayload
	CreateRoom *CreateRoomPayload
	GetRoom *GetRoomPayload
	ListRooms *ListRoomsPayload
	UpdateRoom *UpdateRoomPayload
	DeleteRoom *DeleteRoomPayload
	JoinRoom *JoinRoomPayload
	LeaveRoom *LeaveRoomPayload
	ListMembers *ListMembersPayload
	ChangeMemberRole *ChangeMemberRolePayload
	RemoveMember *RemoveMemberPayload
	InviteToRoom *InviteToRoomPayload
	AcceptInvitation *AcceptInvitationPayload
	DeclineInvitation *DeclineInvitationPayload
	ListInvitations *ListInvitationsPayload
	SendMessage *SendMessagePayload
	EditMessage *EditMessagePayload
	DeleteMessage *DeleteMessagePayload
	ListMessages *ListMessagesPayload
	AdminStats *AdminStatsPayload
	AdminBanUser *AdminBanUserPayload
	AdminUnbanUser *AdminUnbanUserPayload
	AdminDeleteRoom *AdminDeleteRoomPayload
	Ping *PingPayload
	Pong *PongPayload
}

type RegisterPayload struct {
	Username string `json:"username"`
	Email string `json:"email"`
	Password string `json:"password"`
	SourceIP string `json:"-"`
}

type LoginPayload struct {
	Identifier string `json:"identifier"`
	Password string `json:"password"`
	SourceIP string `json:"-"`
	Kind domain.SessionKind `json:"kind"`
}

type LogoutPayload struct{}

type RefreshPayload struct{}

// AuthenticatePayload re-establishes a caller's identity on a new
// connection using a token obtained from an earlier Register/Login/Refresh,
// without the side effects Refresh has (no expiry extension, no new token).
type AuthenticatePayload struct {
	Token string `json:"token"`
}

type ChangePasswordPayload struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type GetUserPayload struct {
	UserID domain.UserID `json:"user_id"`
}

type ListUsersPayload struct {
	Filter repo.UserFilter `json:"filter"`
	Page repo.Pagination `json:"page"`
}

type CreateRoomPayload struct {
	Name string `json:"name"`
	Description string `json:"description"`
	Settings domain.RoomSettings `json:"settings"`
}

type GetRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type ListRoomsPayload struct {
	Mine bool `json:"mine"`
	Page repo.Pagination `json:"page"`
}

type UpdateRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
	Description *string `json:"description,omitempty"`
	Settings *domain.RoomSettings `json:"settings,omitempty"`
}

type DeleteRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type JoinRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type LeaveRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type ListMembersPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type ChangeMemberRolePayload struct {
	RoomID domain.RoomID `json:"room_id"`
	UserID domain.UserID `json:"user_id"`
	Role domain.RoomRole `json:"role"`
}

type RemoveMemberPayload struct {
	RoomID domain.RoomID `json:"room_id"`
	UserID domain.UserID `json:"user_id"`
}

type InviteToRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
	InviteeID domain.UserID `json:"invitee_id"`
	ExpiresIn *int64 `json:"expires_in,omitempty"` // seconds, optional
}

type AcceptInvitationPayload struct {
	InvitationID domain.InvitationID `json:"invitation_id"`
}

type DeclineInvitationPayload struct {
	InvitationID domain.InvitationID `json:"invitation_id"`
}

type ListInvitationsPayload struct{}

type SendMessagePayload struct {
	Target domain.MessageTarget `json:"target"`
	Content string `json:"content"`
}

type EditMessagePayload struct {
	MessageID domain.MessageID `json:"message_id"`
	Content string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID domain.MessageID `json:"message_id"`
}

type ListMessagesPayload struct {
	Target domain.MessageTarget `json:"target"`
	Page repo.Pagination `json:"page"`
}

type AdminStatsPayload struct{}

type AdminBanUserPayload struct {
	UserID domain.UserID `json:"user_id"`
}

type AdminUnbanUserPayload struct {
	UserID domain.UserID `json:"user_id"`
}

type AdminDeleteRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

// PingPayload carries no data; a client sends it to request a Pong and
// refresh the connection's idle deadline without touching any domain state.
type PingPayload struct{}

// PongPayload carries no data. A client may also send one unprompted as a
// pure keepalive; internal/tcpproto's command loop short-circuits it before
// it ever reaches ChatEngine.Dispatch.
type PongPayload struct{}
