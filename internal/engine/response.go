package engine

import (
	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// Response mirrors Command: exactly one payload field is populated,
// matching the Kind of the Command that produced it.
type Response struct {
	Kind Kind

	Auth *AuthResponse
	User *UserResponse
	Users *UsersResponse
	Room *RoomResponse
	Rooms *RoomsResponse
	Members *MembersResponse
	Invitation *InvitationResponse
	Invitations *InvitationsResponse
	Message *MessageResponse
	Messages *MessagesResponse
	DeletedMessage *DeletedMessageResponse
	Stats *StatsResponse
	Empty *EmptyResponse
	AlreadyMember *AlreadyMemberResponse
	NotRoomMember *NotRoomMemberResponse
}

type AuthResponse struct {
	User domain.User `json:"user"`
	Session domain.Session `json:"session"`
	Token string `json:"token"`
}

type UserResponse struct {
	User domain.User `json:"user"`
}

type UsersResponse struct {
	Users []domain.User `json:"users"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

type RoomResponse struct {
	Room domain.Room `json:"room"`
}

type RoomsResponse struct {
	Rooms []domain.Room `json:"rooms"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

type MembersResponse struct {
	Members []domain.RoomMembership `json:"members"`
}

type InvitationResponse struct {
	Invitation domain.Invitation `json:"invitation"`
}

type InvitationsResponse struct {
	Invitations []domain.Invitation `json:"invitations"`
}

type MessageResponse struct {
	Message domain.Message `json:"message"`
}

type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

type DeletedMessageResponse struct {
	AlreadyDeleted bool `json:"already_deleted"`
}

type StatsResponse struct {
	TotalUsers int `json:"total_users"`
	TotalRooms int `json:"total_rooms"`
	OnlineUsers int `json:"online_users"`
}

// EmptyResponse is returned by commands with no meaningful payload beyond
// success (Logout, LeaveRoom, RemoveMember, DeclineInvitation, ...).
type EmptyResponse struct{}

// AlreadyMemberResponse is JoinRoom's response when the caller repeats a
// join: joining twice succeeds idempotently and returns the existing room.
type AlreadyMemberResponse struct {
	Room domain.Room `json:"room"`
}

// NotRoomMemberResponse is LeaveRoom's response when the caller repeats a
// leave.
type NotRoomMemberResponse struct{}
