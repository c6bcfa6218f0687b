package wire

import (
	"encoding/json"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/events"
)

// DecodeCommand parses a wire frame into an engine.Command and the
// envelope's request_id, if any. Unknown fields inside data are ignored by
// encoding/json; an unrecognised type or malformed data yields a
// validation_failed error. requestID is returned even alongside an error
// when the envelope itself parsed, so the caller can still correlate an
// error response with the request that caused it.
func DecodeCommand(raw []byte) (engine.Command, string, error) {
	var env commandEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return engine.Command{}, "", apperr.New(apperr.CodeValidationFailed, "malformed command envelope")
	}
	kind, ok := engine.ParseKind(env.Type)
	if !ok {
		return engine.Command{}, env.RequestID, apperr.ValidationField("type", "invalid_format", "unrecognised command type")
	}

	cmd := engine.Command{Kind: kind}
	unmarshalPayload := func(v any) error {
		if len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, v); err != nil {
			return apperr.New(apperr.CodeValidationFailed, "malformed command payload")
		}
		return nil
	}

	var err error
	switch kind {
	case engine.CmdRegister:
		p := &engine.RegisterPayload{}
		err = unmarshalPayload(p)
		cmd.Register = p
	case engine.CmdLogin:
		p := &engine.LoginPayload{}
		err = unmarshalPayload(p)
		cmd.Login = p
	case engine.CmdLogout:
		cmd.Logout = &engine.LogoutPayload{}
	case engine.CmdRefresh:
		cmd.Refresh = &engine.RefreshPayload{}
	case engine.CmdAuthenticate:
		p := &engine.AuthenticatePayload{}
		err = unmarshalPayload(p)
		cmd.Authenticate = p
	case engine.CmdChangePassword:
		p := &engine.ChangePasswordPayload{}
		err = unmarshalPayload(p)
		cmd.ChangePassword = p
	case engine.CmdGetUser:
		p := &engine.GetUserPayload{}
		err = unmarshalPayload(p)
		cmd.GetUser = p
	case engine.CmdListUsers:
		p := &engine.ListUsersPayload{}
		err = unmarshalPayload(p)
		cmd.ListUsers = p
	case engine.CmdCreateRoom:
		p := &engine.CreateRoomPayload{}
		err = unmarshalPayload(p)
		cmd.CreateRoom = p
	case engine.CmdGetRoom:
		p := &engine.GetRoomPayload{}
		err = unmarshalPayload(p)
		cmd.GetRoom = p
	case engine.CmdListRooms:
		p := &engine.ListRoomsPayload{}
		err = unmarshalPayload(p)
		cmd.ListRooms = p
	case engine.CmdUpdateRoom:
		p := &engine.UpdateRoomPayload{}
		err = unmarshalPayload(p)
		cmd.UpdateRoom = p
	case engine.CmdDeleteRoom:
		p := &engine.DeleteRoomPayload{}
		err = unmarshalPayload(p)
		cmd.DeleteRoom = p
	case engine.CmdJoinRoom:
		p := &engine.JoinRoomPayload{}
		err = unmarshalPayload(p)
		cmd.JoinRoom = p
	case engine.CmdLeaveRoom:
		p := &engine.LeaveRoomPayload{}
		err = unmarshalPayload(p)
		cmd.LeaveRoom = p
	case engine.CmdListMembers:
		p := &engine.ListMembersPayload{}
		err = unmarshalPayload(p)
		cmd.ListMembers = p
	case engine.CmdChangeMemberRole:
		p := &engine.ChangeMemberRolePayload{}
		err = unmarshalPayload(p)
		cmd.ChangeMemberRole = p
	case engine.CmdRemoveMember:
		p := &engine.RemoveMemberPayload{}
		err = unmarshalPayload(p)
		cmd.RemoveMember = p
	case engine.CmdInviteToRoom:
		p := &engine.InviteToRoomPayload{}
		err = unmarshalPayload(p)
		cmd.InviteToRoom = p
	case engine.CmdAcceptInvitation:
		p := &engine.AcceptInvitationPayload{}
		err = unmarshalPayload(p)
		cmd.AcceptInvitation = p
	case engine.CmdDeclineInvitation:
		p := &engine.DeclineInvitationPayload{}
		err = unmarshalPayload(p)
		cmd.DeclineInvitation = p
	case engine.CmdListInvitations:
		cmd.ListInvitations = &engine.ListInvitationsPayload{}
	case engine.CmdSendMessage:
		p := &engine.SendMessagePayload{}
		err = unmarshalPayload(p)
		cmd.SendMessage = p
	case engine.CmdEditMessage:
		p := &engine.EditMessagePayload{}
		err = unmarshalPayload(p)
		cmd.EditMessage = p
	case engine.CmdDeleteMessage:
		p := &engine.DeleteMessagePayload{}
		err = unmarshalPayload(p)
		cmd.DeleteMessage = p
	case engine.CmdListMessages:
		p := &engine.ListMessagesPayload{}
		err = unmarshalPayload(p)
		cmd.ListMessages = p
	case engine.CmdAdminStats:
		cmd.AdminStats = &engine.AdminStatsPayload{}
	case engine.CmdAdminBanUser:
		p := &engine.AdminBanUserPayload{}
		err = unmarshalPayload(p)
		cmd.AdminBanUser = p
	case engine.CmdAdminUnbanUser:
		p := &engine.AdminUnbanUserPayload{}
		err = unmarshalPayload(p)
		cmd.AdminUnbanUser = p
	case engine.CmdAdminDeleteRoom:
		p := &engine.AdminDeleteRoomPayload{}
		err = unmarshalPayload(p)
		cmd.AdminDeleteRoom = p
	case engine.CmdPing:
		cmd.Ping = &engine.PingPayload{}
	case engine.CmdPong:
		cmd.Pong = &engine.PongPayload{}
	}
	if err != nil {
		return engine.Command{}, env.RequestID, err
	}
	return cmd, env.RequestID, nil
}

// responsePayload returns the single populated payload field of resp, so
// EncodeResponse doesn't need its own 28-way switch duplicating Dispatch's.
func responsePayload(resp engine.Response) any {
	switch {
	case resp.Auth != nil:
		return resp.Auth
	case resp.User != nil:
		return resp.User
	case resp.Users != nil:
		return resp.Users
	case resp.Room != nil:
		return resp.Room
	case resp.Rooms != nil:
		return resp.Rooms
	case resp.Members != nil:
		return resp.Members
	case resp.Invitation != nil:
		return resp.Invitation
	case resp.Invitations != nil:
		return resp.Invitations
	case resp.Message != nil:
		return resp.Message
	case resp.Messages != nil:
		return resp.Messages
	case resp.DeletedMessage != nil:
		return resp.DeletedMessage
	case resp.Stats != nil:
		return resp.Stats
	case resp.AlreadyMember != nil:
		return resp.AlreadyMember
	case resp.NotRoomMember != nil:
		return resp.NotRoomMember
	default:
		return resp.Empty
	}
}

// EncodeResponse serialises a successful Response as "<command>_response",
// echoing requestID back so the caller can correlate it with its request.
func EncodeResponse(resp engine.Response, requestID string) ([]byte, error) {
	data, err := json.Marshal(responsePayload(resp))
	if err != nil {
		return nil, err
	}
	return json.Marshal(responseEnvelope{
		Type: resp.Kind.String() + "_response",
		RequestID: requestID,
		Success: true,
		Data: data,
	})
}

// EncodeErrorResponse serialises a failed command as its "<command>_response"
// envelope with success: false and an error object, echoing requestID back
// the same way EncodeResponse does.
func EncodeErrorResponse(kind engine.Kind, cmdErr error, requestID string) ([]byte, error) {
	dto := errorDTOFrom(cmdErr)
	return json.Marshal(responseEnvelope{
		Type: kind.String() + "_response",
		RequestID: requestID,
		Success: false,
		Error: &dto,
	})
}

// eventPayload returns the single populated payload field of evt.
func eventPayload(evt events.Event) any {
	switch {
	case evt.Message != nil:
		return evt.Message
	case evt.Membership != nil:
		return evt.Membership
	case evt.Room != nil:
		return evt.Room
	case evt.Presence != nil:
		return evt.Presence
	case evt.Typing != nil:
		return evt.Typing
	case evt.Invitation != nil:
		return evt.Invitation
	case evt.Notice != nil:
		return evt.Notice
	default:
		return evt.Expiring
	}
}

// EncodeProtocolError serialises a transport-level failure that occurred
// before a command kind could be determined at all (malformed envelope,
// unrecognised type), using a bare "error" type tag rather than the
// "<command>_response" shape EncodeErrorResponse produces.
func EncodeProtocolError(err error, requestID string) ([]byte, error) {
	dto := errorDTOFrom(err)
	return json.Marshal(responseEnvelope{Type: "error", RequestID: requestID, Success: false, Error: &dto})
}

// EncodeEvent serialises an Event using the type tag from its Kind.
func EncodeEvent(evt events.Event) ([]byte, error) {
	data, err := json.Marshal(eventPayload(evt))
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{
		Type: evt.Kind.String(),
		ID: evt.ID.String(),
		Timestamp: evt.Timestamp,
		Data: data,
	})
}
