package engine

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/ratelimit"
)

func (e *ChatEngine) handleCreateRoom(ctx context.Context, caller Caller, p *CreateRoomPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	if e.limiter != nil {
		res, err := e.limiter.Allow(ctx, ac.UserID.String(), ratelimit.CategoryRoomCreate)
		if err != nil {
			return Response{}, nil, err
		}
		if !res.Allowed {
			return Response{}, nil, apperr.RateLimited(int(res.RetryAfter.Seconds()), res.Limit)
		}
	}

	name, err := domain.NewRoomName(p.Name)
	if err != nil {
		return Response{}, nil, err
	}

	room := domain.Room{
		ID: domain.NewRoomID(),
		Name: name,
		Description: p.Description,
		OwnerID: ac.UserID,
		Settings: p.Settings,
		CreatedAt: e.clock(),
	}

	created, err := e.rooms.Create(ctx, room, ac.UserID)
	if err != nil {
		if isConflict(err) {
			return Response{}, nil, apperr.Conflict("a room with that name already exists")
		}
		return Response{}, nil, err
	}

	return Response{Kind: CmdCreateRoom, Room: &RoomResponse{Room: *created}}, nil, nil
}

func (e *ChatEngine) handleGetRoom(ctx context.Context, caller Caller, p *GetRoomPayload) (Response, []events.Event, error) {
	if _, err := requireAuthenticated(caller); err != nil {
		return Response{}, nil, err
	}
	room, err := e.rooms.GetByID(ctx, p.RoomID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
		}
		return Response{}, nil, err
	}
	return Response{Kind: CmdGetRoom, Room: &RoomResponse{Room: *room}}, nil, nil
}

func (e *ChatEngine) handleListRooms(ctx context.Context, caller Caller, p *ListRoomsPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	var rooms []domain.Room
	if p.Mine {
		rooms, err = e.rooms.ListForUser(ctx, ac.UserID, p.Page)
	} else {
		rooms, err = e.rooms.ListPublic(ctx, p.Page)
	}
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdListRooms, Rooms: &RoomsResponse{Rooms: rooms}}, nil, nil
}

func (e *ChatEngine) handleUpdateRoom(ctx context.Context, caller Caller, p *UpdateRoomPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	membership, err := e.membershipOrNil(ctx, p.RoomID, ac.UserID)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireRoomRole(ac, membership, domain.RoomRoleModerator); err != nil {
		return Response{}, nil, err
	}

	current, err := e.rooms.GetByID(ctx, p.RoomID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
		}
		return Response{}, nil, err
	}

	settings := current.Settings
	if p.Settings != nil {
		settings = *p.Settings
	}
	description := current.Description
	if p.Description != nil {
		description = *p.Description
	}

	updated, err := e.rooms.Update(ctx, p.RoomID, settings, description)
	if err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.RoomUpdated)
	evt.Room = &events.RoomPayload{Room: *updated}
	return Response{Kind: CmdUpdateRoom, Room: &RoomResponse{Room: *updated}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleDeleteRoom(ctx context.Context, caller Caller, p *DeleteRoomPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	room, err := e.rooms.GetByID(ctx, p.RoomID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
		}
		return Response{}, nil, err
	}

	if ac.Role != domain.RoleAdmin && room.OwnerID != ac.UserID {
		return Response{}, nil, apperr.PermissionDenied("only the room owner or an admin may delete this room")
	}

	members, err := e.rooms.ListMembers(ctx, p.RoomID)
	if err != nil {
		return Response{}, nil, err
	}

	if err := e.rooms.Delete(ctx, p.RoomID, true); err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.RoomDeleted)
	evt.Room = &events.RoomPayload{Room: *room, Members: membershipUserIDs(members)}
	return Response{Kind: CmdDeleteRoom, Empty: &EmptyResponse{}}, []events.Event{evt}, nil
}

// roomLockKey is the keyedMutex key guarding a room's membership set,
// matching the "room:<id>" prefix internal/dispatch uses to route
// membership events to its own worker.
func roomLockKey(roomID domain.RoomID) string {
	return "room:" + roomID.String()
}

// membershipUserIDs projects a membership list down to user ids, for events
// that must snapshot "members at event time" before a delete removes the
// membership rows the dispatcher would otherwise query.
func membershipUserIDs(members []domain.RoomMembership) []domain.UserID {
	out := make([]domain.UserID, len(members))
	for i, m := range members {
		out[i] = m.UserID
	}
	return out
}

func (e *ChatEngine) handleJoinRoom(ctx context.Context, caller Caller, p *JoinRoomPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	room, err := e.rooms.GetByID(ctx, p.RoomID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
		}
		return Response{}, nil, err
	}

	unlock := e.targetLocks.lock(roomLockKey(p.RoomID))
	defer unlock()

	existing, err := e.membershipOrNil(ctx, p.RoomID, ac.UserID)
	if err != nil {
		return Response{}, nil, err
	}
	if existing != nil {
		return Response{Kind: CmdJoinRoom, AlreadyMember: &AlreadyMemberResponse{Room: *room}}, nil, nil
	}

	pending, err := e.invitations.GetPending(ctx, p.RoomID, ac.UserID)
	if err != nil && !isNotFound(err) {
		return Response{}, nil, err
	}
	hasInvite := pending != nil && pending.IsPending(e.clock())

	if !room.Settings.Public && !hasInvite {
		return Response{}, nil, apperr.New(apperr.CodeRoomPrivate, "this room requires an invitation")
	}

	if room.Settings.MaxMembers != nil {
		count, err := e.rooms.CountMembers(ctx, p.RoomID)
		if err != nil {
			return Response{}, nil, err
		}
		if count >= *room.Settings.MaxMembers {
			return Response{}, nil, apperr.New(apperr.CodeRoomFull, "room has reached its member limit")
		}
	}

	if _, err := e.rooms.AddMember(ctx, p.RoomID, ac.UserID, domain.RoomRoleMember); err != nil {
		if isConflict(err) {
			return Response{Kind: CmdJoinRoom, AlreadyMember: &AlreadyMemberResponse{Room: *room}}, nil, nil
		}
		return Response{}, nil, err
	}

	if hasInvite {
		if err := e.invitations.SetStatus(ctx, pending.ID, domain.InvitationAccepted); err != nil {
			e.log.Warn().Err(err).Msg("failed to mark invitation accepted after join")
		}
	}

	evt := e.newEvent(events.UserJoinedRoom)
	evt.Membership = &events.MembershipPayload{RoomID: p.RoomID, UserID: ac.UserID}
	if members, mErr := e.rooms.ListMembers(ctx, p.RoomID); mErr == nil {
		evt.Membership.Members = membershipUserIDs(members)
	}
	return Response{Kind: CmdJoinRoom, Room: &RoomResponse{Room: *room}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleLeaveRoom(ctx context.Context, caller Caller, p *LeaveRoomPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	unlock := e.targetLocks.lock(roomLockKey(p.RoomID))
	defer unlock()

	membership, err := e.membershipOrNil(ctx, p.RoomID, ac.UserID)
	if err != nil {
		return Response{}, nil, err
	}
	if membership == nil {
		return Response{Kind: CmdLeaveRoom, NotRoomMember: &NotRoomMemberResponse{}}, nil, nil
	}

	if err := e.rooms.RemoveMember(ctx, p.RoomID, ac.UserID); err != nil {
		if isConflict(err) {
			return Response{}, nil, apperr.New(apperr.CodeLastOwner, "the sole owner cannot leave the room")
		}
		return Response{}, nil, err
	}

	evt := e.newEvent(events.UserLeftRoom)
	evt.Membership = &events.MembershipPayload{RoomID: p.RoomID, UserID: ac.UserID}
	if members, mErr := e.rooms.ListMembers(ctx, p.RoomID); mErr == nil {
		evt.Membership.Members = membershipUserIDs(members)
	}
	return Response{Kind: CmdLeaveRoom, Empty: &EmptyResponse{}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleListMembers(ctx context.Context, caller Caller, p *ListMembersPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if _, err := e.requireMembership(ctx, p.RoomID, ac.UserID); err != nil {
		return Response{}, nil, err
	}
	members, err := e.rooms.ListMembers(ctx, p.RoomID)
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdListMembers, Members: &MembersResponse{Members: members}}, nil, nil
}

func (e *ChatEngine) handleChangeMemberRole(ctx context.Context, caller Caller, p *ChangeMemberRolePayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	membership, err := e.membershipOrNil(ctx, p.RoomID, ac.UserID)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireRoomRole(ac, membership, domain.RoomRoleOwner); err != nil {
		return Response{}, nil, err
	}
	if err := e.rooms.ChangeMemberRole(ctx, p.RoomID, p.UserID, p.Role); err != nil {
		if isConflict(err) {
			return Response{}, nil, apperr.New(apperr.CodeLastOwner, "the room must retain at least one owner")
		}
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeNotRoomMember, "user is not a member of this room")
		}
		return Response{}, nil, err
	}
	return Response{Kind: CmdChangeMemberRole, Empty: &EmptyResponse{}}, nil, nil
}

func (e *ChatEngine) handleRemoveMember(ctx context.Context, caller Caller, p *RemoveMemberPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	membership, err := e.membershipOrNil(ctx, p.RoomID, ac.UserID)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireRoomRole(ac, membership, domain.RoomRoleModerator); err != nil {
		return Response{}, nil, err
	}

	unlock := e.targetLocks.lock(roomLockKey(p.RoomID))
	defer unlock()

	if err := e.rooms.RemoveMember(ctx, p.RoomID, p.UserID); err != nil {
		if isConflict(err) {
			return Response{}, nil, apperr.New(apperr.CodeLastOwner, "the room must retain at least one owner")
		}
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeNotRoomMember, "user is not a member of this room")
		}
		return Response{}, nil, err
	}

	evt := e.newEvent(events.UserLeftRoom)
	evt.Membership = &events.MembershipPayload{RoomID: p.RoomID, UserID: p.UserID}
	if members, mErr := e.rooms.ListMembers(ctx, p.RoomID); mErr == nil {
		evt.Membership.Members = membershipUserIDs(members)
	}
	return Response{Kind: CmdRemoveMember, Empty: &EmptyResponse{}}, []events.Event{evt}, nil
}

// membershipOrNil returns the caller's membership in roomID, or nil (not an
// error) if they are not a member.
func (e *ChatEngine) membershipOrNil(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.RoomMembership, error) {
	m, err := e.rooms.GetMembership(ctx, roomID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// requireMembership fails with NotRoomMember unless the caller belongs to
// roomID.
func (e *ChatEngine) requireMembership(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.RoomMembership, error) {
	m, err := e.membershipOrNil(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.CodeNotRoomMember, "you are not a member of this room")
	}
	return m, nil
}
