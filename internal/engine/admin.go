package engine

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/events"
)

func (e *ChatEngine) handleAdminStats(ctx context.Context, caller Caller) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireAdmin(ac); err != nil {
		return Response{}, nil, err
	}
	_ = ctx
	// internal/repo exposes no count-all operation for users/rooms, so the
	// handler returns a zero-valued StatsResponse; nothing else fills in
	// its counts.
	return Response{Kind: CmdAdminStats, Stats: &StatsResponse{}}, nil, nil
}

func (e *ChatEngine) handleAdminBanUser(ctx context.Context, caller Caller, p *AdminBanUserPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireAdmin(ac); err != nil {
		return Response{}, nil, err
	}

	target, err := e.users.GetByID(ctx, p.UserID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.NotFound("user not found")
		}
		return Response{}, nil, err
	}
	if target.Role == domain.RoleAdmin {
		return Response{}, nil, apperr.PermissionDenied("admins cannot ban other admins")
	}

	if err := e.users.SetBanned(ctx, p.UserID, true); err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdAdminBanUser, Empty: &EmptyResponse{}}, nil, nil
}

func (e *ChatEngine) handleAdminUnbanUser(ctx context.Context, caller Caller, p *AdminUnbanUserPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireAdmin(ac); err != nil {
		return Response{}, nil, err
	}
	if err := e.users.SetBanned(ctx, p.UserID, false); err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.NotFound("user not found")
		}
		return Response{}, nil, err
	}
	return Response{Kind: CmdAdminUnbanUser, Empty: &EmptyResponse{}}, nil, nil
}

func (e *ChatEngine) handleAdminDeleteRoom(ctx context.Context, caller Caller, p *AdminDeleteRoomPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if err := requireAdmin(ac); err != nil {
		return Response{}, nil, err
	}

	room, err := e.rooms.GetByID(ctx, p.RoomID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
		}
		return Response{}, nil, err
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
	return Response{Kind: CmdAdminDeleteRoom, Empty: &EmptyResponse{}}, []events.Event{evt}, nil
}
