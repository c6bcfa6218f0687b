package engine

import (
	"context"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/events"
)

func (e *ChatEngine) handleInviteToRoom(ctx context.Context, caller Caller, p *InviteToRoomPayload) (Response, []events.Event, error) {
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

	if _, err := e.users.GetByID(ctx, p.InviteeID); err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.NotFound("invitee does not exist")
		}
		return Response{}, nil, err
	}

	if existing, err := e.membershipOrNil(ctx, p.RoomID, p.InviteeID); err != nil {
		return Response{}, nil, err
	} else if existing != nil {
		return Response{}, nil, apperr.New(apperr.CodeAlreadyMember, "user is already a member of this room")
	}

	if pending, err := e.invitations.GetPending(ctx, p.RoomID, p.InviteeID); err != nil && !isNotFound(err) {
		return Response{}, nil, err
	} else if pending != nil && pending.IsPending(e.clock()) {
		return Response{}, nil, apperr.New(apperr.CodeAlreadyInvited, "this user already has a pending invitation")
	}

	now := e.clock()
	inv := domain.Invitation{
		ID:        domain.NewInvitationID(),
		RoomID:    p.RoomID,
		InviterID: ac.UserID,
		InviteeID: p.InviteeID,
		Status:    domain.InvitationPending,
		CreatedAt: now,
	}
	if p.ExpiresIn != nil {
		expiry := now.Add(time.Duration(*p.ExpiresIn) * time.Second)
		inv.ExpiresAt = &expiry
	}

	created, err := e.invitations.Create(ctx, inv)
	if err != nil {
		if isConflict(err) {
			return Response{}, nil, apperr.New(apperr.CodeAlreadyInvited, "this user already has a pending invitation")
		}
		return Response{}, nil, err
	}

	evt := e.newEvent(events.InvitationReceived)
	evt.Invitation = &events.InvitationPayload{Invitation: *created}
	return Response{Kind: CmdInviteToRoom, Invitation: &InvitationResponse{Invitation: *created}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleAcceptInvitation(ctx context.Context, caller Caller, p *AcceptInvitationPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	inv, err := e.invitations.GetByID(ctx, p.InvitationID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.NotFound("invitation not found")
		}
		return Response{}, nil, err
	}
	if inv.InviteeID != ac.UserID {
		return Response{}, nil, apperr.New(apperr.CodeNotInvitee, "this invitation was not sent to you")
	}
	if inv.Status != domain.InvitationPending {
		return Response{}, nil, apperr.New(apperr.CodeInvitationUsed, "this invitation has already been resolved")
	}
	if !inv.IsPending(e.clock()) {
		return Response{}, nil, apperr.New(apperr.CodeInvitationExpired, "this invitation has expired")
	}

	if _, err := e.rooms.AddMember(ctx, inv.RoomID, ac.UserID, domain.RoomRoleMember); err != nil && !isConflict(err) {
		return Response{}, nil, err
	}
	if err := e.invitations.SetStatus(ctx, inv.ID, domain.InvitationAccepted); err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.UserJoinedRoom)
	evt.Membership = &events.MembershipPayload{RoomID: inv.RoomID, UserID: ac.UserID}
	return Response{Kind: CmdAcceptInvitation, Empty: &EmptyResponse{}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleDeclineInvitation(ctx context.Context, caller Caller, p *DeclineInvitationPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	inv, err := e.invitations.GetByID(ctx, p.InvitationID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.NotFound("invitation not found")
		}
		return Response{}, nil, err
	}
	if inv.InviteeID != ac.UserID {
		return Response{}, nil, apperr.New(apperr.CodeNotInvitee, "this invitation was not sent to you")
	}
	if inv.Status != domain.InvitationPending {
		return Response{}, nil, apperr.New(apperr.CodeInvitationUsed, "this invitation has already been resolved")
	}

	if err := e.invitations.SetStatus(ctx, inv.ID, domain.InvitationDeclined); err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.InvitationCancelled)
	evt.Invitation = &events.InvitationPayload{Invitation: *inv}
	return Response{Kind: CmdDeclineInvitation, Empty: &EmptyResponse{}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleListInvitations(ctx context.Context, caller Caller) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	invs, err := e.invitations.ListPendingForUser(ctx, ac.UserID)
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdListInvitations, Invitations: &InvitationsResponse{Invitations: invs}}, nil, nil
}
