package engine

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/ratelimit"
)

// handleSendMessage enforces SendMessage's authorization rule and the
// per-target ordering guarantee: the keyed mutex keyed by the message
// target serializes concurrent sends to the same room or DM so commit
// order matches lock-acquisition order, which dispatch then mirrors when
// fanning events out.
func (e *ChatEngine) handleSendMessage(ctx context.Context, caller Caller, p *SendMessagePayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	if e.limiter != nil {
		res, err := e.limiter.Allow(ctx, ac.UserID.String(), ratelimit.CategoryMessage)
		if err != nil {
			return Response{}, nil, err
		}
		if !res.Allowed {
			return Response{}, nil, apperr.RateLimited(int(res.RetryAfter.Seconds()), res.Limit)
		}
	}

	content, err := domain.NewMessageContent(p.Content)
	if err != nil {
		return Response{}, nil, err
	}

	unlock := e.targetLocks.lock(p.Target.Key(ac.UserID))
	defer unlock()

	if p.Target.Kind == domain.TargetRoom {
		membership, err := e.membershipOrNil(ctx, p.Target.RoomID, ac.UserID)
		if err != nil {
			return Response{}, nil, err
		}
		if membership == nil {
			return Response{}, nil, apperr.New(apperr.CodeNotRoomMember, "you are not a member of this room")
		}
		room, err := e.rooms.GetByID(ctx, p.Target.RoomID)
		if err != nil {
			if isNotFound(err) {
				return Response{}, nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
			}
			return Response{}, nil, err
		}
		if room.Settings.Moderated && !membership.Role.AtLeast(domain.RoomRoleModerator) {
			return Response{}, nil, apperr.PermissionDenied("only moderators and the owner may post in this room")
		}
	} else {
		if ac.UserID == p.Target.RecipientID {
			return Response{}, nil, apperr.ValidationField("target", "invalid_format", "cannot send a direct message to yourself")
		}
		if e.blocks != nil {
			blocked, err := e.blocks.IsBlocked(ctx, p.Target.RecipientID, ac.UserID)
			if err != nil {
				return Response{}, nil, err
			}
			if blocked {
				return Response{}, nil, apperr.PermissionDenied("this user has blocked you")
			}
		}
	}

	msg := domain.Message{
		ID: domain.NewMessageID(),
		AuthorID: ac.UserID,
		Target: p.Target,
		Content: content,
		CreatedAt: e.clock(),
	}

	created, err := e.messages.Create(ctx, msg)
	if err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.MessageReceived)
	evt.Message = &events.MessagePayload{Message: *created}
	if audience, aerr := e.audienceForTarget(ctx, p.Target, ac.UserID); aerr == nil {
		evt.Message.Audience = audience
	}
	return Response{Kind: CmdSendMessage, Message: &MessageResponse{Message: *created}}, []events.Event{evt}, nil
}

// audienceForTarget resolves target's current membership to the user ids a
// message addressed to it reaches, mirroring internal/dispatch's own
// audience computation so the result can be snapshotted under the same
// per-target lock that serializes the write producing the event.
func (e *ChatEngine) audienceForTarget(ctx context.Context, target domain.MessageTarget, author domain.UserID) ([]domain.UserID, error) {
	if target.Kind == domain.TargetRoom {
		members, err := e.rooms.ListMembers(ctx, target.RoomID)
		if err != nil {
			return nil, err
		}
		return membershipUserIDs(members), nil
	}
	return []domain.UserID{author, target.RecipientID}, nil
}

func (e *ChatEngine) handleEditMessage(ctx context.Context, caller Caller, p *EditMessagePayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	content, err := domain.NewMessageContent(p.Content)
	if err != nil {
		return Response{}, nil, err
	}

	msg, err := e.messages.GetByID(ctx, p.MessageID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeMessageNotFound, "message not found")
		}
		return Response{}, nil, err
	}
	if msg.AuthorID != ac.UserID {
		return Response{}, nil, apperr.New(apperr.CodeNotMessageAuthor, "only the author may edit this message")
	}
	if msg.Deleted {
		return Response{}, nil, apperr.New(apperr.CodeMessageNotFound, "message has been deleted")
	}

	unlock := e.targetLocks.lock(msg.Target.Key(msg.AuthorID))
	defer unlock()

	previous := msg.Content
	updated, err := e.messages.Update(ctx, p.MessageID, content, e.clock())
	if err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.MessageEdited)
	evt.Message = &events.MessagePayload{Message: *updated, PreviousContent: &previous}
	if audience, aerr := e.audienceForTarget(ctx, updated.Target, updated.AuthorID); aerr == nil {
		evt.Message.Audience = audience
	}
	return Response{Kind: CmdEditMessage, Message: &MessageResponse{Message: *updated}}, []events.Event{evt}, nil
}

// handleDeleteMessage implements the own-delete and moderator-delete
// rules, plus an idempotency guarantee: repeating a delete on an
// already-deleted message succeeds with already_deleted=true rather than
// failing.
func (e *ChatEngine) handleDeleteMessage(ctx context.Context, caller Caller, p *DeleteMessagePayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	msg, err := e.messages.GetByID(ctx, p.MessageID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.New(apperr.CodeMessageNotFound, "message not found")
		}
		return Response{}, nil, err
	}

	if msg.Deleted {
		return Response{Kind: CmdDeleteMessage, DeletedMessage: &DeletedMessageResponse{AlreadyDeleted: true}}, nil, nil
	}

	authorized := msg.AuthorID == ac.UserID
	if !authorized && msg.Target.Kind == domain.TargetRoom {
		membership, mErr := e.membershipOrNil(ctx, msg.Target.RoomID, ac.UserID)
		if mErr != nil {
			return Response{}, nil, mErr
		}
		if membership != nil && membership.Role.AtLeast(domain.RoomRoleModerator) {
			authorized = true
		}
	}
	if !authorized && ac.Role == domain.RoleAdmin {
		authorized = true
	}
	if !authorized {
		return Response{}, nil, apperr.New(apperr.CodeNotMessageAuthor, "you may not delete this message")
	}

	unlock := e.targetLocks.lock(msg.Target.Key(msg.AuthorID))
	defer unlock()

	if err := e.messages.SoftDelete(ctx, p.MessageID); err != nil {
		return Response{}, nil, err
	}

	evt := e.newEvent(events.MessageDeleted)
	tombstoned := *msg
	tombstoned.Deleted = true
	tombstoned.Content = domain.TombstoneContent()
	evt.Message = &events.MessagePayload{Message: tombstoned}
	if audience, aerr := e.audienceForTarget(ctx, msg.Target, msg.AuthorID); aerr == nil {
		evt.Message.Audience = audience
	}
	return Response{Kind: CmdDeleteMessage, DeletedMessage: &DeletedMessageResponse{AlreadyDeleted: false}}, []events.Event{evt}, nil
}

func (e *ChatEngine) handleListMessages(ctx context.Context, caller Caller, p *ListMessagesPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}

	var msgs []domain.Message
	if p.Target.Kind == domain.TargetRoom {
		if _, err := e.requireMembership(ctx, p.Target.RoomID, ac.UserID); err != nil {
			return Response{}, nil, err
		}
		msgs, err = e.messages.ListByRoom(ctx, p.Target.RoomID, p.Page)
	} else {
		if ac.UserID != p.Target.RecipientID {
			msgs, err = e.messages.ListDirect(ctx, ac.UserID, p.Target.RecipientID, p.Page)
		} else {
			return Response{}, nil, apperr.ValidationField("target", "invalid_format", "invalid direct message target")
		}
	}
	if err != nil {
		return Response{}, nil, err
	}

	return Response{Kind: CmdListMessages, Messages: &MessagesResponse{Messages: msgs}}, nil, nil
}
