// Package dispatch computes the audience for each events.Event and delivers
// it through the session registry. It generalizes a plain "every connected
// client" broadcast loop into a per-event audience table, sharded by
// target instead of funneled through one global broadcast goroutine.
package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/repo"
	"github.com/lair-chat/lair-chat-server/internal/session"
	"github.com/lair-chat/lair-chat-server/internal/wire"
)

// Dispatcher fans events out to the sessions of their computed audience.
type Dispatcher struct {
	sessions *session.Registry
	rooms repo.RoomRepository
	messages repo.MessageRepository
	log zerolog.Logger

	workers *workerPool
}

// New builds a Dispatcher. The room and message repositories are the same
// instances wired into the ChatEngine, and the registry is the one the
// transports register connections in — the dispatcher never mutates the
// repositories, only reads membership to compute audiences.
func New(sessions *session.Registry, rooms repo.RoomRepository, messages repo.MessageRepository, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{sessions: sessions, rooms: rooms, messages: messages, log: log}
	d.workers = newWorkerPool(d.deliver)
	return d
}

// Dispatch hands evt to the worker for its target key, preserving delivery
// order relative to other events on the same target. Events with no single target (ServerNotice,
// SessionExpiring, InvitationReceived/Cancelled) are delivered inline since
// there is no cross-event ordering to preserve for them.
func (d *Dispatcher) Dispatch(ctx context.Context, evt events.Event) {
	key := targetKey(evt)
	if key == "" {
		d.deliver(ctx, evt)
		return
	}
	d.workers.enqueue(key, evt)
}

// targetKey returns the worker-routing key for evt, or "" if the event has
// no single target whose relative ordering must be preserved.
func targetKey(evt events.Event) string {
	switch evt.Kind {
	case events.MessageReceived, events.MessageEdited, events.MessageDeleted:
		return evt.Message.Message.Target.Key(evt.Message.Message.AuthorID)
	case events.UserJoinedRoom, events.UserLeftRoom:
		return "room:" + evt.Membership.RoomID.String()
	case events.RoomUpdated, events.RoomDeleted:
		return "room:" + evt.Room.Room.ID.String()
	case events.UserTyping:
		return evt.Typing.Target.Key(evt.Typing.UserID)
	default:
		return ""
	}
}

// deliver computes evt's audience and pushes it to every member's live
// sessions. It is called from exactly one worker goroutine per target key,
// so repository reads here never race with another delivery for the same
// target.
func (d *Dispatcher) deliver(ctx context.Context, evt events.Event) {
	audience, err := d.audienceFor(ctx, evt)
	if err != nil {
		d.log.Error().Err(err).Str("event", evt.Kind.String()).Msg("failed to compute event audience")
		return
	}

	payload, err := wire.EncodeEvent(evt)
	if err != nil {
		d.log.Error().Err(err).Str("event", evt.Kind.String()).Msg("failed to encode event")
		return
	}

	if evt.Kind == events.SessionExpiring {
		if err := d.sessions.DeliverToSession(evt.Expiring.SessionID, payload); err != nil {
			d.log.Debug().Err(err).Str("session_id", evt.Expiring.SessionID.String()).Msg("session_expiring delivery failed")
		}
		return
	}

	for _, userID := range audience {
		d.sessions.Deliver(userID, payload)
	}
}

// audienceFor maps each Event kind to the set of users it is addressed to.
func (d *Dispatcher) audienceFor(ctx context.Context, evt events.Event) ([]domain.UserID, error) {
	switch evt.Kind {
	case events.MessageReceived, events.MessageEdited, events.MessageDeleted:
		if evt.Message.Audience != nil {
			return evt.Message.Audience, nil
		}
		return d.membersOfTarget(ctx, evt.Message.Message.Target, evt.Message.Message.AuthorID)

	case events.UserJoinedRoom, events.UserLeftRoom:
		if evt.Membership.Members != nil {
			return evt.Membership.Members, nil
		}
		members, err := d.rooms.ListMembers(ctx, evt.Membership.RoomID)
		if err != nil {
			return nil, err
		}
		return membershipUserIDs(members), nil

	case events.RoomUpdated:
		members, err := d.rooms.ListMembers(ctx, evt.Room.Room.ID)
		if err != nil {
			return nil, err
		}
		return membershipUserIDs(members), nil

	case events.RoomDeleted:
		// The room and its memberships are already gone by the time this
		// event reaches the dispatcher; internal/engine snapshots the
		// member list into the event itself before committing the delete.
		return evt.Room.Members, nil

	case events.UserOnline, events.UserOffline:
		return d.presenceAudience(ctx, evt.Presence.UserID)

	case events.UserTyping:
		members, err := d.membersOfTarget(ctx, evt.Typing.Target, evt.Typing.UserID)
		if err != nil {
			return nil, err
		}
		return excludeUser(members, evt.Typing.UserID), nil

	case events.InvitationReceived, events.InvitationCancelled:
		return []domain.UserID{evt.Invitation.Invitation.InviteeID}, nil

	case events.ServerNotice:
		return d.sessions.AllUserIDs(), nil

	case events.SessionExpiring:
		// Handled directly in deliver via DeliverToSession; never reaches
		// here with a non-empty audience requirement.
		return nil, nil

	default:
		return nil, nil
	}
}

// membersOfTarget resolves a MessageTarget (room or DM pair) to the set of
// user ids currently addressed by it.
func (d *Dispatcher) membersOfTarget(ctx context.Context, target domain.MessageTarget, author domain.UserID) ([]domain.UserID, error) {
	if target.Kind == domain.TargetRoom {
		members, err := d.rooms.ListMembers(ctx, target.RoomID)
		if err != nil {
			return nil, err
		}
		return membershipUserIDs(members), nil
	}
	return []domain.UserID{author, target.RecipientID}, nil
}

// presenceAudience computes "union of (members of each room u is in) ∪ (DM
// partners of u), minus u" for UserOnline/UserOffline.
func (d *Dispatcher) presenceAudience(ctx context.Context, u domain.UserID) ([]domain.UserID, error) {
	roomIDs, err := d.rooms.RoomIDsForUser(ctx, u)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.UserID]struct{})
	for _, roomID := range roomIDs {
		members, err := d.rooms.ListMembers(ctx, roomID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			seen[m.UserID] = struct{}{}
		}
	}

	partners, err := d.messages.DMPartners(ctx, u)
	if err != nil {
		return nil, err
	}
	for _, p := range partners {
		seen[p] = struct{}{}
	}
	delete(seen, u)

	out := make([]domain.UserID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func membershipUserIDs(members []domain.RoomMembership) []domain.UserID {
	out := make([]domain.UserID, len(members))
	for i, m := range members {
		out[i] = m.UserID
	}
	return out
}

func excludeUser(ids []domain.UserID, exclude domain.UserID) []domain.UserID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
