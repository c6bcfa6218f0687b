// Package engine implements the Command router: the single entry point
// that validates, authorizes, persists, and emits events for every chat
// operation, independent of which wire it arrived over. Its structure — a
// typed command dispatched through one switch, repositories as the only
// side-effecting dependency, logging via zerolog — generalizes the
// service-layer idioms of auth, message, and channel handling into one
// protocol-agnostic router, rather than mixing transport and business
// logic the way a connection hub typically does.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/ratelimit"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// Clock abstracts time.Now so engine tests can run against a fixed clock.
type Clock func() time.Time

// ChatEngine is the command router. It depends only on the repository
// interfaces, the auth service, a rate limiter, and a clock — never on a
// transport package — so internal/restapi, internal/tcpproto and
// internal/wsgateway can all drive the same engine.
type ChatEngine struct {
	auth *authsvc.Service
	users repo.UserRepository
	rooms repo.RoomRepository
	messages repo.MessageRepository
	invitations repo.InvitationRepository
	blocks repo.BlockRepository
	limiter ratelimit.Limiter
	clock Clock
	log zerolog.Logger

	targetLocks keyedMutex
}

// Config groups ChatEngine's dependencies.
type Config struct {
	Auth *authsvc.Service
	Users repo.UserRepository
	Rooms repo.RoomRepository
	Messages repo.MessageRepository
	Invitations repo.InvitationRepository
	Blocks repo.BlockRepository
	Limiter ratelimit.Limiter
	Clock Clock
	Logger zerolog.Logger
}

// New builds a ChatEngine.
func New(cfg Config) *ChatEngine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ChatEngine{
		auth: cfg.Auth,
		users: cfg.Users,
		rooms: cfg.Rooms,
		messages: cfg.Messages,
		invitations: cfg.Invitations,
		blocks: cfg.Blocks,
		limiter: cfg.Limiter,
		clock: clock,
		log: cfg.Logger,
	}
}

// commandTimeout is the per-command server-side budget.
const commandTimeout = 5 * time.Second

// Dispatch is the single entry point for every chat operation: it derives
// a bounded context, switches on cmd.Kind, and returns a Response alongside
// zero or more Events for internal/dispatch to fan out.
func (e *ChatEngine) Dispatch(ctx context.Context, cmd Command, caller Caller) (Response, []events.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	resp, evts, err := e.dispatch(ctx, cmd, caller)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Response{}, nil, apperr.InternalTimeout()
		}
		return Response{}, nil, err
	}
	return resp, evts, nil
}

func (e *ChatEngine) dispatch(ctx context.Context, cmd Command, caller Caller) (Response, []events.Event, error) {
	switch cmd.Kind {
	case CmdRegister:
		return e.handleRegister(ctx, cmd.Register)
	case CmdLogin:
		return e.handleLogin(ctx, cmd.Login)
	case CmdLogout:
		return e.handleLogout(ctx, caller)
	case CmdRefresh:
		return e.handleRefresh(ctx, caller)
	case CmdAuthenticate:
		return e.handleAuthenticate(ctx, cmd.Authenticate)
	case CmdChangePassword:
		return e.handleChangePassword(ctx, caller, cmd.ChangePassword)

	case CmdGetUser:
		return e.handleGetUser(ctx, caller, cmd.GetUser)
	case CmdListUsers:
		return e.handleListUsers(ctx, caller, cmd.ListUsers)

	case CmdCreateRoom:
		return e.handleCreateRoom(ctx, caller, cmd.CreateRoom)
	case CmdGetRoom:
		return e.handleGetRoom(ctx, caller, cmd.GetRoom)
	case CmdListRooms:
		return e.handleListRooms(ctx, caller, cmd.ListRooms)
	case CmdUpdateRoom:
		return e.handleUpdateRoom(ctx, caller, cmd.UpdateRoom)
	case CmdDeleteRoom:
		return e.handleDeleteRoom(ctx, caller, cmd.DeleteRoom)
	case CmdJoinRoom:
		return e.handleJoinRoom(ctx, caller, cmd.JoinRoom)
	case CmdLeaveRoom:
		return e.handleLeaveRoom(ctx, caller, cmd.LeaveRoom)
	case CmdListMembers:
		return e.handleListMembers(ctx, caller, cmd.ListMembers)
	case CmdChangeMemberRole:
		return e.handleChangeMemberRole(ctx, caller, cmd.ChangeMemberRole)
	case CmdRemoveMember:
		return e.handleRemoveMember(ctx, caller, cmd.RemoveMember)

	case CmdInviteToRoom:
		return e.handleInviteToRoom(ctx, caller, cmd.InviteToRoom)
	case CmdAcceptInvitation:
		return e.handleAcceptInvitation(ctx, caller, cmd.AcceptInvitation)
	case CmdDeclineInvitation:
		return e.handleDeclineInvitation(ctx, caller, cmd.DeclineInvitation)
	case CmdListInvitations:
		return e.handleListInvitations(ctx, caller)

	case CmdSendMessage:
		return e.handleSendMessage(ctx, caller, cmd.SendMessage)
	case CmdEditMessage:
		return e.handleEditMessage(ctx, caller, cmd.EditMessage)
	case CmdDeleteMessage:
		return e.handleDeleteMessage(ctx, caller, cmd.DeleteMessage)
	case CmdListMessages:
		return e.handleListMessages(ctx, caller, cmd.ListMessages)

	case CmdAdminStats:
		return e.handleAdminStats(ctx, caller)
	case CmdAdminBanUser:
		return e.handleAdminBanUser(ctx, caller, cmd.AdminBanUser)
	case CmdAdminUnbanUser:
		return e.handleAdminUnbanUser(ctx, caller, cmd.AdminUnbanUser)
	case CmdAdminDeleteRoom:
		return e.handleAdminDeleteRoom(ctx, caller, cmd.AdminDeleteRoom)

	case CmdPing:
		return e.handlePing(ctx, cmd.Ping)
	case CmdPong:
		return Response{Kind: CmdPong, Empty: &EmptyResponse{}}, nil, nil

	default:
		return Response{}, nil, apperr.New(apperr.CodeValidationFailed, "unknown command kind")
	}
}

// newEvent is a small helper so handlers don't repeat e.clock() at every
// call site.
func (e *ChatEngine) newEvent(kind events.Kind) events.Event {
	return events.New(kind, e.clock())
}
