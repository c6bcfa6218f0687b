package wsgateway

import (
	"context"
	"time"

	fhws "github.com/fasthttp/websocket"
	gwws "github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/dispatch"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/session"
	"github.com/lair-chat/lair-chat-server/internal/wire"
)

// Timeouts mirror internal/tcpproto's, minus the handshake stage (the HTTP
// upgrade already completed the transport setup).
const (
	authTimeout = 60 * time.Second
	idleTimeout = 90 * time.Second
)

// Handler serves the WebSocket upgrade endpoint and drives each connection's
// command loop against the shared ChatEngine.
type Handler struct {
	engine     *engine.ChatEngine
	dispatcher *dispatch.Dispatcher
	sessions   *session.Registry
	log        zerolog.Logger
}

func New(eng *engine.ChatEngine, dispatcher *dispatch.Dispatcher, sessions *session.Registry, log zerolog.Logger) *Handler {
	return &Handler{engine: eng, dispatcher: dispatcher, sessions: sessions, log: log}
}

// Upgrade is a fiber v3 handler for the gateway route: reject non-upgrade
// requests, then hand the raw connection to the per-connection command
// loop.
func (h *Handler) Upgrade(c fiber.Ctx) error {
	if !gwws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return gwws.New(func(ws *gwws.Conn) {
		h.serve(ws.Conn)
	})(c)
}

func (h *Handler) serve(ws *fhws.Conn) {
	conn := newConn(ws)
	go conn.writePump()

	defer func() {
		h.sessions.UnregisterByConn(conn)
		_ = conn.Close()
	}()

	ctx := context.Background()
	var caller engine.Caller = engine.AnonymousCaller{}
	authTimer := time.AfterFunc(authTimeout, func() {
		h.log.Debug().Msg("wsgateway connection did not authenticate in time")
		_ = conn.Close()
	})
	defer authTimer.Stop()

	for {
		_ = ws.SetReadDeadline(time.Now().Add(idleTimeout))
		payload, err := conn.readMessage()
		if err != nil {
			return
		}

		cmd, requestID, err := wire.DecodeCommand(payload)
		if err != nil {
			if frame, encErr := wire.EncodeProtocolError(err, requestID); encErr == nil {
				_ = conn.Send(frame)
			}
			continue
		}

		if cmd.Kind == engine.CmdPong {
			continue
		}

		resp, evts, dispatchErr := h.engine.Dispatch(ctx, cmd, caller)
		if dispatchErr != nil {
			if frame, encErr := wire.EncodeErrorResponse(cmd.Kind, dispatchErr, requestID); encErr == nil {
				_ = conn.Send(frame)
			}
			continue
		}

		if frame, encErr := wire.EncodeResponse(resp, requestID); encErr == nil {
			_ = conn.Send(frame)
		} else {
			h.log.Error().Err(encErr).Str("command", cmd.Kind.String()).Msg("failed to encode response")
		}

		for _, evt := range evts {
			h.dispatcher.Dispatch(ctx, evt)
		}

		caller = h.advanceCaller(ctx, caller, cmd, resp, authTimer, conn)
	}
}

func (h *Handler) advanceCaller(ctx context.Context, caller engine.Caller, cmd engine.Command, resp engine.Response, authTimer *time.Timer, conn *Conn) engine.Caller {
	if resp.Auth != nil {
		authTimer.Stop()
		wasOnline := h.sessions.IsOnline(resp.Auth.User.ID)
		h.sessions.Register(&session.Entry{
			SessionID:  resp.Auth.Session.ID,
			UserID:     resp.Auth.User.ID,
			Kind:       domain.SessionWebSocket,
			Conn:       conn,
			CreatedAt:  resp.Auth.Session.CreatedAt,
			ExpiresAt:  resp.Auth.Session.ExpiresAt,
			LastActive: time.Now(),
		})
		if !wasOnline {
			evt := events.New(events.UserOnline, time.Now())
			evt.Presence = &events.PresencePayload{UserID: resp.Auth.User.ID}
			h.dispatcher.Dispatch(ctx, evt)
		}
		return engine.AuthenticatedCaller{SessionID: resp.Auth.Session.ID, UserID: resp.Auth.User.ID, Role: resp.Auth.User.Role}
	}

	if cmd.Kind == engine.CmdLogout {
		if ac, ok := caller.(engine.AuthenticatedCaller); ok {
			h.sessions.Unregister(ac.SessionID)
		}
		return engine.AnonymousCaller{}
	}

	return caller
}
