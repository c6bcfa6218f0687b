package tcpproto

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/dispatch"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/session"
	"github.com/lair-chat/lair-chat-server/internal/wire"
)

// Timeouts for each stage of a connection's lifetime.
const (
	handshakeTimeout = 30 * time.Second
	authTimeout = 60 * time.Second
	idleTimeout = 90 * time.Second
)

// Server accepts raw TCP connections, runs the handshake, and drives each
// connection's command loop against the shared ChatEngine. There is no
// shared broadcast loop here because internal/dispatch already owns
// fan-out, and each Conn is addressed directly through the session
// registry.
type Server struct {
	engine *engine.ChatEngine
	dispatcher *dispatch.Dispatcher
	sessions *session.Registry
	log zerolog.Logger

	requireEncryption bool
}

// New builds a Server. The three dependencies are the same instances wired
// into the rest of the process (internal/wsgateway shares all three;
// internal/restapi shares the engine and dispatcher). Encryption is required by default; use
// SetRequireEncryption(false) to allow the handshake to negotiate it away
// for clients that don't offer it, e.g. on a network that already provides
// transport security.
func New(eng *engine.ChatEngine, dispatcher *dispatch.Dispatcher, sessions *session.Registry, log zerolog.Logger) *Server {
	return &Server{engine: eng, dispatcher: dispatcher, sessions: sessions, log: log, requireEncryption: true}
}

// SetRequireEncryption overrides the server's handshake encryption policy.
func (s *Server) SetRequireEncryption(required bool) {
	s.requireEncryption = required
}

// Serve accepts connections on ln until ctx is cancelled or the listener
// errors. Each connection is handled on its own goroutine, with a
// dedicated read/write goroutine pair per client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && !ne.Temporary() {
				return err
			}
			continue
		}
		go s.handleConn(ctx, raw)
	}
}

// handleConn runs the handshake and then the per-connection command loop.
// It always unregisters and closes the connection on return.
func (s *Server) handleConn(ctx context.Context, raw net.Conn) {
	_ = raw.SetDeadline(time.Now().Add(handshakeTimeout))
	cipher, err := serverHandshake(raw, s.requireEncryption)
	if err != nil {
		s.log.Debug().Err(err).Str("remote_addr", raw.RemoteAddr().String()).Msg("tcpproto handshake failed")
		_ = raw.Close()
		return
	}
	_ = raw.SetDeadline(time.Time{})

	conn := newConn(raw, cipher)
	go conn.writePump()

	defer func() {
		s.sessions.UnregisterByConn(conn)
		_ = conn.Close()
	}()

	var caller engine.Caller = engine.AnonymousCaller{}
	authTimer := time.AfterFunc(authTimeout, func() {
		s.log.Debug().Msg("tcpproto connection did not authenticate in time")
		_ = conn.Close()
	})
	defer authTimer.Stop()

	for {
		_ = raw.SetReadDeadline(time.Now().Add(idleTimeout))
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
			// An unprompted Pong is pure keepalive: the read deadline was
			// already refreshed above, nothing else needs to happen.
			continue
		}

		resp, evts, dispatchErr := s.engine.Dispatch(ctx, cmd, caller)
		if dispatchErr != nil {
			if frame, encErr := wire.EncodeErrorResponse(cmd.Kind, dispatchErr, requestID); encErr == nil {
				_ = conn.Send(frame)
			}
			continue
		}

		if frame, encErr := wire.EncodeResponse(resp, requestID); encErr == nil {
			_ = conn.Send(frame)
		} else {
			s.log.Error().Err(encErr).Str("command", cmd.Kind.String()).Msg("failed to encode response")
		}

		for _, evt := range evts {
			s.dispatcher.Dispatch(ctx, evt)
		}

		caller = s.advanceCaller(ctx, caller, cmd, resp, authTimer, conn)
	}
}

// advanceCaller updates the connection's authentication state after a
// command completes: a successful auth response registers the session
// (stopping the auth timer) and, the first time a user comes online, emits
// events.UserOnline; a successful logout tears the session back down.
func (s *Server) advanceCaller(ctx context.Context, caller engine.Caller, cmd engine.Command, resp engine.Response, authTimer *time.Timer, conn *Conn) engine.Caller {
	if resp.Auth != nil {
		authTimer.Stop()
		wasOnline := s.sessions.IsOnline(resp.Auth.User.ID)
		s.sessions.Register(&session.Entry{
			SessionID: resp.Auth.Session.ID,
			UserID: resp.Auth.User.ID,
			Kind: domain.SessionTCP,
			Conn: conn,
			CreatedAt: resp.Auth.Session.CreatedAt,
			ExpiresAt: resp.Auth.Session.ExpiresAt,
			LastActive: time.Now(),
		})
		if !wasOnline {
			evt := events.New(events.UserOnline, time.Now())
			evt.Presence = &events.PresencePayload{UserID: resp.Auth.User.ID}
			s.dispatcher.Dispatch(ctx, evt)
		}
		return engine.AuthenticatedCaller{SessionID: resp.Auth.Session.ID, UserID: resp.Auth.User.ID, Role: resp.Auth.User.Role}
	}

	if cmd.Kind == engine.CmdLogout {
		if ac, ok := caller.(engine.AuthenticatedCaller); ok {
			s.sessions.Unregister(ac.SessionID)
		}
		return engine.AnonymousCaller{}
	}

	return caller
}
