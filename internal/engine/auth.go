package engine

import (
	"context"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/events"
	"github.com/lair-chat/lair-chat-server/internal/ratelimit"
)

func (e *ChatEngine) handleRegister(ctx context.Context, p *RegisterPayload) (Response, []events.Event, error) {
	if p.SourceIP != "" && e.limiter != nil {
		if res, err := e.limiter.Allow(ctx, p.SourceIP, ratelimit.CategoryAuth); err != nil {
			return Response{}, nil, err
		} else if !res.Allowed {
			return Response{}, nil, apperr.RateLimited(int(res.RetryAfter.Seconds()), res.Limit)
		}
	}

	result, err := e.auth.Register(ctx, authsvc.RegisterRequest{
		Username: p.Username,
		Email: p.Email,
		Password: p.Password,
	})
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdRegister, Auth: &AuthResponse{
		User: result.User, Session: result.Session, Token: result.Token,
	}}, nil, nil
}

func (e *ChatEngine) handleLogin(ctx context.Context, p *LoginPayload) (Response, []events.Event, error) {
	if e.limiter != nil {
		subject := p.SourceIP + ":" + p.Identifier
		if res, err := e.limiter.Allow(ctx, subject, ratelimit.CategoryAuth); err != nil {
			return Response{}, nil, err
		} else if !res.Allowed {
			return Response{}, nil, apperr.RateLimited(int(res.RetryAfter.Seconds()), res.Limit)
		}
	}

	kind := p.Kind
	result, err := e.auth.Login(ctx, p.Identifier, p.Password, p.SourceIP, kind)
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdLogin, Auth: &AuthResponse{
		User: result.User, Session: result.Session, Token: result.Token,
	}}, nil, nil
}

func (e *ChatEngine) handleLogout(ctx context.Context, caller Caller) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if err := e.auth.Logout(ctx, ac.SessionID); err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdLogout, Empty: &EmptyResponse{}}, nil, nil
}

func (e *ChatEngine) handleRefresh(ctx context.Context, caller Caller) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	result, err := e.auth.Refresh(ctx, ac.SessionID)
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdRefresh, Auth: &AuthResponse{
		User: result.User, Session: result.Session, Token: result.Token,
	}}, nil, nil
}

func (e *ChatEngine) handleAuthenticate(ctx context.Context, p *AuthenticatePayload) (Response, []events.Event, error) {
	result, err := e.auth.Authenticate(ctx, p.Token)
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdAuthenticate, Auth: &AuthResponse{
		User: result.User, Session: result.Session, Token: result.Token,
	}}, nil, nil
}

// handlePing answers a keepalive request with an equally trivial Pong; it
// requires no authentication so an idle-but-unauthenticated connection can
// still hold itself open.
func (e *ChatEngine) handlePing(ctx context.Context, p *PingPayload) (Response, []events.Event, error) {
	return Response{Kind: CmdPong, Empty: &EmptyResponse{}}, nil, nil
}

func (e *ChatEngine) handleChangePassword(ctx context.Context, caller Caller, p *ChangePasswordPayload) (Response, []events.Event, error) {
	ac, err := requireAuthenticated(caller)
	if err != nil {
		return Response{}, nil, err
	}
	if err := e.auth.ChangePassword(ctx, ac.UserID, p.OldPassword, p.NewPassword); err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdChangePassword, Empty: &EmptyResponse{}}, nil, nil
}

func (e *ChatEngine) handleGetUser(ctx context.Context, caller Caller, p *GetUserPayload) (Response, []events.Event, error) {
	if _, err := requireAuthenticated(caller); err != nil {
		return Response{}, nil, err
	}
	rec, err := e.users.GetByID(ctx, p.UserID)
	if err != nil {
		if isNotFound(err) {
			return Response{}, nil, apperr.NotFound("user not found")
		}
		return Response{}, nil, err
	}
	return Response{Kind: CmdGetUser, User: &UserResponse{User: rec.User}}, nil, nil
}

func (e *ChatEngine) handleListUsers(ctx context.Context, caller Caller, p *ListUsersPayload) (Response, []events.Event, error) {
	if _, err := requireAuthenticated(caller); err != nil {
		return Response{}, nil, err
	}
	users, err := e.users.List(ctx, p.Filter, p.Page)
	if err != nil {
		return Response{}, nil, err
	}
	return Response{Kind: CmdListUsers, Users: &UsersResponse{Users: users}}, nil, nil
}
