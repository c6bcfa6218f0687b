// Package authsvc implements the auth service: registration, login, token
// issuance/validation, refresh, and password change. Login follows a
// constant-time flow with a dummy-hash fallback so a nonexistent username
// takes the same time as a wrong password, and Argon2id parameters can be
// rotated without invalidating existing password hashes.
package authsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/disposable"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo"
)

// Clock abstracts time.Now so tests can run the service against a fake
// clock.
type Clock func() time.Time

// Service implements auth operations.
type Service struct {
	users repo.UserRepository
	sessions repo.SessionRepository
	blocklist *disposable.Blocklist
	log zerolog.Logger
	clock Clock

	hashParams HashParams
	jwtSecret string
	jwtIssuer string
	sessionTTL time.Duration

	lockout *lockoutTracker

	// dummyHash is a precomputed Argon2id hash used to keep login timing
	// constant when no user matches the identifier, preventing
	// enumeration via response-time analysis.
	dummyHash string
}

// Config groups the construction-time knobs for Service, pulled from
// config.Config by the caller (kept decoupled from the config package so
// authsvc has no import-cycle risk with cmd/lair-chat-server wiring).
type Config struct {
	HashParams HashParams
	JWTSecret string
	JWTIssuer string
	SessionTTL time.Duration
	LockoutThreshold int
	LockoutWindow time.Duration
}

// New builds a Service. clock defaults to time.Now if nil.
func New(users repo.UserRepository, sessions repo.SessionRepository, blocklist *disposable.Blocklist, cfg Config, logger zerolog.Logger, clock Clock) (*Service, error) {
	if clock == nil {
		clock = time.Now
	}
	dummy, err := hashPassword("lair-chat-dummy-password", cfg.HashParams)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &Service{
		users: users,
		sessions: sessions,
		blocklist: blocklist,
		log: logger,
		clock: clock,
		hashParams: cfg.HashParams,
		jwtSecret: cfg.JWTSecret,
		jwtIssuer: cfg.JWTIssuer,
		sessionTTL: cfg.SessionTTL,
		lockout: newLockoutTracker(cfg.LockoutThreshold, cfg.LockoutWindow),
		dummyHash: dummy,
	}, nil
}

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	Username string
	Email string
	Password string
}

// AuthResult is returned by Register, Login and Refresh.
type AuthResult struct {
	User domain.User
	Session domain.Session
	Token string
}

// Register validates inputs, checks uniqueness, hashes the password, and
// persists the new User and its initial Session.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	username, err := domain.NewUsername(req.Username)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	if s.blocklist != nil {
		blocked, err := s.blocklist.IsBlocked(ctx, email.Domain())
		if err != nil {
			s.log.Warn().Err(err).Msg("disposable email check failed")
		} else if blocked {
			return nil, apperr.ValidationField("email", "invalid_format", "disposable email addresses are not allowed")
		}
	}

	hash, err := hashPassword(req.Password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	user := domain.User{
		ID: domain.NewUserID(),
		Username: username,
		Email: email,
		Role: domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.users.Create(ctx, repo.UserRecord{User: user, PasswordHash: hash})
	if err != nil {
		if repo.IsConflict(err) {
			var storageErr *repo.Error
			if errors.As(err, &storageErr) && storageErr.Key == "email" {
				return nil, apperr.New(apperr.CodeEmailTaken, "email is already registered")
			}
			return nil, apperr.New(apperr.CodeUsernameTaken, "username is already taken")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issueSession(ctx, created.User, domain.SessionHTTP)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Login looks up the user by username or email, verifies the password in
// constant time, and issues a session on success. All failure modes short
// of lockout/banned return the same InvalidCredentials error, deliberately
// indistinguishable between "unknown user" and "wrong password".
func (s *Service) Login(ctx context.Context, identifier, password, sourceIP string, kind domain.SessionKind) (*AuthResult, error) {
	now := s.clock()
	folded := foldIdentifier(identifier)

	if s.lockout.locked(folded, sourceIP, now) {
		return nil, errAccountLocked
	}

	rec, err := s.lookupByIdentifier(ctx, identifier)
	if err != nil {
		if repo.IsNotFound(err) {
			_, _ = verifyPassword(password, s.dummyHash)
			s.lockout.recordFailure(folded, sourceIP, now)
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if rec.Banned {
		return nil, errAccountBanned
	}

	match, err := verifyPassword(password, rec.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		s.lockout.recordFailure(folded, sourceIP, now)
		return nil, errInvalidCredentials
	}

	if needsRehash(rec.PasswordHash, s.hashParams) {
		if newHash, hashErr := hashPassword(password, s.hashParams); hashErr == nil {
			if updateErr := s.users.UpdatePasswordHash(ctx, rec.ID, newHash); updateErr != nil {
				s.log.Warn().Err(updateErr).Str("user_id", rec.ID.String()).Msg("failed to rotate password hash")
			}
		}
	}

	s.lockout.reset(folded, sourceIP)

	return s.issueSession(ctx, rec.User, kind)
}

// Logout revokes the given session.
func (s *Service) Logout(ctx context.Context, sessionID domain.SessionID) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		if repo.IsNotFound(err) {
			return apperr.NotFound("session not found")
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ValidateToken verifies the JWT signature and issuer, then confirms the
// session exists, has not been revoked, and has not expired. Revocation
// takes precedence over expiry: a revoked session yields session_revoked
// whether or not it has also expired.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Session, error) {
	parsed, err := parseSessionToken(token, s.jwtSecret, s.jwtIssuer)
	if err != nil {
		return nil, errTokenExpired
	}

	session, err := s.sessions.GetByID(ctx, parsed.SessionID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, errSessionRevoked
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Revoked {
		return nil, errSessionRevoked
	}
	if s.clock().After(session.ExpiresAt) {
		return nil, errTokenExpired
	}
	return session, nil
}

// Authenticate re-establishes a caller's identity on a new connection from
// a token issued by an earlier Register/Login/Refresh, without extending
// the session's expiry or issuing a new token the way Refresh does.
func (s *Service) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	session, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	userRec, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for authenticate: %w", err)
	}
	return &AuthResult{User: userRec.User, Session: *session, Token: token}, nil
}

// Refresh extends a session's expiry and returns a newly signed token.
func (s *Service) Refresh(ctx context.Context, sessionID domain.SessionID) (*AuthResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, apperr.NotFound("session not found")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Revoked {
		return nil, errSessionRevoked
	}

	now := s.clock()
	session.ExpiresAt = now.Add(s.sessionTTL)
	session.LastActive = now
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	token, err := issueSessionToken(*session, s.jwtSecret, s.jwtIssuer)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	userRec, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for refresh: %w", err)
	}

	return &AuthResult{User: userRec.User, Session: *session, Token: token}, nil
}

// ChangePassword verifies old, enforces new != old and strength, re-hashes,
// and revokes every session of the user, including the one the request
// arrived on, so every client must reauthenticate.
func (s *Service) ChangePassword(ctx context.Context, userID domain.UserID, oldPassword, newPassword string) error {
	rec, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	match, err := verifyPassword(oldPassword, rec.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify old password: %w", err)
	}
	if !match {
		return errInvalidCredentials
	}
	if oldPassword == newPassword {
		return apperr.ValidationField("new_password", "invalid_format", "new password must differ from the old password")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := hashPassword(newPassword, s.hashParams)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to revoke sessions after password change")
	}
	return nil
}

func (s *Service) issueSession(ctx context.Context, user domain.User, kind domain.SessionKind) (*AuthResult, error) {
	now := s.clock()
	session := domain.Session{
		ID: domain.NewSessionID(),
		UserID: user.ID,
		Kind: kind,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		LastActive: now,
	}
	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := issueSessionToken(*created, s.jwtSecret, s.jwtIssuer)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{User: user, Session: *created, Token: token}, nil
}

func (s *Service) lookupByIdentifier(ctx context.Context, identifier string) (*repo.UserRecord, error) {
	if email, err := domain.NewEmail(identifier); err == nil {
		return s.users.GetByEmail(ctx, email)
	}
	username, err := domain.NewUsername(identifier)
	if err != nil {
		return nil, repo.NewError(repo.ErrKindNotFound, "", repo.ErrNotFound)
	}
	return s.users.GetByUsername(ctx, username)
}

func foldIdentifier(identifier string) string {
	if email, err := domain.NewEmail(identifier); err == nil {
		return email.String()
	}
	if username, err := domain.NewUsername(identifier); err == nil {
		return username.Fold()
	}
	return identifier
}
