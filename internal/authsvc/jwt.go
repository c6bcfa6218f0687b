package authsvc

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// sessionClaims is the JWT claim set for a session token: self-describing,
// carrying both the session id and the user id so validate_token never
// needs a repository round trip to learn who a token belongs to — only to
// confirm the session has not been revoked.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// issueSessionToken signs a JWT for session, valid until session.ExpiresAt.
func issueSessionToken(session domain.Session, secret, issuer string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret must not be empty")
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		SessionID: session.ID.String(),
		UserID:    session.UserID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// parsedToken is the decoded, not-yet-revocation-checked content of a
// session token.
type parsedToken struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	ExpiresAt time.Time
}

// parseSessionToken validates the JWT signature and issuer, and decodes the
// session/user ids and expiry. It does not reject an expired token: the
// caller (ValidateToken, via repo.SessionRepository) checks revocation
// first and expiry after it, so a revoked session is reported as revoked
// even when its token has also expired.
func parseSessionToken(tokenStr, secret, issuer string) (*parsedToken, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return nil, fmt.Errorf("unexpected token issuer %q", claims.Issuer)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("token has no expiry")
	}

	sessionID, err := domain.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("parse session id claim: %w", err)
	}
	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id claim: %w", err)
	}

	return &parsedToken{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
