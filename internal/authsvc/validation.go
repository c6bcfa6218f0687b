package authsvc

import "github.com/lair-chat/lair-chat-server/internal/apperr"

const (
	passwordMin = 8
	passwordMax = 128
)

// validatePassword checks that password is 8-128 characters. No additional
// complexity rules (mixed case, digits, symbols) are enforced beyond
// length.
func validatePassword(password string) error {
	if len(password) < passwordMin {
		return apperr.ValidationField("password", "too_short", "password must be at least 8 characters")
	}
	if len(password) > passwordMax {
		return apperr.ValidationField("password", "too_long", "password must be at most 128 characters")
	}
	return nil
}
