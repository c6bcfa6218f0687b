package domain

import "github.com/lair-chat/lair-chat-server/internal/apperr"

// ValidationError variants, as described in spec section 4.1. Constructors
// for Username/Email/RoomName/MessageContent never produce an invalid value;
// they return one of these through apperr instead.

func errEmpty(field string) error {
	return apperr.ValidationField(field, "empty", field+" must not be empty")
}

func errTooShort(field string, min, actual int) error {
	return apperr.ValidationFieldf(field, "too_short", map[string]any{"min": min, "actual": actual},
		"%s must be at least %d characters (got %d)", field, min, actual)
}

func errTooLong(field string, max, actual int) error {
	return apperr.ValidationFieldf(field, "too_long", map[string]any{"max": max, "actual": actual},
		"%s must be at most %d characters (got %d)", field, max, actual)
}

func errInvalidFormat(field, reason string) error {
	return apperr.ValidationFieldf(field, "invalid_format", map[string]any{"reason": reason},
		"%s has an invalid format: %s", field, reason)
}
