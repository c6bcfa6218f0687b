package domain

import (
	"regexp"
	"strings"
)

const (
	usernameMin = 3
	usernameMax = 32
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Username is a validated, unique-under-case-folding chat handle: 3-32
// alphanumeric-plus-underscore characters, not starting with an underscore.
type Username struct {
	value string
}

// NewUsername validates raw and returns a Username, or a ValidationError.
func NewUsername(raw string) (Username, error) {
	if raw == "" {
		return Username{}, errEmpty("username")
	}
	if len(raw) < usernameMin {
		return Username{}, errTooShort("username", usernameMin, len(raw))
	}
	if len(raw) > usernameMax {
		return Username{}, errTooLong("username", usernameMax, len(raw))
	}
	if strings.HasPrefix(raw, "_") {
		return Username{}, errInvalidFormat("username", "must not start with an underscore")
	}
	if !usernamePattern.MatchString(raw) {
		return Username{}, errInvalidFormat("username", "must contain only letters, digits, and underscores")
	}
	return Username{value: raw}, nil
}

func (u Username) String() string { return u.value }

// Fold returns the case-folded form used for uniqueness comparisons.
func (u Username) Fold() string { return strings.ToLower(u.value) }

func (u Username) MarshalText() ([]byte, error) { return []byte(u.value), nil }

func (u *Username) UnmarshalText(b []byte) error {
	parsed, err := NewUsername(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
