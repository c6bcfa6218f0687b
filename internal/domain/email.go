package domain

import "strings"

const emailMax = 254

// Email is a validated, lowercased address: must contain exactly one "@",
// have a non-empty local and domain part, a dotted domain, and be no longer
// than 254 characters.
type Email struct {
	value string
}

// NewEmail validates raw, lowercases it, and returns an Email.
func NewEmail(raw string) (Email, error) {
	if raw == "" {
		return Email{}, errEmpty("email")
	}
	if len(raw) > emailMax {
		return Email{}, errTooLong("email", emailMax, len(raw))
	}

	lower := strings.ToLower(strings.TrimSpace(raw))

	at := strings.LastIndex(lower, "@")
	if at <= 0 || at == len(lower)-1 {
		return Email{}, errInvalidFormat("email", "must contain exactly one '@' with text on both sides")
	}
	local, domain := lower[:at], lower[at+1:]
	if strings.Contains(local, "@") {
		return Email{}, errInvalidFormat("email", "must contain exactly one '@'")
	}
	if !strings.Contains(domain, ".") {
		return Email{}, errInvalidFormat("email", "domain must contain a '.'")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Email{}, errInvalidFormat("email", "domain must not start or end with '.'")
	}

	return Email{value: lower}, nil
}

func (e Email) String() string { return e.value }

// Domain returns the part of the address after the last "@".
func (e Email) Domain() string {
	at := strings.LastIndex(e.value, "@")
	return e.value[at+1:]
}

func (e Email) MarshalText() ([]byte, error) { return []byte(e.value), nil }

func (e *Email) UnmarshalText(b []byte) error {
	parsed, err := NewEmail(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
