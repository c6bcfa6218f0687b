package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	roomNameMin = 1
	roomNameMax = 64
)

// RoomName is a validated, trimmed, unique room display name (1-64 runes).
type RoomName struct {
	value string
}

// NewRoomName trims raw and validates its length.
func NewRoomName(raw string) (RoomName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RoomName{}, errEmpty("room_name")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < roomNameMin {
		return RoomName{}, errTooShort("room_name", roomNameMin, n)
	}
	if n > roomNameMax {
		return RoomName{}, errTooLong("room_name", roomNameMax, n)
	}
	return RoomName{value: trimmed}, nil
}

func (r RoomName) String() string { return r.value }

// Fold returns the case-folded form used for uniqueness comparisons.
func (r RoomName) Fold() string { return strings.ToLower(r.value) }

func (r RoomName) MarshalText() ([]byte, error) { return []byte(r.value), nil }

func (r *RoomName) UnmarshalText(b []byte) error {
	parsed, err := NewRoomName(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
