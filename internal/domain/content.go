package domain

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	contentMin = 1
	contentMax = 4096
)

// ugcPolicy strips any HTML markup from message content before it is stored,
// so a message can never carry executable HTML to another client regardless
// of which wire rendered it. Building the policy is moderately expensive, so
// it is built once and reused.
var ugcPolicy = sync.OnceValue(bluemonday.StrictPolicy)

// MessageContent is validated, sanitized message body text: 1-4096 runes
// after trimming, not whitespace-only, and never containing HTML markup.
type MessageContent struct {
	value string
}

// NewMessageContent sanitizes and validates raw content.
func NewMessageContent(raw string) (MessageContent, error) {
	sanitized := ugcPolicy().Sanitize(raw)
	trimmed := strings.TrimSpace(sanitized)
	if trimmed == "" {
		return MessageContent{}, errEmpty("content")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < contentMin {
		return MessageContent{}, errTooShort("content", contentMin, n)
	}
	if n > contentMax {
		return MessageContent{}, errTooLong("content", contentMax, n)
	}
	return MessageContent{value: trimmed}, nil
}

// TombstoneContent is the fixed string that replaces a soft-deleted message's
// content. It is itself a valid MessageContent (length 1-4096, non-blank).
func TombstoneContent() MessageContent {
	return MessageContent{value: "[deleted]"}
}

func (c MessageContent) String() string { return c.value }

func (c MessageContent) MarshalText() ([]byte, error) { return []byte(c.value), nil }

func (c *MessageContent) UnmarshalText(b []byte) error {
	parsed, err := NewMessageContent(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
