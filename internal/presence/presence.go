// Package presence provides ephemeral, Valkey-backed state that sits
// alongside internal/session's connection-derived online/offline truth:
// a richer voluntary status (online/idle/dnd/invisible) users may set, and
// server-side typing coalescing over a 3-second window. It follows the
// same key-per-entity, SET-NX-with-TTL idiom as the rest of the Valkey
// state in this repo, keyed by the symmetric MessageTarget.Key so a DM
// pair coalesces the same way a room does.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

const (
	// statusTTL is the lifetime of a voluntary presence key. A client must
	// refresh it (e.g. on every heartbeat) to keep a non-default status
	// visible; once it lapses, Get falls back to StatusOffline regardless of
	// whether the user is still connected.
	statusTTL = 120 * time.Second

	// typingTTL is the server-enforced coalescing window.
	typingTTL = 3 * time.Second

	StatusOnline = "online"
	StatusIdle = "idle"
	StatusDND = "dnd"
	StatusInvisible = "invisible"
	StatusOffline = "offline"
)

// State is the voluntary presence status of a single user, returned by
// GetMany.
type State struct {
	UserID domain.UserID
	Status string
}

// Store reads and writes ephemeral presence and typing state in Valkey.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store backed by the given Valkey/Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Set stores userID's voluntary presence status with the standard TTL. This
// is independent of session.Registry.IsOnline: a user can be connected and
// still show StatusInvisible, and a lapsed status key does not itself end a
// connection.
func (s *Store) Set(ctx context.Context, userID domain.UserID, status string) error {
	if err := s.rdb.Set(ctx, presenceKey(userID), status, statusTTL).Err(); err != nil {
		return fmt.Errorf("set presence for %s: %w", userID, err)
	}
	return nil
}

// Get returns userID's current voluntary status, or StatusOffline if no key
// is set.
func (s *Store) Get(ctx context.Context, userID domain.UserID) (string, error) {
	val, err := s.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return StatusOffline, nil
	}
	if err != nil {
		return "", fmt.Errorf("get presence for %s: %w", userID, err)
	}
	return val, nil
}

// GetMany returns the visible status of each requested user. Invisible users
// are omitted so they appear offline to everyone else; the result may be
// shorter than userIDs.
func (s *Store) GetMany(ctx context.Context, userIDs []domain.UserID) ([]State, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget presence: %w", err)
	}

	result := make([]State, 0, len(userIDs))
	for i, v := range vals {
		if v == nil {
			continue
		}
		status, ok := v.(string)
		if !ok || status == StatusInvisible {
			continue
		}
		result = append(result, State{UserID: userIDs[i], Status: status})
	}
	return result, nil
}

// Refresh extends an existing presence key's TTL without changing its
// value, for a heartbeat to keep a voluntary status alive.
func (s *Store) Refresh(ctx context.Context, userID domain.UserID) error {
	if err := s.rdb.Expire(ctx, presenceKey(userID), statusTTL).Err(); err != nil {
		return fmt.Errorf("refresh presence for %s: %w", userID, err)
	}
	return nil
}

// Delete removes userID's presence key.
func (s *Store) Delete(ctx context.Context, userID domain.UserID) error {
	if err := s.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete presence for %s: %w", userID, err)
	}
	return nil
}

// SetTyping records that userID started typing toward target. It uses SET
// NX so repeated calls within typingTTL are no-ops; the caller raises a
// UserTyping event only when created is true, so a burst of keystrokes
// produces one typing indicator instead of one per call.
func (s *Store) SetTyping(ctx context.Context, target domain.MessageTarget, userID domain.UserID) (bool, error) {
	key := typingKey(target, userID)
	ok, err := s.rdb.SetNX(ctx, key, 1, typingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("set typing for %s on %s: %w", userID, key, err)
	}
	return ok, nil
}

// ClearTyping removes userID's typing indicator for target, e.g. once their
// message actually sends. It returns true when a key existed and was
// deleted.
func (s *Store) ClearTyping(ctx context.Context, target domain.MessageTarget, userID domain.UserID) (bool, error) {
	key := typingKey(target, userID)
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("clear typing for %s on %s: %w", userID, key, err)
	}
	return n > 0, nil
}

// ValidStatus reports whether status is one a client may voluntarily set.
// StatusOffline is never client-settable: a user goes offline by
// disconnecting, or sets StatusInvisible to appear offline while staying
// connected.
func ValidStatus(status string) bool {
	switch status {
	case StatusOnline, StatusIdle, StatusDND, StatusInvisible:
		return true
	default:
		return false
	}
}

func presenceKey(userID domain.UserID) string {
	return "presence:" + userID.String()
}

// typingKey reuses MessageTarget.Key's symmetric DM ordering so both
// participants of a DM pair coalesce against the same key, not two separate
// ones keyed by directionality.
func typingKey(target domain.MessageTarget, userID domain.UserID) string {
	return "typing:" + target.Key(userID) + ":" + userID.String()
}
