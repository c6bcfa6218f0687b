// Package session implements the session registry: a process-local
// mapping from SessionID to connection state, with derived indexes for
// presence and event delivery. It generalizes the usual client-map-behind-
// a-mutex shape to multiple live sessions per user and makes it
// wire-agnostic via ConnHandle, so both internal/tcpproto and
// internal/wsgateway connections register the same way.
package session

import (
	"sync"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// ConnHandle is the minimal surface the registry needs to push bytes to a
// live connection and sever it. REST sessions have no connection handle
// (nil).
type ConnHandle interface {
	Send(payload []byte) error
	Close() error
}

// Entry is a SessionEntry: SessionID -> {user_id, wire_kind,
// connection_handle, created_at, expires_at, last_active}.
type Entry struct {
	SessionID domain.SessionID
	UserID domain.UserID
	Kind domain.SessionKind
	Conn ConnHandle
	CreatedAt time.Time
	ExpiresAt time.Time
	LastActive time.Time
}

// live reports whether the entry is usable at instant now, i.e. not yet
// past ExpiresAt. It does not look at the connection handle.
func (e *Entry) live(now time.Time) bool {
	return !now.After(e.ExpiresAt)
}

// Registry is the in-process session store. All state is held in memory;
// a restart drops every live connection — only voluntary presence state
// round-trips through Valkey (see internal/presence), and sessions
// themselves have no replay requirement.
type Registry struct {
	mu sync.RWMutex

	byID map[domain.SessionID]*Entry
	byUser map[domain.UserID]map[domain.SessionID]struct{}
	byConn map[ConnHandle]domain.SessionID
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byID: make(map[domain.SessionID]*Entry),
		byUser: make(map[domain.UserID]map[domain.SessionID]struct{}),
		byConn: make(map[ConnHandle]domain.SessionID),
	}
}

// Register adds a live entry to the registry. A user may hold any number
// of concurrent sessions — there is no single-device constraint, so
// Register never evicts an existing session for the same user.
func (r *Registry) Register(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[e.SessionID] = e
	if r.byUser[e.UserID] == nil {
		r.byUser[e.UserID] = make(map[domain.SessionID]struct{})
	}
	r.byUser[e.UserID][e.SessionID] = struct{}{}
	if e.Conn != nil {
		r.byConn[e.Conn] = e.SessionID
	}
}

// Unregister removes a session, closing its connection handle if present.
// It is safe to call more than once for the same id.
func (r *Registry) Unregister(id domain.SessionID) {
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byID, id)
	if set, ok := r.byUser[e.UserID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byUser, e.UserID)
		}
	}
	if e.Conn != nil {
		delete(r.byConn, e.Conn)
	}
	r.mu.Unlock()

	if e.Conn != nil {
		_ = e.Conn.Close()
	}
}

// UnregisterByConn removes whichever session owns conn, if any. Used by
// tcpproto/wsgateway connection teardown, which knows its ConnHandle but may
// not know (or may not trust) its own claimed session id.
func (r *Registry) UnregisterByConn(conn ConnHandle) {
	r.mu.RLock()
	id, ok := r.byConn[conn]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.Unregister(id)
}

// Touch updates LastActive (and optionally ExpiresAt, if newExpiry is
// non-zero) for a live session, mirroring a successful heartbeat or
// refresh.
func (r *Registry) Touch(id domain.SessionID, now time.Time, newExpiry time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	e.LastActive = now
	if !newExpiry.IsZero() {
		e.ExpiresAt = newExpiry
	}
}

// Get returns the entry for id if it is registered; expiry is not checked.
func (r *Registry) Get(id domain.SessionID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// SessionsForUser returns every live session entry for a user, used to
// derive presence and to fan out events addressed to that user.
func (r *Registry) SessionsForUser(userID domain.UserID) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]*Entry, 0, len(set))
	for id := range set {
		out = append(out, r.byID[id])
	}
	return out
}

// IsOnline reports whether userID has at least one live connected (TCP or
// WebSocket) session. REST sessions never count toward presence.
func (r *Registry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byUser[userID]
	if !ok {
		return false
	}
	for id := range set {
		e := r.byID[id]
		if e.Kind == domain.SessionTCP || e.Kind == domain.SessionWebSocket {
			return true
		}
	}
	return false
}

// Deliver pushes payload to every live connected session belonging to
// userID. REST sessions receive no push. A connection whose Send fails
// (full outbound buffer, broken pipe) is closed and unregistered rather
// than allowed to block delivery to other recipients: slow consumers are
// dropped, never blocking other recipients.
func (r *Registry) Deliver(userID domain.UserID, payload []byte) {
	for _, e := range r.SessionsForUser(userID) {
		if e.Conn == nil {
			continue
		}
		if err := e.Conn.Send(payload); err != nil {
			r.Unregister(e.SessionID)
		}
	}
}

// Sweep evicts every session with ExpiresAt <= now, closing connections and
// returning the user ids whose last live session was just evicted (i.e.
// whose presence has transitioned to offline) for the caller to raise
// UserOffline events for. Sessions carry their own expiry, so a periodic
// scan is enough; there is no per-disconnect debounce timer to manage.
func (r *Registry) Sweep(now time.Time) []domain.UserID {
	r.mu.Lock()
	var expired []*Entry
	for id, e := range r.byID {
		if !e.live(now) {
			expired = append(expired, e)
			delete(r.byID, id)
			if set, ok := r.byUser[e.UserID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(r.byUser, e.UserID)
				}
			}
			if e.Conn != nil {
				delete(r.byConn, e.Conn)
			}
		}
	}
	r.mu.Unlock()

	var wentOffline []domain.UserID
	for _, e := range expired {
		if e.Conn != nil {
			_ = e.Conn.Close()
		}
		if !r.IsOnline(e.UserID) {
			wentOffline = append(wentOffline, e.UserID)
		}
	}
	return wentOffline
}

// DeliverToSession pushes payload to a single session, used for events
// whose audience is "the owning user's session" rather than every session
// of a user. Unlike Deliver, a failed send is reported to the caller
// rather than silently closing the connection, since there is no fan-out
// to protect here.
func (r *Registry) DeliverToSession(id domain.SessionID, payload []byte) error {
	e, ok := r.Get(id)
	if !ok || e.Conn == nil {
		return nil
	}
	if err := e.Conn.Send(payload); err != nil {
		r.Unregister(id)
		return err
	}
	return nil
}

// AllUserIDs returns every distinct user with at least one live session,
// connected or REST, for ServerNotice's "all authenticated sessions"
// audience.
func (r *Registry) AllUserIDs() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.byUser))
	for userID := range r.byUser {
		out = append(out, userID)
	}
	return out
}

// Count returns the number of live sessions, for metrics/admin stats.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
