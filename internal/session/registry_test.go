package session

import (
	"errors"
	"testing"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/domain"
)

type fakeConn struct {
	sent   [][]byte
	closed bool
	failOn int
}

func (f *fakeConn) Send(payload []byte) error {
	if f.failOn > 0 && len(f.sent)+1 >= f.failOn {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newTestEntry(userID domain.UserID, conn ConnHandle, now time.Time) *Entry {
	return &Entry{
		SessionID:  domain.NewSessionID(),
		UserID:     userID,
		Kind:       domain.SessionTCP,
		Conn:       conn,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		LastActive: now,
	}
}

func TestRegisterAndGet(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()
	conn := &fakeConn{}
	entry := newTestEntry(userID, conn, now)

	r.Register(entry)

	got, ok := r.Get(entry.SessionID)
	if !ok || got.UserID != userID {
		t.Fatalf("Get returned %v, %v", got, ok)
	}
	if !r.IsOnline(userID) {
		t.Error("expected user to be online after registering a TCP session")
	}
}

func TestMultipleSessionsPerUser(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()

	r.Register(newTestEntry(userID, &fakeConn{}, now))
	r.Register(newTestEntry(userID, &fakeConn{}, now))

	sessions := r.SessionsForUser(userID)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestUnregisterClosesConn(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()
	conn := &fakeConn{}
	entry := newTestEntry(userID, conn, now)
	r.Register(entry)

	r.Unregister(entry.SessionID)

	if !conn.closed {
		t.Error("expected connection to be closed on unregister")
	}
	if r.IsOnline(userID) {
		t.Error("expected user offline after unregistering only session")
	}
	if _, ok := r.Get(entry.SessionID); ok {
		t.Error("expected Get to fail after unregister")
	}
}

func TestSweepEvictsExpiredAndReportsOffline(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()
	conn := &fakeConn{}
	entry := newTestEntry(userID, conn, now)
	entry.ExpiresAt = now.Add(-time.Second)
	r.Register(entry)

	offline := r.Sweep(now)

	if len(offline) != 1 || offline[0] != userID {
		t.Fatalf("expected %v reported offline, got %v", userID, offline)
	}
	if !conn.closed {
		t.Error("expected expired connection to be closed")
	}
}

func TestSweepKeepsUserOnlineIfAnotherSessionSurvives(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()

	expired := newTestEntry(userID, &fakeConn{}, now)
	expired.ExpiresAt = now.Add(-time.Second)
	live := newTestEntry(userID, &fakeConn{}, now)

	r.Register(expired)
	r.Register(live)

	offline := r.Sweep(now)

	if len(offline) != 0 {
		t.Fatalf("expected user to remain online, got offline report %v", offline)
	}
	if !r.IsOnline(userID) {
		t.Error("expected user still online via the surviving session")
	}
}

func TestDeliverDropsSlowConsumer(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()
	conn := &fakeConn{failOn: 1}
	entry := newTestEntry(userID, conn, now)
	r.Register(entry)

	r.Deliver(userID, []byte("hello"))

	if !conn.closed {
		t.Error("expected connection to be closed after failed send")
	}
	if _, ok := r.Get(entry.SessionID); ok {
		t.Error("expected session removed after delivery failure")
	}
}

func TestDeliverSkipsRESTSessions(t *testing.T) {
	t.Parallel()
	now := time.Now()
	r := New()
	userID := domain.NewUserID()
	entry := newTestEntry(userID, nil, now)
	entry.Kind = domain.SessionHTTP
	r.Register(entry)

	// Should not panic despite a nil ConnHandle.
	r.Deliver(userID, []byte("hello"))
}
