package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/authsvc"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/repo/memory"
)

// testEngine wires a ChatEngine against in-memory repositories and a fixed
// clock, so tests can assert on exact timestamps without sleeping.
func testEngine(t *testing.T, now time.Time) (*ChatEngine, *memory.UserRepository, *memory.RoomRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	rooms := memory.NewRoomRepository()
	messages := memory.NewMessageRepository()
	invitations := memory.NewInvitationRepository()
	blocks := memory.NewBlockRepository()

	clock := func() time.Time { return now }

	auth, err := authsvc.New(users, sessions, nil, authsvc.Config{
		HashParams:       authsvc.HashParams{Memory: 64 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		JWTSecret:        "test-secret-at-least-32-characters!",
		JWTIssuer:        "lair-chat-test",
		SessionTTL:       time.Hour,
		LockoutThreshold: 100,
		LockoutWindow:    time.Minute,
	}, zerolog.Nop(), clock)
	if err != nil {
		t.Fatalf("authsvc.New: %v", err)
	}

	e := New(Config{
		Auth:        auth,
		Users:       users,
		Rooms:       rooms,
		Messages:    messages,
		Invitations: invitations,
		Blocks:      blocks,
		Clock:       clock,
		Logger:      zerolog.Nop(),
	})
	return e, users, rooms
}

func registerUser(t *testing.T, e *ChatEngine, username, email string) AuthenticatedCaller {
	t.Helper()
	resp, _, err := e.Dispatch(context.Background(), Command{
		Kind: CmdRegister,
		Register: &RegisterPayload{Username: username, Email: email, Password: "passw0rd!"},
	}, AnonymousCaller{})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return AuthenticatedCaller{SessionID: resp.Auth.Session.ID, UserID: resp.Auth.User.ID, Role: resp.Auth.User.Role}
}

func TestRegisterRequiresAnonymousCommandsToSucceedStandalone(t *testing.T) {
	t.Parallel()
	e, _, _ := testEngine(t, time.Now())
	caller := registerUser(t, e, "alice", "alice@x.y")
	if caller.UserID.IsZero() {
		t.Fatal("expected a real user id")
	}
}

func TestAuthenticatedCommandRejectsAnonymousCaller(t *testing.T) {
	t.Parallel()
	e, _, _ := testEngine(t, time.Now())
	_, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "general"},
	}, AnonymousCaller{})
	if !apperr.Is(err, apperr.CodeUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestCreateRoomAndJoinRoom(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner1", "owner1@x.y")
	joiner := registerUser(t, e, "joiner1", "joiner1@x.y")

	roomResp, roomEvts, err := e.Dispatch(context.Background(), Command{
		Kind: CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "general", Settings: domain.RoomSettings{Public: true}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(roomEvts) != 0 {
		t.Errorf("expected no events from CreateRoom, got %d", len(roomEvts))
	}
	roomID := roomResp.Room.Room.ID

	joinResp, joinEvts, err := e.Dispatch(context.Background(), Command{
		Kind:     CmdJoinRoom,
		JoinRoom: &JoinRoomPayload{RoomID: roomID},
	}, joiner)
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if joinResp.Room == nil {
		t.Fatal("expected a Room response from JoinRoom")
	}
	if len(joinEvts) != 1 || joinEvts[0].Kind.String() != "user_joined_room" {
		t.Fatalf("expected one user_joined_room event, got %v", joinEvts)
	}

	// Repeat join is idempotent.
	again, _, err := e.Dispatch(context.Background(), Command{
		Kind:     CmdJoinRoom,
		JoinRoom: &JoinRoomPayload{RoomID: roomID},
	}, joiner)
	if err != nil {
		t.Fatalf("repeat JoinRoom: %v", err)
	}
	if again.AlreadyMember == nil {
		t.Fatal("expected AlreadyMember on repeat join")
	}
}

func TestJoinPrivateRoomWithoutInvitationFails(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner2", "owner2@x.y")
	outsider := registerUser(t, e, "outsider2", "outsider2@x.y")

	roomResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "secret", Settings: domain.RoomSettings{Public: false}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	_, _, err = e.Dispatch(context.Background(), Command{
		Kind:     CmdJoinRoom,
		JoinRoom: &JoinRoomPayload{RoomID: roomResp.Room.Room.ID},
	}, outsider)
	if !apperr.Is(err, apperr.CodeRoomPrivate) {
		t.Fatalf("err = %v, want room_private", err)
	}
}

func TestLastOwnerCannotLeave(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner3", "owner3@x.y")

	roomResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "solo", Settings: domain.RoomSettings{Public: true}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	_, _, err = e.Dispatch(context.Background(), Command{
		Kind:      CmdLeaveRoom,
		LeaveRoom: &LeaveRoomPayload{RoomID: roomResp.Room.Room.ID},
	}, owner)
	if !apperr.Is(err, apperr.CodeLastOwner) {
		t.Fatalf("err = %v, want last_owner", err)
	}
}

func TestSendMessageRequiresRoomMembership(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner4", "owner4@x.y")
	outsider := registerUser(t, e, "outsider4", "outsider4@x.y")

	roomResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "room4", Settings: domain.RoomSettings{Public: true}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	_, _, err = e.Dispatch(context.Background(), Command{
		Kind: CmdSendMessage,
		SendMessage: &SendMessagePayload{
			Target:  domain.NewRoomTarget(roomResp.Room.Room.ID),
			Content: "hello",
		},
	}, outsider)
	if !apperr.Is(err, apperr.CodeNotRoomMember) {
		t.Fatalf("err = %v, want not_room_member", err)
	}
}

func TestEditMessageCarriesPreviousContent(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner4b", "owner4b@x.y")

	roomResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "room4b", Settings: domain.RoomSettings{Public: true}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	msgResp, _, err := e.Dispatch(context.Background(), Command{
		Kind: CmdSendMessage,
		SendMessage: &SendMessagePayload{
			Target:  domain.NewRoomTarget(roomResp.Room.Room.ID),
			Content: "original",
		},
	}, owner)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	msgID := msgResp.Message.Message.ID

	editResp, evts, err := e.Dispatch(context.Background(), Command{
		Kind: CmdEditMessage,
		EditMessage: &EditMessagePayload{
			MessageID: msgID,
			Content:   "edited",
		},
	}, owner)
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if editResp.Message.Message.Content.String() != "edited" {
		t.Fatalf("response content = %q, want %q", editResp.Message.Message.Content.String(), "edited")
	}

	if len(evts) != 1 {
		t.Fatalf("len(evts) = %d, want 1", len(evts))
	}
	evt := evts[0]
	if evt.Message == nil || evt.Message.PreviousContent == nil {
		t.Fatal("expected MessageEdited event to carry PreviousContent")
	}
	if evt.Message.PreviousContent.String() != "original" {
		t.Fatalf("PreviousContent = %q, want %q", evt.Message.PreviousContent.String(), "original")
	}
	if evt.Message.Message.Content.String() != "edited" {
		t.Fatalf("event content = %q, want %q", evt.Message.Message.Content.String(), "edited")
	}
	if len(evt.Message.Audience) == 0 {
		t.Fatal("expected MessageEdited event to carry a non-empty audience snapshot")
	}
}

func TestDeleteMessageIsIdempotent(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner5", "owner5@x.y")

	roomResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "room5", Settings: domain.RoomSettings{Public: true}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	msgResp, _, err := e.Dispatch(context.Background(), Command{
		Kind: CmdSendMessage,
		SendMessage: &SendMessagePayload{
			Target:  domain.NewRoomTarget(roomResp.Room.Room.ID),
			Content: "hello world",
		},
	}, owner)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	msgID := msgResp.Message.Message.ID

	first, _, err := e.Dispatch(context.Background(), Command{
		Kind:          CmdDeleteMessage,
		DeleteMessage: &DeleteMessagePayload{MessageID: msgID},
	}, owner)
	if err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if first.DeletedMessage.AlreadyDeleted {
		t.Fatal("expected first delete to report already_deleted=false")
	}

	second, _, err := e.Dispatch(context.Background(), Command{
		Kind:          CmdDeleteMessage,
		DeleteMessage: &DeleteMessagePayload{MessageID: msgID},
	}, owner)
	if err != nil {
		t.Fatalf("repeat DeleteMessage: %v", err)
	}
	if !second.DeletedMessage.AlreadyDeleted {
		t.Fatal("expected repeat delete to report already_deleted=true")
	}
}

// TestConcurrentSendMessageSameTargetSerializes exercises the per-target
// lock: many goroutines sending to the same room must not corrupt state,
// and every message must be persisted exactly once.
func TestConcurrentSendMessageSameTargetSerializes(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, _, _ := testEngine(t, now)
	owner := registerUser(t, e, "owner6", "owner6@x.y")

	roomResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:       CmdCreateRoom,
		CreateRoom: &CreateRoomPayload{Name: "room6", Settings: domain.RoomSettings{Public: true}},
	}, owner)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := roomResp.Room.Room.ID

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := e.Dispatch(context.Background(), Command{
				Kind: CmdSendMessage,
				SendMessage: &SendMessagePayload{
					Target:  domain.NewRoomTarget(roomID),
					Content: "concurrent message",
				},
			}, owner)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	listResp, _, err := e.Dispatch(context.Background(), Command{
		Kind:         CmdListMessages,
		ListMessages: &ListMessagesPayload{Target: domain.NewRoomTarget(roomID)},
	}, owner)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(listResp.Messages.Messages) != n {
		t.Fatalf("expected %d messages, got %d", n, len(listResp.Messages.Messages))
	}
}

func TestAdminCannotBanAnotherAdmin(t *testing.T) {
	t.Parallel()
	now := time.Now()
	e, users, _ := testEngine(t, now)
	admin1 := registerUser(t, e, "admin1", "admin1@x.y")
	admin2 := registerUser(t, e, "admin2", "admin2@x.y")

	if err := users.UpdateRole(context.Background(), admin1.UserID, domain.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole admin1: %v", err)
	}
	admin1.Role = domain.RoleAdmin
	if err := users.UpdateRole(context.Background(), admin2.UserID, domain.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole admin2: %v", err)
	}

	_, _, err := e.Dispatch(context.Background(), Command{
		Kind:         CmdAdminBanUser,
		AdminBanUser: &AdminBanUserPayload{UserID: admin2.UserID},
	}, admin1)
	if !apperr.Is(err, apperr.CodePermissionDenied) {
		t.Fatalf("err = %v, want permission_denied", err)
	}
}
