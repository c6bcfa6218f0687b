package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
	"github.com/lair-chat/lair-chat-server/internal/engine"
	"github.com/lair-chat/lair-chat-server/internal/events"
)

func TestDecodeCommandSendMessage(t *testing.T) {
	roomID := domain.NewRoomID()
	raw := []byte(`{"type":"send_message","data":{"target":{"target_type":"room","target_id":"` + roomID.String() + `"},"content":"hello"}}`)

	cmd, _, err := DecodeCommand(raw)
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if cmd.Kind != engine.CmdSendMessage {
		t.Fatalf("Kind = %v, want CmdSendMessage", cmd.Kind)
	}
	if cmd.SendMessage == nil || cmd.SendMessage.Content != "hello" {
		t.Fatalf("SendMessage payload = %+v", cmd.SendMessage)
	}
	if cmd.SendMessage.Target.Kind != domain.TargetRoom || cmd.SendMessage.Target.RoomID != roomID {
		t.Fatalf("Target = %+v, want room %s", cmd.SendMessage.Target, roomID)
	}
}

func TestDecodeCommandUnknownType(t *testing.T) {
	_, _, err := DecodeCommand([]byte(`{"type":"not_a_real_command"}`))
	if !apperr.Is(err, apperr.CodeValidationFailed) {
		t.Fatalf("err = %v, want validation_failed", err)
	}
}

func TestDecodeCommandMalformedJSON(t *testing.T) {
	_, _, err := DecodeCommand([]byte(`not json at all`))
	if !apperr.Is(err, apperr.CodeValidationFailed) {
		t.Fatalf("err = %v, want validation_failed", err)
	}
}

func TestEncodeResponseRoundTrip(t *testing.T) {
	room := domain.Room{ID: domain.NewRoomID(), CreatedAt: time.Now()}
	resp := engine.Response{Kind: engine.CmdCreateRoom, Room: &engine.RoomResponse{Room: room}}

	raw, err := EncodeResponse(resp, "req-1")
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "create_room_response" {
		t.Fatalf("Type = %q, want create_room_response", env.Type)
	}
	if !env.Success {
		t.Fatal("expected success=true")
	}
	if env.RequestID != "req-1" {
		t.Fatalf("RequestID = %q, want req-1", env.RequestID)
	}

	var payload engine.RoomResponse
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Room.ID != room.ID {
		t.Fatalf("Room.ID = %v, want %v", payload.Room.ID, room.ID)
	}
}

func TestEncodeErrorResponse(t *testing.T) {
	raw, err := EncodeErrorResponse(engine.CmdJoinRoom, apperr.New(apperr.CodeRoomPrivate, "invite required"), "req-2")
	if err != nil {
		t.Fatalf("EncodeErrorResponse: %v", err)
	}
	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Success {
		t.Fatal("expected success=false")
	}
	if env.Error == nil || env.Error.Code != "room_private" {
		t.Fatalf("Error = %+v, want code room_private", env.Error)
	}
}

func TestEncodeEventMessageReceived(t *testing.T) {
	msg := domain.Message{ID: domain.NewMessageID(), CreatedAt: time.Now()}
	evt := events.New(events.MessageReceived, time.Now())
	evt.Message = &events.MessagePayload{Message: msg}

	raw, err := EncodeEvent(evt)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "message_received" {
		t.Fatalf("Type = %q, want message_received", env.Type)
	}
	var payload events.MessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Message.ID != msg.ID {
		t.Fatalf("Message.ID = %v, want %v", payload.Message.ID, msg.ID)
	}
}
