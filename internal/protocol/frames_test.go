package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewAuthRequest(t *testing.T) {
	req := NewAuthRequest("bearer-123")

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"kind":"auth","token":"bearer-123"}`
	if string(data) != want {
		t.Errorf("marshaled auth request = %s, want %s", data, want)
	}
}

func TestChatSend_Marshal(t *testing.T) {
	data, err := json.Marshal(ChatSend{Content: "hi there"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"content":"hi there"}`
	if string(data) != want {
		t.Errorf("marshaled chat send = %s, want %s", data, want)
	}
}

func TestDecodeServerEvent_AuthSuccess(t *testing.T) {
	ev, err := DecodeServerEvent([]byte(`{"kind":"auth_success"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != EventAuthSuccess {
		t.Errorf("Kind = %v, want EventAuthSuccess", ev.Kind)
	}
}

func TestDecodeServerEvent_Error(t *testing.T) {
	ev, err := DecodeServerEvent([]byte(`{"kind":"error","detail":"conversation archived"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != EventError {
		t.Errorf("Kind = %v, want EventError", ev.Kind)
	}
	if ev.Detail != "conversation archived" {
		t.Errorf("Detail = %q", ev.Detail)
	}
}

func TestDecodeServerEvent_Message(t *testing.T) {
	raw := `{
		"id": "m-1",
		"conversation_id": "c-42",
		"sender_id": "u-7",
		"content": "is this still available?",
		"created_at": "2026-08-20T10:30:00Z"
	}`

	ev, err := DecodeServerEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != EventMessage {
		t.Fatalf("Kind = %v, want EventMessage", ev.Kind)
	}

	msg := ev.Message
	if msg == nil {
		t.Fatal("Message is nil")
	}
	if msg.ID != "m-1" {
		t.Errorf("ID = %q, want m-1", msg.ID)
	}
	if msg.ConversationID != "c-42" {
		t.Errorf("ConversationID = %q, want c-42", msg.ConversationID)
	}
	if msg.SenderID != "u-7" {
		t.Errorf("SenderID = %q, want u-7", msg.SenderID)
	}
	if msg.Content != "is this still available?" {
		t.Errorf("Content = %q", msg.Content)
	}
	wantTime := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	if !msg.CreatedAt.Equal(wantTime) {
		t.Errorf("CreatedAt = %v, want %v", msg.CreatedAt, wantTime)
	}
}

func TestDecodeServerEvent_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `not json at all`},
		{"unknown kind", `{"kind":"presence","user":"u-1"}`},
		{"auth kind inbound", `{"kind":"auth","token":"t"}`},
		{"missing id", `{"conversation_id":"c-1","sender_id":"u-1","content":"x"}`},
		{"missing sender", `{"id":"m-1","conversation_id":"c-1","content":"x"}`},
		{"empty object", `{}`},
		{"wrong field types", `{"id":5,"conversation_id":"c-1","sender_id":"u-1"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeServerEvent([]byte(tc.data))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("err = %v, want ErrMalformedFrame", err)
			}
		})
	}
}
