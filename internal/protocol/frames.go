package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedFrame marks an inbound frame that could not be decoded.
// The channel stays open; the frame is dropped.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame kind tags used on the wire.
const (
	KindAuth        = "auth"
	KindAuthSuccess = "auth_success"
	KindError       = "error"
)

// AuthRequest is the first outbound frame on every channel.
type AuthRequest struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
}

// NewAuthRequest builds an auth request for the given bearer token.
func NewAuthRequest(token string) AuthRequest {
	return AuthRequest{Kind: KindAuth, Token: token}
}

// ChatSend is an outbound application frame.
type ChatSend struct {
	Content string `json:"content"`
}

// Message is a chat message as pushed by the server. The transport core
// carries it as-is; ownership and persistence are server-side concerns.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventKind discriminates decoded server events.
type EventKind int

const (
	EventAuthSuccess EventKind = iota
	EventMessage
	EventError
)

// ServerEvent is the decoded form of one inbound frame.
type ServerEvent struct {
	Kind    EventKind
	Message *Message // Set when Kind == EventMessage
	Detail  string   // Set when Kind == EventError
}

// probe extracts only the tag and the error detail.
type probe struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// DecodeServerEvent parses one inbound frame.
//
// Tagged frames are dispatched on "kind". Untagged frames must decode as a
// complete chat message (id, conversation_id and sender_id present) or the
// frame is rejected with ErrMalformedFrame.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return ServerEvent{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch p.Kind {
	case KindAuthSuccess:
		return ServerEvent{Kind: EventAuthSuccess}, nil

	case KindError:
		return ServerEvent{Kind: EventError, Detail: p.Detail}, nil

	case "":
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return ServerEvent{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if msg.ID == "" || msg.ConversationID == "" || msg.SenderID == "" {
			return ServerEvent{}, fmt.Errorf("%w: incomplete message", ErrMalformedFrame)
		}
		return ServerEvent{Kind: EventMessage, Message: &msg}, nil

	default:
		return ServerEvent{}, fmt.Errorf("%w: unrecognized kind %q", ErrMalformedFrame, p.Kind)
	}
}
