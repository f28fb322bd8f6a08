package connection

import (
	"fmt"
	"net/url"
	"path"
)

// ChannelURL derives the chat channel address from the marketplace base URL
// and a conversation id: the scheme maps onto the WebSocket equivalent and
// the conversation path segment is appended.
func ChannelURL(base, conversationID string) (string, error) {
	if conversationID == "" {
		return "", fmt.Errorf("conversation id is required")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	u.Path = path.Join(u.Path, "ws", "conversations", conversationID)
	return u.String(), nil
}
