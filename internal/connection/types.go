package connection

import (
	"errors"
	"time"

	"github.com/tradeyard/chatwire/internal/backoff"
	"github.com/tradeyard/chatwire/internal/protocol"
)

// Errors
var (
	ErrNotConnected         = errors.New("not connected")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrMaxRetriesExceeded   = errors.New("max reconnect attempts exceeded")
)

// State is the connection lifecycle state.
type State int

const (
	// StateIdle means no channel and no pending work. Initial state, and the
	// state after a deliberate disconnect or a normal server closure.
	StateIdle State = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateAuthPending means the channel is open and the auth request has
	// been sent; no application traffic is allowed yet.
	StateAuthPending

	// StateOpen means the handshake succeeded and sends are permitted.
	StateOpen

	// StateReconnecting means a retry timer is pending.
	StateReconnecting

	// StateFailed means a terminal failure was reported; a new Connect is
	// required to try again.
	StateFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthPending:
		return "auth_pending"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observers is the callback set notified of connection and message events.
// Registration replaces the whole set; the latest registration always wins.
type Observers struct {
	OnMessage    func(protocol.Message)
	OnError      func(error)
	OnConnect    func()
	OnDisconnect func()
}

// CloseInfo describes why a channel closed.
type CloseInfo struct {
	Code   int    // WebSocket close code, 1006 for local read errors
	Reason string // Close reason text, if any
}

// ManagerConfig configures a connection manager for one conversation.
type ManagerConfig struct {
	BaseURL        string         // Marketplace base URL (http(s) or ws(s))
	ConversationID string         // Conversation this manager serves
	Policy         backoff.Policy // Reconnect schedule and budget
	DialTimeout    time.Duration  // Opening handshake deadline
	WriteTimeout   time.Duration  // Per-frame write deadline
}

// DefaultManagerConfig returns production defaults; BaseURL and
// ConversationID must still be set.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Policy:       backoff.Default(),
		DialTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}
