package backoff

import (
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Default policy values.
const (
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 10
)

// Policy computes reconnect delays and bounds the number of attempts.
type Policy struct {
	Base        time.Duration // Delay before the first retry
	Cap         time.Duration // Upper bound on any computed delay
	MaxAttempts int           // Retries allowed before giving up
}

// Default returns the production policy.
func Default() Policy {
	return Policy{
		Base:        DefaultBaseDelay,
		Cap:         DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Delay returns the wait before reconnect attempt n (0-indexed):
// min(Base * 1.5^n, Cap).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(p.Base) * math.Pow(1.5, float64(attempt)))
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// Exhausted reports whether attempt has used up the retry budget.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Disposition classifies a close event.
type Disposition int

const (
	// DispositionRetry means the close is transient and a reconnect
	// should be scheduled.
	DispositionRetry Disposition = iota

	// DispositionNormal means the peer closed the channel deliberately.
	// Terminal, not an error.
	DispositionNormal

	// DispositionAuthFailure means the server rejected the handshake
	// credentials. Terminal, surfaced as an error exactly once.
	DispositionAuthFailure
)

// String returns the disposition name for logging.
func (d Disposition) String() string {
	switch d {
	case DispositionRetry:
		return "retry"
	case DispositionNormal:
		return "normal"
	case DispositionAuthFailure:
		return "auth_failure"
	default:
		return "unknown"
	}
}

// Classify maps a close code and reason onto a disposition.
//
// 1000 is a deliberate closure. 1008 (policy violation) counts as an
// authentication failure only when the reason mentions authentication or
// tokens; a bare 1008 is retried like any other abnormal close.
func Classify(code int, reason string) Disposition {
	switch code {
	case websocket.CloseNormalClosure:
		return DispositionNormal
	case websocket.ClosePolicyViolation:
		if isAuthReason(reason) {
			return DispositionAuthFailure
		}
	}
	return DispositionRetry
}

func isAuthReason(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "authentication") || strings.Contains(r, "token")
}
