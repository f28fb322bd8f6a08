package devserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tradeyard/chatwire/internal/backoff"
	"github.com/tradeyard/chatwire/internal/connection"
	"github.com/tradeyard/chatwire/internal/protocol"
	"github.com/tradeyard/chatwire/internal/token"
)

type inbox struct {
	mu       sync.Mutex
	messages []protocol.Message
	errs     []error
	connects int
}

func (in *inbox) observers() connection.Observers {
	return connection.Observers{
		OnMessage: func(msg protocol.Message) {
			in.mu.Lock()
			in.messages = append(in.messages, msg)
			in.mu.Unlock()
		},
		OnError: func(err error) {
			in.mu.Lock()
			in.errs = append(in.errs, err)
			in.mu.Unlock()
		},
		OnConnect: func() {
			in.mu.Lock()
			in.connects++
			in.mu.Unlock()
		},
	}
}

func (in *inbox) messageCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.messages)
}

func (in *inbox) connected() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.connects > 0
}

func newClient(t *testing.T, baseURL, conversationID, bearer string) (connection.Manager, *inbox) {
	t.Helper()

	cfg := connection.DefaultManagerConfig()
	cfg.BaseURL = baseURL
	cfg.ConversationID = conversationID
	cfg.Policy = backoff.Policy{Base: 20 * time.Millisecond, Cap: 50 * time.Millisecond, MaxAttempts: 3}

	mgr, err := connection.NewManager(cfg, token.Static(bearer), nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	in := &inbox{}
	mgr.SetObservers(in.observers())
	t.Cleanup(mgr.Disconnect)

	return mgr, in
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestServer_FanOutBetweenParticipants(t *testing.T) {
	srv := httptest.NewServer(New("valid-token", nil).Handler())
	defer srv.Close()

	alice, aliceIn := newClient(t, srv.URL, "c-1", "valid-token")
	bob, bobIn := newClient(t, srv.URL, "c-1", "valid-token")

	alice.Connect(context.Background())
	bob.Connect(context.Background())
	waitFor(t, "both handshakes", func() bool { return aliceIn.connected() && bobIn.connected() })

	if err := alice.Send("is the bike still available?"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Both participants receive the message, sender included.
	waitFor(t, "fan-out to bob", func() bool { return bobIn.messageCount() == 1 })
	waitFor(t, "echo to alice", func() bool { return aliceIn.messageCount() == 1 })

	bobIn.mu.Lock()
	msg := bobIn.messages[0]
	bobIn.mu.Unlock()

	if msg.Content != "is the bike still available?" {
		t.Errorf("content = %q", msg.Content)
	}
	if msg.ConversationID != "c-1" {
		t.Errorf("conversation_id = %q, want c-1", msg.ConversationID)
	}
	if msg.ID == "" || msg.SenderID == "" {
		t.Errorf("message missing server fields: %+v", msg)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestServer_ConversationsAreIsolated(t *testing.T) {
	srv := httptest.NewServer(New("valid-token", nil).Handler())
	defer srv.Close()

	alice, aliceIn := newClient(t, srv.URL, "c-1", "valid-token")
	carol, carolIn := newClient(t, srv.URL, "c-2", "valid-token")

	alice.Connect(context.Background())
	carol.Connect(context.Background())
	waitFor(t, "both handshakes", func() bool { return aliceIn.connected() && carolIn.connected() })

	if err := alice.Send("only for c-1"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, "echo to alice", func() bool { return aliceIn.messageCount() == 1 })
	time.Sleep(50 * time.Millisecond)

	if carolIn.messageCount() != 0 {
		t.Errorf("message leaked across conversations")
	}
}

func TestServer_RejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(New("valid-token", nil).Handler())
	defer srv.Close()

	mallory, in := newClient(t, srv.URL, "c-1", "stolen-token")
	mallory.Connect(context.Background())

	waitFor(t, "auth rejection", func() bool {
		in.mu.Lock()
		defer in.mu.Unlock()
		return len(in.errs) > 0
	})

	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.errs) != 1 {
		t.Fatalf("OnError fired %d times, want 1: %v", len(in.errs), in.errs)
	}
	if !errors.Is(in.errs[0], connection.ErrAuthenticationFailed) {
		t.Errorf("error = %v, want ErrAuthenticationFailed", in.errs[0])
	}
	if mallory.State() != connection.StateFailed {
		t.Errorf("state = %v, want failed", mallory.State())
	}
}

func TestServer_UnsupportedFrameReportedNotFatal(t *testing.T) {
	srv := httptest.NewServer(New("valid-token", nil).Handler())
	defer srv.Close()

	alice, in := newClient(t, srv.URL, "c-1", "valid-token")
	alice.Connect(context.Background())
	waitFor(t, "handshake", func() bool { return in.connected() })

	// An empty content frame is rejected by the server with an error frame.
	if err := alice.Send(""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, "error frame", func() bool {
		in.mu.Lock()
		defer in.mu.Unlock()
		return len(in.errs) == 1
	})

	// Channel survives; a real message still goes through.
	if err := alice.Send("still here"); err != nil {
		t.Fatalf("Send after error frame failed: %v", err)
	}
	waitFor(t, "message after error frame", func() bool { return in.messageCount() == 1 })
}
