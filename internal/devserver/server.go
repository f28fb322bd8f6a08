package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/tradeyard/chatwire/internal/protocol"
)

const (
	// sendChannelSize controls the max number of messages that can be
	// queued for a participant before it is dropped as too slow.
	sendChannelSize = 16

	authDeadline = 10 * time.Second
)

// authOutcome is the frame sent after a successful handshake.
type authOutcome struct {
	Kind string `json:"kind"`
}

// errorFrame reports a recoverable protocol problem without closing.
type errorFrame struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Server is the in-memory chat backend.
type Server struct {
	token  string
	logger *slog.Logger

	mu            sync.Mutex
	conversations map[string]map[*participant]struct{}
	nextUser      int
}

// participant is one connected channel within a conversation.
type participant struct {
	id     string
	conn   *websocket.Conn
	send   chan protocol.Message
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server that accepts exactly the given bearer token.
func New(token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		token:         token,
		logger:        logger,
		conversations: make(map[string]map[*participant]struct{}),
	}
}

// Handler exposes the chat channel endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/conversations/{id}", s.handleChannel)
	return mux
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("accept failed", "error", err)
		return
	}

	if !s.handshake(conn) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &participant{
		id:     s.nextUserID(),
		conn:   conn,
		send:   make(chan protocol.Message, sendChannelSize),
		ctx:    ctx,
		cancel: cancel,
	}

	s.join(conversationID, p)
	defer s.leave(conversationID, p)

	go s.writePump(p)
	s.readPump(conversationID, p)
}

// handshake enforces that the first frame is a valid auth request. A bad
// token closes the channel with a policy violation naming authentication,
// which the client treats as terminal.
func (s *Server) handshake(conn *websocket.Conn) bool {
	ctx, cancel := context.WithTimeout(context.Background(), authDeadline)
	defer cancel()

	var req protocol.AuthRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "Authentication failed: no auth frame")
		return false
	}
	if req.Kind != protocol.KindAuth || req.Token != s.token {
		conn.Close(websocket.StatusPolicyViolation, "Authentication failed: invalid token")
		return false
	}

	if err := wsjson.Write(ctx, conn, authOutcome{Kind: protocol.KindAuthSuccess}); err != nil {
		s.logger.Warn("auth outcome write failed", "error", err)
		conn.Close(websocket.StatusInternalError, "")
		return false
	}
	return true
}

func (s *Server) readPump(conversationID string, p *participant) {
	defer p.cancel()

	for {
		var raw json.RawMessage
		if err := wsjson.Read(p.ctx, p.conn, &raw); err != nil {
			s.logger.Debug("participant read ended", "participant", p.id, "error", err)
			return
		}

		var send protocol.ChatSend
		if err := json.Unmarshal(raw, &send); err != nil || send.Content == "" {
			// Recoverable: report and keep the channel open.
			wsjson.Write(p.ctx, p.conn, errorFrame{Kind: protocol.KindError, Detail: "unsupported frame"})
			continue
		}

		s.broadcast(conversationID, protocol.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			SenderID:       p.id,
			Content:        send.Content,
			CreatedAt:      time.Now().UTC(),
		})
	}
}

func (s *Server) writePump(p *participant) {
	for {
		select {
		case msg := <-p.send:
			if err := wsjson.Write(p.ctx, p.conn, msg); err != nil {
				s.logger.Debug("participant write failed", "participant", p.id, "error", err)
				p.cancel()
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (s *Server) join(conversationID string, p *participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.conversations[conversationID]
	if !ok {
		members = make(map[*participant]struct{})
		s.conversations[conversationID] = members
	}
	members[p] = struct{}{}

	s.logger.Info("participant joined", "participant", p.id, "conversation", conversationID)
}

func (s *Server) leave(conversationID string, p *participant) {
	s.mu.Lock()
	if members, ok := s.conversations[conversationID]; ok {
		delete(members, p)
		if len(members) == 0 {
			delete(s.conversations, conversationID)
		}
	}
	s.mu.Unlock()

	p.cancel()
	p.conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("participant left", "participant", p.id, "conversation", conversationID)
}

// broadcast fans a message out to every participant of the conversation,
// sender included, in arrival order. Slow participants are dropped.
func (s *Server) broadcast(conversationID string, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for p := range s.conversations[conversationID] {
		select {
		case p.send <- msg:
		default:
			s.logger.Warn("participant too slow, dropping", "participant", p.id)
			p.cancel()
		}
	}
}

func (s *Server) nextUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	return fmt.Sprintf("u-%d", s.nextUser)
}
