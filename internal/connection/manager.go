package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradeyard/chatwire/internal/backoff"
	"github.com/tradeyard/chatwire/internal/protocol"
	"github.com/tradeyard/chatwire/internal/token"
)

// Manager maintains one authenticated chat channel for one conversation.
//
// Connect and Disconnect are asynchronous with respect to the network:
// outcomes arrive through the registered Observers. Send is synchronous and
// fails unless the handshake has completed.
type Manager interface {
	// Connect opens the channel and runs the auth handshake. No-op while a
	// channel is live or a dial is in flight; while reconnecting it cancels
	// the pending backoff timer and dials immediately. The context governs
	// this session: cancelling it stops dialing and reconnecting.
	Connect(ctx context.Context)

	// Send transmits one application frame. Returns ErrNotConnected unless
	// the handshake has completed. Fire-and-forget: nothing is queued on
	// failure.
	Send(content string) error

	// Disconnect cancels any pending reconnect, closes the live channel
	// with a normal-closure code and returns the manager to idle. It waits
	// for any in-flight callback to complete, so after it returns no
	// reconnect is scheduled and no further callback fires. Idempotent;
	// must not be called from inside an observer callback.
	Disconnect()

	// SetObservers replaces the callback set. Safe at any time; never
	// touches the channel.
	SetObservers(obs Observers)

	// State returns the current lifecycle state.
	State() State

	// Attempt returns the reconnect count since the last successful
	// handshake.
	Attempt() int
}

// manager implements the Manager interface.
type manager struct {
	cfg    ManagerConfig
	tokens token.Source
	logger *slog.Logger
	url    string

	// dispatchMu serializes observer callback invocation against
	// Disconnect: the gen check and the callback run as one unit, so a
	// disposal either preempts a callback or waits for it to finish.
	dispatchMu sync.Mutex

	mu      sync.Mutex
	state   State
	attempt int
	ch      *channel
	timer   *time.Timer
	obs     Observers
	ctx     context.Context

	// gen fences events: every attempt and every disposal bumps it, and
	// events carrying a stale generation are dropped. This is what keeps
	// callbacks from firing after disposal.
	gen uint64

	// termErrFired guards the exactly-once delivery of terminal errors
	// under repeated close events. Reset by the next Connect.
	termErrFired bool
}

// NewManager creates a connection manager for one conversation.
func NewManager(cfg ManagerConfig, tokens token.Source, logger *slog.Logger) (Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	url, err := ChannelURL(cfg.BaseURL, cfg.ConversationID)
	if err != nil {
		return nil, err
	}

	return &manager{
		cfg:    cfg,
		tokens: tokens,
		logger: logger.With("conversation_id", cfg.ConversationID),
		url:    url,
		state:  StateIdle,
	}, nil
}

// Connect opens the channel. See Manager.
func (m *manager) Connect(ctx context.Context) {
	m.mu.Lock()
	switch m.state {
	case StateIdle, StateFailed:
	case StateReconnecting:
		// An explicit connect preempts the backoff timer.
		m.clearTimerLocked()
	default:
		// A live handle or an in-flight dial already exists.
		m.mu.Unlock()
		return
	}

	m.ctx = ctx
	m.termErrFired = false
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.attemptConnect(ctx, gen)
}

// Send transmits one application frame. See Manager.
func (m *manager) Send(content string) error {
	m.mu.Lock()
	if m.state != StateOpen {
		m.mu.Unlock()
		return ErrNotConnected
	}
	ch := m.ch
	m.mu.Unlock()

	data, err := json.Marshal(protocol.ChatSend{Content: content})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return ch.send(data)
}

// Disconnect tears everything down. See Manager.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.clearTimerLocked()
	ch := m.ch
	m.ch = nil
	hadHandle := ch != nil
	m.state = StateIdle
	m.attempt = 0
	onDisconnect := m.obs.OnDisconnect
	m.mu.Unlock()

	if ch != nil {
		ch.close()
	}

	// Taking dispatchMu here drains any callback that passed its gen check
	// before the bump above; once it is held, nothing stale can fire.
	m.dispatchMu.Lock()
	if hadHandle && onDisconnect != nil {
		onDisconnect()
	}
	m.dispatchMu.Unlock()
}

// SetObservers replaces the callback set. See Manager.
func (m *manager) SetObservers(obs Observers) {
	m.mu.Lock()
	m.obs = obs
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt returns the reconnect count since the last successful handshake.
func (m *manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// attemptConnect dials, sends the auth request and hands the channel to the
// event loop. The token is re-read on every attempt so a refreshed session
// token is honored.
func (m *manager) attemptConnect(ctx context.Context, gen uint64) {
	tok, err := m.tokens.Token(ctx)
	if err != nil {
		if ctx.Err() != nil {
			m.settle(gen, StateIdle)
			return
		}
		m.logger.Warn("token read failed", "error", err)
		m.handleClose(gen, CloseInfo{Code: websocket.CloseAbnormalClosure, Reason: err.Error()})
		return
	}

	ch, err := dialChannel(ctx, m.url, m.cfg.DialTimeout, m.cfg.WriteTimeout)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is disposal, not a network failure.
			m.settle(gen, StateIdle)
			return
		}
		m.logger.Warn("dial failed", "url", m.url, "error", err)
		m.handleClose(gen, CloseInfo{Code: websocket.CloseAbnormalClosure, Reason: err.Error()})
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Disposed while dialing.
		m.mu.Unlock()
		ch.close()
		return
	}
	m.ch = ch
	m.state = StateAuthPending
	m.mu.Unlock()

	data, _ := json.Marshal(protocol.NewAuthRequest(tok))
	if err := ch.send(data); err != nil {
		// The read loop will surface the close; nothing to do here.
		m.logger.Warn("auth request write failed", "error", err)
	}

	m.logger.Debug("channel open, auth pending")

	go m.runChannel(gen, ch)
}

// runChannel is the per-channel event loop: frames in arrival order, then
// the close notification.
func (m *manager) runChannel(gen uint64, ch *channel) {
	for {
		select {
		case data := <-ch.frames:
			m.handleFrame(gen, data)
		case info := <-ch.closed:
			m.handleClose(gen, info)
			return
		}
	}
}

// handleFrame decodes one inbound frame and routes it. Parse failures and
// out-of-state frames are dropped without touching the channel.
func (m *manager) handleFrame(gen uint64, data []byte) {
	ev, err := protocol.DecodeServerEvent(data)
	if err != nil {
		m.logger.Warn("dropping undecodable frame", "error", err)
		return
	}

	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	switch ev.Kind {
	case protocol.EventAuthSuccess:
		m.mu.Lock()
		if gen != m.gen || m.state != StateAuthPending {
			m.mu.Unlock()
			m.logger.Warn("unexpected auth_success, ignoring", "state", m.State())
			return
		}
		m.state = StateOpen
		m.attempt = 0
		onConnect := m.obs.OnConnect
		m.mu.Unlock()

		m.logger.Info("handshake complete")
		if onConnect != nil {
			onConnect()
		}

	case protocol.EventMessage:
		m.mu.Lock()
		if gen != m.gen || m.state != StateOpen {
			// A chat frame before auth_success is a protocol error, not an
			// implicit handshake success.
			m.mu.Unlock()
			m.logger.Warn("dropping chat frame outside open state")
			return
		}
		onMessage := m.obs.OnMessage
		m.mu.Unlock()

		if onMessage != nil {
			onMessage(*ev.Message)
		}

	case protocol.EventError:
		m.mu.Lock()
		stale := gen != m.gen
		onError := m.obs.OnError
		m.mu.Unlock()
		if stale {
			return
		}

		m.logger.Warn("server error frame", "detail", ev.Detail)
		if onError != nil {
			onError(fmt.Errorf("server error: %s", ev.Detail))
		}
	}
}

// handleClose classifies a close event and either schedules a reconnect or
// settles in a terminal state.
func (m *manager) handleClose(gen uint64, info CloseInfo) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.ch = nil

	disp := backoff.Classify(info.Code, info.Reason)
	m.logger.Info("channel closed",
		"code", info.Code,
		"reason", info.Reason,
		"disposition", disp.String(),
		"attempt", m.attempt,
	)

	onDisconnect := m.obs.OnDisconnect
	onError := m.obs.OnError
	var terminalErr error

	switch disp {
	case backoff.DispositionNormal:
		m.state = StateIdle

	case backoff.DispositionAuthFailure:
		m.state = StateFailed
		if !m.termErrFired {
			m.termErrFired = true
			terminalErr = fmt.Errorf("%w: %s", ErrAuthenticationFailed, info.Reason)
		}

	case backoff.DispositionRetry:
		if m.cfg.Policy.Exhausted(m.attempt) {
			m.state = StateFailed
			if !m.termErrFired {
				m.termErrFired = true
				terminalErr = ErrMaxRetriesExceeded
			}
			break
		}

		delay := m.cfg.Policy.Delay(m.attempt)
		m.attempt++
		m.state = StateReconnecting
		m.clearTimerLocked()
		m.timer = time.AfterFunc(delay, func() { m.timerFired(gen) })
		m.logger.Info("reconnect scheduled", "delay", delay, "attempt", m.attempt)
	}
	m.mu.Unlock()

	if onDisconnect != nil {
		onDisconnect()
	}
	if terminalErr != nil && onError != nil {
		onError(terminalErr)
	}
}

// timerFired moves a pending reconnect into a fresh connect attempt.
func (m *manager) timerFired(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.state = StateConnecting
	m.gen++
	newGen := m.gen
	ctx := m.ctx
	m.mu.Unlock()

	go m.attemptConnect(ctx, newGen)
}

// settle moves to a quiet state if the generation is still current.
// Used when context cancellation aborts an attempt: no callbacks, no retry.
func (m *manager) settle(gen uint64, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.clearTimerLocked()
	m.state = s
}

// clearTimerLocked releases the pending reconnect timer. Caller holds mu.
// The timer is non-nil only while reconnecting; every transition out of
// that state comes through here first.
func (m *manager) clearTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
