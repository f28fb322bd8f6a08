package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// channel wraps a single live WebSocket connection. At most one channel is
// live per manager; the manager owns it exclusively.
type channel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// frames delivers inbound frames in arrival order. Unbuffered, so the
	// close notification cannot overtake undelivered frames.
	frames chan []byte

	// closed delivers the close reason exactly once, after the last frame.
	closed chan CloseInfo

	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// dialChannel opens the WebSocket and starts the read loop.
func dialChannel(ctx context.Context, url string, dialTimeout, writeTimeout time.Duration) (*channel, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &channel{
		conn:         conn,
		writeTimeout: writeTimeout,
		frames:       make(chan []byte),
		closed:       make(chan CloseInfo, 1),
		done:         make(chan struct{}),
	}

	go c.readLoop()

	return c, nil
}

// send writes one text frame. Writes are serialized and deadlined.
func (c *channel) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// close sends a normal-closure frame and tears the connection down.
// Idempotent; suppresses the read loop's close notification.
func (c *channel) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

// readLoop delivers frames until the connection dies, then reports why.
func (c *channel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close; the manager already moved on.
			default:
				c.closed <- closeInfoFromErr(err)
			}
			return
		}

		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

// closeInfoFromErr extracts the peer's close code, or synthesizes an
// abnormal closure for plain network errors.
func closeInfoFromErr(err error) CloseInfo {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseInfo{Code: ce.Code, Reason: ce.Text}
	}
	return CloseInfo{Code: websocket.CloseAbnormalClosure, Reason: err.Error()}
}
