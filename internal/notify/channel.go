package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// DefaultSendTimeout bounds a single push so a stalled browser cannot hold a
// broadcast.
const DefaultSendTimeout = 5 * time.Second

var errChannelClosed = errors.New("push channel closed")

// wsChannel adapts a websocket connection to Channel.
type wsChannel struct {
	id          string
	conn        *websocket.Conn
	sendTimeout time.Duration
	closed      atomic.Bool
}

func newWSChannel(conn *websocket.Conn, sendTimeout time.Duration) *wsChannel {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &wsChannel{
		id:          uuid.NewString(),
		conn:        conn,
		sendTimeout: sendTimeout,
	}
}

func (c *wsChannel) ID() string {
	return c.id
}

func (c *wsChannel) Closed() bool {
	return c.closed.Load()
}

func (c *wsChannel) Send(ctx context.Context, payload any) error {
	if c.closed.Load() {
		return errChannelClosed
	}
	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, payload); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

func (c *wsChannel) close(code websocket.StatusCode, reason string) {
	if c.closed.Swap(true) {
		return
	}
	_ = c.conn.Close(code, reason)
}
