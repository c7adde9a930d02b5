package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var errBackpressure = errors.New("backpressure")

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan []byte, 32),
	}
}

func (c *wsConn) trySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrNotConnected
	}
	select {
	case c.send <- data:
	default:
		return errBackpressure
	}
	return nil
}

func (c *wsConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *Channel) writePump(ctx context.Context, conn *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-conn.send:
			if !ok {
				return
			}
			if err := conn.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the single inbound flow for the connection: messages are
// decoded and dispatched strictly in arrival order, so per-type
// handlers need no locking against each other.
func (c *Channel) readPump(ctx context.Context, conn *wsConn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			_, data, err := conn.conn.ReadMessage()
			if err != nil {
				return err
			}
			c.dispatch(data)
		}
	}
}
