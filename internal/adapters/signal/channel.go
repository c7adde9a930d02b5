// Package signal owns the duplex signaling connection: one websocket
// per account session, supervised reconnect, outbound framing and
// inbound dispatch by message type.
package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/protocol"
)

var ErrNotConnected = errors.New("signaling channel not connected")

// Channel implements core.SignalChannel over gorilla/websocket.
//
// Run supervises the connection: dial, pump until close, wait a fixed
// delay, dial again -- indefinitely while ctx lives. No backoff; the
// server is expected to rate-limit if it must. Establishment failures
// and mid-session errors share the same close-and-retry path.
type Channel struct {
	url    string
	delay  time.Duration
	dialer *websocket.Dialer

	mu       sync.RWMutex
	conn     *wsConn
	handlers map[string][]core.Handler
	onOpen   []func()
}

func NewChannel(url string, reconnectDelay time.Duration) *Channel {
	return &Channel{
		url:      url,
		delay:    reconnectDelay,
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string][]core.Handler),
	}
}

// Subscribe registers a handler for one message type. Handlers run
// synchronously on the read loop in arrival order; register everything
// before Run.
func (c *Channel) Subscribe(msgType string, h core.Handler) {
	c.mu.Lock()
	c.handlers[msgType] = append(c.handlers[msgType], h)
	c.mu.Unlock()
}

// OnOpen registers a hook fired after every successful dial. The server
// holds no session state across reconnects, so subscriptions and
// announcements are replayed here.
func (c *Channel) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = append(c.onOpen, fn)
	c.mu.Unlock()
}

func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Send frames and enqueues one outbound message, fire-and-forget. A
// send while disconnected returns ErrNotConnected and the message is
// dropped, never queued.
func (c *Channel) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.trySend(data)
}

// Run drives the connection lifecycle until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) {
	for {
		if err := c.runOnce(ctx); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("url", c.url).Msg("connection lost")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
		}
	}
}

func (c *Channel) runOnce(ctx context.Context) error {
	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	conn := newWSConn(ws)

	c.mu.Lock()
	c.conn = conn
	hooks := make([]func(), len(c.onOpen))
	copy(hooks, c.onOpen)
	c.mu.Unlock()

	log.Info().Str("module", "signal").Str("url", c.url).Msg("connected")
	for _, fn := range hooks {
		fn()
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	go c.writePump(pumpCtx, conn)
	// ReadMessage has no context; closing the socket is the only way
	// to unblock the read pump when the session is cancelled.
	go func() {
		<-pumpCtx.Done()
		conn.close()
	}()
	err = c.readPump(pumpCtx, conn)

	cancel()
	conn.close()
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	return err
}

func (c *Channel) dispatch(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad frame")
		return
	}
	if u, ok := msg.(*protocol.Unknown); ok {
		log.Warn().Str("module", "signal").Str("type", u.Tag).Msg("unknown signal")
		return
	}

	c.mu.RLock()
	handlers := c.handlers[msg.MessageType()]
	c.mu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
}
