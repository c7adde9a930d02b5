package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roommate/roomlink/internal/protocol"
)

// wsTestServer accepts websocket connections, records inbound frames
// and lets tests push frames to whatever client is connected.
type wsTestServer struct {
	upgrader websocket.Upgrader
	srv      *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	received [][]byte
	accepted atomic.Int64
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	s := &wsTestServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, ws)
		s.mu.Unlock()
		s.accepted.Add(1)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, data)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.close)
	return s
}

func (s *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsTestServer) close() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, ws := range conns {
		_ = ws.Close()
	}
	s.srv.Close()
}

// push writes one frame to the most recent client connection.
func (s *wsTestServer) push(t *testing.T, frame []byte) {
	t.Helper()
	s.mu.Lock()
	require.NotEmpty(t, s.conns)
	ws := s.conns[len(s.conns)-1]
	s.mu.Unlock()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

// dropClients closes every accepted connection, forcing a reconnect.
func (s *wsTestServer) dropClients() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, ws := range conns {
		_ = ws.Close()
	}
}

func (s *wsTestServer) frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.received))
	copy(out, s.received)
	return out
}

func startChannel(t *testing.T, srv *wsTestServer) (*Channel, context.CancelFunc) {
	t.Helper()
	ch := NewChannel(srv.url(), 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ch.Run(ctx)
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)
	return ch, cancel
}

func TestChannelDispatchByType(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(srv.url(), 20*time.Millisecond)

	var mu sync.Mutex
	var offers []*protocol.Offer
	var errs int
	ch.Subscribe(protocol.TypeOffer, func(m protocol.Message) {
		if msg, ok := m.(*protocol.Offer); ok {
			mu.Lock()
			offers = append(offers, msg)
			mu.Unlock()
		}
	})
	ch.Subscribe(protocol.TypeError, func(m protocol.Message) {
		mu.Lock()
		errs++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ch.Run(ctx)
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	srv.push(t, []byte(`{"type":"Offer","from_peer":"p1","to_peer":"me","sdp":"v=0"}`))
	srv.push(t, []byte(`{"type":"totally_new"}`))
	srv.push(t, []byte(`{"type":"Error","message":"bad register"}`))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(offers) == 1 && errs == 1
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "p1", string(offers[0].FromPeer))
	assert.Equal(t, "v=0", offers[0].SDP)
}

func TestChannelSendFramesWithType(t *testing.T) {
	srv := newWSTestServer(t)
	ch, _ := startChannel(t, srv)

	require.NoError(t, ch.Send(protocol.Register{HouseID: "h1", PeerID: "me"}))

	require.Eventually(t, func() bool {
		return len(srv.frames()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(srv.frames()[0], &frame))
	assert.Equal(t, "Register", frame["type"])
	assert.Equal(t, "h1", frame["house_id"])
	assert.Equal(t, "me", frame["peer_id"])
}

func TestChannelSendWhileDisconnected(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws", time.Hour)
	err := ch.Send(protocol.Register{HouseID: "h1", PeerID: "me"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, ch.Connected())
}

func TestChannelReconnectRefiresOnOpen(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(srv.url(), 20*time.Millisecond)

	var opens atomic.Int64
	ch.OnOpen(func() { opens.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ch.Run(ctx)
	require.Eventually(t, func() bool { return opens.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.dropClients()
	require.Eventually(t, func() bool { return opens.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(2), srv.accepted.Load())
}

func TestChannelDisconnectedBetweenSessions(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(srv.url(), 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ch.Run(ctx)
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	srv.dropClients()
	require.Eventually(t, func() bool { return !ch.Connected() }, 2*time.Second, 10*time.Millisecond)

	// Inside the retry delay sends fail instead of queueing.
	err := ch.Send(protocol.Register{HouseID: "h1", PeerID: "me"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestChannelStopsOnContextCancel(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(srv.url(), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go ch.Run(ctx)
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	// Cancellation alone must unblock the read pump; the server keeps
	// the socket open and sends nothing.
	cancel()
	require.Eventually(t, func() bool { return !ch.Connected() }, 2*time.Second, 10*time.Millisecond)

	// No new dial after cancellation.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), srv.accepted.Load())
}
