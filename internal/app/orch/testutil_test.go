package orch

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

type fakeSignal struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	sent      []protocol.Message
	handlers  map[string][]core.Handler
}

func newFakeSignal() *fakeSignal {
	return &fakeSignal{connected: true, handlers: make(map[string][]core.Handler)}
}

func (s *fakeSignal) Send(m protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSignal) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSignal) Subscribe(msgType string, h core.Handler) {
	s.mu.Lock()
	s.handlers[msgType] = append(s.handlers[msgType], h)
	s.mu.Unlock()
}

func (s *fakeSignal) OnOpen(fn func()) {}

func (s *fakeSignal) deliver(m protocol.Message) {
	s.mu.Lock()
	handlers := append([]core.Handler{}, s.handlers[m.MessageType()]...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(m)
	}
}

func (s *fakeSignal) sentOfType(msgType string) []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []protocol.Message
	for _, m := range s.sent {
		if m.MessageType() == msgType {
			out = append(out, m)
		}
	}
	return out
}

type fakeSource struct {
	mu       sync.Mutex
	track    webrtc.TrackLocal
	trackErr error
	muted    bool
}

func newFakeSource() *fakeSource {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "test-mic")
	if err != nil {
		panic(err)
	}
	return &fakeSource{track: track}
}

func (f *fakeSource) TransmissionTrack() (webrtc.TrackLocal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackErr != nil {
		return nil, f.trackErr
	}
	return f.track, nil
}

func (f *fakeSource) SetTransmissionMuted(muted bool) {
	f.mu.Lock()
	f.muted = muted
	f.mu.Unlock()
}

func (f *fakeSource) TransmissionMuted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

type fakeConn struct {
	mu         sync.Mutex
	peer       domain.PeerID
	closed     bool
	offerErr   error
	answerErr  error
	tracks     []webrtc.TrackLocal
	applied    []string
	candidates []string
	onICE      func(string)
	onTrack    func(*webrtc.TrackRemote)
	onState    func(core.PeerState)
}

func (c *fakeConn) Start(ctx context.Context) error { return nil }

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) CreateAndSetOffer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offerErr != nil {
		return "", c.offerErr
	}
	return "offer-from-" + string(c.peer), nil
}

func (c *fakeConn) ApplyAnswer(sdp string) error {
	c.mu.Lock()
	c.applied = append(c.applied, sdp)
	c.mu.Unlock()
	return c.answerErr
}

func (c *fakeConn) ApplyOfferAndCreateAnswer(sdp string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answerErr != nil {
		return "", c.answerErr
	}
	c.applied = append(c.applied, sdp)
	return "answer-to-" + string(c.peer), nil
}

func (c *fakeConn) AddICECandidate(candidate string) error {
	c.mu.Lock()
	c.candidates = append(c.candidates, candidate)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) AddLocalTrack(track webrtc.TrackLocal) error {
	c.mu.Lock()
	c.tracks = append(c.tracks, track)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) OnICECandidate(fn func(string))              { c.onICE = fn }
func (c *fakeConn) OnTrack(fn func(*webrtc.TrackRemote))        { c.onTrack = fn }
func (c *fakeConn) OnStateChange(fn func(state core.PeerState)) { c.onState = fn }

type fakeDialer struct {
	mu      sync.Mutex
	dialErr error
	conns   map[domain.PeerID]*fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(map[domain.PeerID]*fakeConn)}
}

func (d *fakeDialer) NewConnection(peer domain.PeerID) (core.MediaConnection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	conn := &fakeConn{peer: peer}
	d.conns[peer] = conn
	return conn, nil
}

func (d *fakeDialer) conn(peer domain.PeerID) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[peer]
}

type fakeRenderer struct {
	mu      sync.Mutex
	played  bool
	stopped bool
}

func (r *fakeRenderer) Play(track *webrtc.TrackRemote) {
	r.mu.Lock()
	r.played = true
	r.mu.Unlock()
}

func (r *fakeRenderer) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

func (r *fakeRenderer) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

type fakeRendererFactory struct {
	mu        sync.Mutex
	renderers map[domain.PeerID]*fakeRenderer
}

func newFakeRendererFactory() *fakeRendererFactory {
	return &fakeRendererFactory{renderers: make(map[domain.PeerID]*fakeRenderer)}
}

func (f *fakeRendererFactory) NewRenderer(peer domain.PeerID) core.MediaRenderer {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &fakeRenderer{}
	f.renderers[peer] = r
	return r
}

func (f *fakeRendererFactory) renderer(peer domain.PeerID) *fakeRenderer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderers[peer]
}
