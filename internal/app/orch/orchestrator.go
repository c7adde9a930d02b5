// Package orch runs the per-peer voice negotiation state machine. The
// orchestrator owns every peer's connection object; transport callbacks
// post back through orchestrator methods and never touch shared state
// directly.
package orch

import (
	"errors"
	"sync"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

var (
	ErrNoMedia        = errors.New("local media capture unavailable")
	ErrChannelDown    = errors.New("signaling channel not connected")
	ErrAlreadyInVoice = errors.New("already in a voice session")
)

type Orchestrator struct {
	Signal   core.SignalChannel
	Media    core.MediaSource
	Dialer   core.MediaDialer
	Renderer core.RendererFactory

	// OnPeerChange, when set, is notified after any peer state change
	// (UI refresh hook). Called outside the orchestrator lock.
	OnPeerChange func()

	mu        sync.Mutex
	inVoice   bool
	gen       uint64
	house     domain.HouseID
	room      string
	localPeer domain.PeerID
	peers     map[domain.PeerID]*peerLink
}

// peerLink is one remote peer's negotiation state. Mutated only under
// the orchestrator lock.
type peerLink struct {
	peer     domain.PeerID
	state    core.PeerState
	conn     core.MediaConnection
	renderer core.MediaRenderer
}

func New(signal core.SignalChannel, media core.MediaSource, dialer core.MediaDialer, renderer core.RendererFactory) *Orchestrator {
	o := &Orchestrator{
		Signal:   signal,
		Media:    media,
		Dialer:   dialer,
		Renderer: renderer,
		peers:    make(map[domain.PeerID]*peerLink),
	}
	o.bind()
	return o
}

// bind subscribes the negotiation handlers. They run on the channel's
// read loop, strictly in arrival order.
func (o *Orchestrator) bind() {
	o.Signal.Subscribe(protocol.TypeRegistered, func(m protocol.Message) {
		if msg, ok := m.(*protocol.Registered); ok {
			o.handleRegistered(msg)
		}
	})
	o.Signal.Subscribe(protocol.TypeOffer, func(m protocol.Message) {
		if msg, ok := m.(*protocol.Offer); ok {
			o.handleOffer(msg)
		}
	})
	o.Signal.Subscribe(protocol.TypeAnswer, func(m protocol.Message) {
		if msg, ok := m.(*protocol.Answer); ok {
			o.handleAnswer(msg)
		}
	})
	o.Signal.Subscribe(protocol.TypeIceCandidate, func(m protocol.Message) {
		if msg, ok := m.(*protocol.IceCandidate); ok {
			o.handleCandidate(msg)
		}
	})
}

// InVoice reports whether a voice session is active.
func (o *Orchestrator) InVoice() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inVoice
}

// PeerSnapshot is a read-only view of one peer for APIs.
type PeerSnapshot struct {
	PeerID domain.PeerID  `json:"peer_id"`
	State  core.PeerState `json:"state"`
}

// Peers returns a snapshot of the current peer table.
func (o *Orchestrator) Peers() []PeerSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]PeerSnapshot, 0, len(o.peers))
	for _, p := range o.peers {
		out = append(out, PeerSnapshot{PeerID: p.peer, State: p.state})
	}
	return out
}

// SetMuted gates local transmission without renegotiating anything.
func (o *Orchestrator) SetMuted(muted bool) {
	o.Media.SetTransmissionMuted(muted)
}

// Muted reports the local transmission gate.
func (o *Orchestrator) Muted() bool {
	return o.Media.TransmissionMuted()
}

func (o *Orchestrator) notifyPeerChange() {
	if o.OnPeerChange != nil {
		o.OnPeerChange()
	}
}

// currentGen exists so transport callbacks can detect that the session
// they belong to has been torn down and suppress their side effects.
func (o *Orchestrator) currentGen() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}
