package orch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// JoinVoice starts a voice session: acquire local media, register with
// the house, then negotiate with whoever Registered reports. Both
// preconditions fail fast -- joining never proceeds without local
// media or a live channel.
func (o *Orchestrator) JoinVoice(room string, house domain.HouseID, localPeer domain.PeerID) error {
	o.mu.Lock()
	if o.inVoice {
		o.mu.Unlock()
		return ErrAlreadyInVoice
	}
	o.mu.Unlock()

	if _, err := o.Media.TransmissionTrack(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoMedia, err)
	}
	if !o.Signal.Connected() {
		return ErrChannelDown
	}

	o.mu.Lock()
	o.inVoice = true
	o.gen++
	o.house = house
	o.room = room
	o.localPeer = localPeer
	o.peers = make(map[domain.PeerID]*peerLink)
	o.mu.Unlock()

	log.Info().Str("module", "orch").Str("room", room).Str("house", string(house)).Str("peer", string(localPeer)).Msg("joining voice")

	msg := protocol.Register{HouseID: house, PeerID: localPeer}
	if err := o.Signal.Send(msg); err != nil {
		o.LeaveVoice()
		return fmt.Errorf("send register: %w", err)
	}
	return nil
}

// LeaveVoice tears the whole session down: every peer connection
// closed, every renderer stopped, join state reset. Idempotent; a call
// outside a session is a no-op.
func (o *Orchestrator) LeaveVoice() {
	o.mu.Lock()
	if !o.inVoice {
		o.mu.Unlock()
		return
	}
	peers := o.peers
	o.inVoice = false
	o.gen++
	o.house = ""
	o.room = ""
	o.localPeer = ""
	o.peers = make(map[domain.PeerID]*peerLink)
	o.mu.Unlock()

	for _, p := range peers {
		if p.renderer != nil {
			p.renderer.Stop()
		}
		p.conn.Close()
	}
	o.Media.SetTransmissionMuted(false)
	log.Info().Str("module", "orch").Int("peers", len(peers)).Msg("left voice")
	o.notifyPeerChange()
}

// handleRegistered sets up one connection per already-present peer and
// offers to each. A failure for one peer does not stop the rest. The
// channel is shared with house-sync registrations, so replies for
// other endpoints (house-sync peer ids) are not ours.
func (o *Orchestrator) handleRegistered(msg *protocol.Registered) {
	o.mu.Lock()
	if !o.inVoice || msg.PeerID != o.localPeer {
		o.mu.Unlock()
		return
	}
	local := o.localPeer
	o.mu.Unlock()

	log.Info().Str("module", "orch").Int("peers", len(msg.Peers)).Msg("registered")
	for _, remote := range msg.Peers {
		link, err := o.ensurePeer(remote)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("peer", string(remote)).Msg("create peer")
			continue
		}
		sdp, err := link.conn.CreateAndSetOffer()
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Str("peer", string(remote)).Msg("create offer")
			o.teardownPeer(remote)
			continue
		}
		offer := protocol.Offer{FromPeer: local, ToPeer: remote, SDP: sdp}
		if err := o.Signal.Send(offer); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("peer", string(remote)).Msg("offer dropped")
		}
	}
	o.notifyPeerChange()
}

// handleOffer answers a remote offer, creating the peer's connection
// on the fly when the offer outruns our own Registered-driven setup.
func (o *Orchestrator) handleOffer(msg *protocol.Offer) {
	o.mu.Lock()
	if !o.inVoice || msg.ToPeer != o.localPeer {
		o.mu.Unlock()
		return
	}
	local := o.localPeer
	o.mu.Unlock()

	link, err := o.ensurePeer(msg.FromPeer)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("create peer for offer")
		return
	}
	sdp, err := link.conn.ApplyOfferAndCreateAnswer(msg.SDP)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("apply offer")
		o.teardownPeer(msg.FromPeer)
		return
	}
	answer := protocol.Answer{FromPeer: local, ToPeer: msg.FromPeer, SDP: sdp}
	if err := o.Signal.Send(answer); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("answer dropped")
	}
	o.notifyPeerChange()
}

// handleAnswer applies an answer to the pending negotiation. Unknown
// peers (already cleaned up) are discarded silently; answers can race
// teardown.
func (o *Orchestrator) handleAnswer(msg *protocol.Answer) {
	o.mu.Lock()
	if msg.ToPeer != o.localPeer {
		o.mu.Unlock()
		return
	}
	link, ok := o.peers[msg.FromPeer]
	o.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("answer for unknown peer")
		return
	}
	if err := link.conn.ApplyAnswer(msg.SDP); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("apply answer")
	}
}

// handleCandidate applies a candidate to the addressed peer, else
// drops it. Candidates racing connection teardown are expected.
func (o *Orchestrator) handleCandidate(msg *protocol.IceCandidate) {
	o.mu.Lock()
	if msg.ToPeer != o.localPeer {
		o.mu.Unlock()
		return
	}
	link, ok := o.peers[msg.FromPeer]
	o.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("candidate for unknown peer")
		return
	}
	if err := link.conn.AddICECandidate(msg.Candidate); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("peer", string(msg.FromPeer)).Msg("add candidate")
	}
}
