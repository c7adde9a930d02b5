package orch

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// ensurePeer returns the existing link for the peer or builds a fresh
// one: transport session, local track attached, callbacks wired. The
// generation captured here makes stale callbacks (from a session left
// in the meantime) harmless.
func (o *Orchestrator) ensurePeer(remote domain.PeerID) (*peerLink, error) {
	o.mu.Lock()
	if link, ok := o.peers[remote]; ok {
		o.mu.Unlock()
		return link, nil
	}
	gen := o.gen
	local := o.localPeer
	o.mu.Unlock()

	conn, err := o.Dialer.NewConnection(remote)
	if err != nil {
		return nil, err
	}

	track, err := o.Media.TransmissionTrack()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.AddLocalTrack(track); err != nil {
		conn.Close()
		return nil, err
	}

	conn.OnICECandidate(func(candidate string) {
		if o.currentGen() != gen {
			return
		}
		msg := protocol.IceCandidate{FromPeer: local, ToPeer: remote, Candidate: candidate}
		if err := o.Signal.Send(msg); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("peer", string(remote)).Msg("candidate dropped")
		}
	})
	conn.OnTrack(func(track *webrtc.TrackRemote) {
		o.onRemoteTrack(gen, remote, track)
	})
	conn.OnStateChange(func(state core.PeerState) {
		o.onPeerState(gen, remote, state)
	})

	if err := conn.Start(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	link := &peerLink{peer: remote, state: core.PeerStateNegotiating, conn: conn}

	o.mu.Lock()
	// Re-check: the session may have ended while we were dialing.
	if !o.inVoice || o.gen != gen {
		o.mu.Unlock()
		conn.Close()
		return nil, ErrChannelDown
	}
	o.peers[remote] = link
	o.mu.Unlock()
	return link, nil
}

// onRemoteTrack attaches a renderer for the peer's media.
func (o *Orchestrator) onRemoteTrack(gen uint64, remote domain.PeerID, track *webrtc.TrackRemote) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	link, ok := o.peers[remote]
	if !ok {
		o.mu.Unlock()
		return
	}
	renderer := o.Renderer.NewRenderer(remote)
	link.renderer = renderer
	o.mu.Unlock()

	renderer.Play(track)
	o.notifyPeerChange()
}

// onPeerState records the transition; a terminal state tears down that
// one peer only, the rest of the session is untouched.
func (o *Orchestrator) onPeerState(gen uint64, remote domain.PeerID, state core.PeerState) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	link, ok := o.peers[remote]
	if !ok {
		o.mu.Unlock()
		return
	}
	link.state = state
	o.mu.Unlock()

	log.Info().Str("module", "orch").Str("peer", string(remote)).Str("state", string(state)).Msg("peer state")
	if state.Terminal() {
		o.teardownPeer(remote)
	}
	o.notifyPeerChange()
}

// teardownPeer releases one peer's resources and forgets it.
func (o *Orchestrator) teardownPeer(remote domain.PeerID) {
	o.mu.Lock()
	link, ok := o.peers[remote]
	if ok {
		delete(o.peers, remote)
	}
	o.mu.Unlock()
	if !ok {
		return
	}
	if link.renderer != nil {
		link.renderer.Stop()
	}
	link.conn.Close()
	log.Info().Str("module", "orch").Str("peer", string(remote)).Msg("peer torn down")
}
