package core

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/roommate/roomlink/internal/domain"
)

// PeerState is the negotiation state of one peer's transport session.
// Failed and Closed are terminal; a later session with the same peer id
// gets a fresh connection object.
type PeerState string

const (
	PeerStateNone        PeerState = "none"
	PeerStateNegotiating PeerState = "negotiating"
	PeerStateConnected   PeerState = "connected"
	PeerStateFailed      PeerState = "failed"
	PeerStateClosed      PeerState = "closed"
)

// Terminal reports whether the state can never progress again.
func (s PeerState) Terminal() bool {
	return s == PeerStateFailed || s == PeerStateClosed
}

// MediaSource is the external audio capture layer: an opaque source of
// the locally captured stream plus a transmission gate. Muting gates
// whether the attached track actually transmits; it never touches the
// transport session.
type MediaSource interface {
	// TransmissionTrack returns the current local capture track, or an
	// error when no capture is available. Voice join fails fast on it.
	TransmissionTrack() (webrtc.TrackLocal, error)
	SetTransmissionMuted(muted bool)
	TransmissionMuted() bool
}

// MediaRenderer plays one remote peer's media. Owned per peer by the
// orchestrator and stopped on that peer's teardown.
type MediaRenderer interface {
	Play(track *webrtc.TrackRemote)
	Stop()
}

// RendererFactory creates a renderer for one remote peer.
type RendererFactory interface {
	NewRenderer(peer domain.PeerID) MediaRenderer
}

// MediaConnection is one point-to-point transport session. SDP and
// candidates travel as opaque strings; NAT traversal is the
// implementation's business.
type MediaConnection interface {
	// Start binds internal callbacks and ties the session lifetime to ctx.
	Start(ctx context.Context) error
	Close()

	CreateAndSetOffer() (sdp string, err error)
	ApplyAnswer(sdp string) error
	ApplyOfferAndCreateAnswer(sdp string) (answer string, err error)
	AddICECandidate(candidate string) error

	AddLocalTrack(track webrtc.TrackLocal) error

	// OnICECandidate sets a callback for newly gathered local candidates.
	OnICECandidate(func(candidate string))
	// OnTrack sets a callback for the first remote media track.
	OnTrack(func(track *webrtc.TrackRemote))
	// OnStateChange reports negotiation state transitions, including the
	// terminal ones that trigger per-peer cleanup.
	OnStateChange(func(state PeerState))
}

// MediaDialer creates transport sessions, one per remote peer.
type MediaDialer interface {
	NewConnection(peer domain.PeerID) (MediaConnection, error)
}
