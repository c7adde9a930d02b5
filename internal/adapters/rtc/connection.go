// Package rtc backs core.MediaConnection with pion. SDP and candidates
// cross the package boundary as strings; candidates are the JSON form
// of webrtc.ICECandidateInit, matching what travels on the wire.
package rtc

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
)

type Connection struct {
	pc   *webrtc.PeerConnection
	peer domain.PeerID

	onICE   func(candidate string)
	onTrack func(track *webrtc.TrackRemote)
	onState func(state core.PeerState)
}

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Dialer creates one Connection per remote peer, all sharing a config.
type Dialer struct {
	Config webrtc.Configuration
}

func NewDialer(cfg webrtc.Configuration) *Dialer {
	return &Dialer{Config: cfg}
}

func (d *Dialer) NewConnection(peer domain.PeerID) (core.MediaConnection, error) {
	pc, err := webrtc.NewPeerConnection(d.Config)
	if err != nil {
		return nil, err
	}
	return &Connection{pc: pc, peer: peer}, nil
}

func (c *Connection) Start(ctx context.Context) error {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("peer", string(c.peer)).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer", string(c.peer)).Str("peer_connection_state", s.String()).Msg("peer state")
		if c.onState == nil {
			return
		}
		switch s {
		case webrtc.PeerConnectionStateConnected:
			c.onState(core.PeerStateConnected)
		case webrtc.PeerConnectionStateFailed:
			c.onState(core.PeerStateFailed)
		case webrtc.PeerConnectionStateClosed:
			c.onState(core.PeerStateClosed)
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil || c.onICE == nil {
			return
		}
		data, err := json.Marshal(cand.ToJSON())
		if err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("peer", string(c.peer)).Msg("marshal candidate")
			return
		}
		c.onICE(string(data))
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("peer", string(c.peer)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Msg("remote track")
		if c.onTrack != nil {
			c.onTrack(track)
		}
	})

	return nil
}

func (c *Connection) CreateAndSetOffer() (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	<-gatherComplete
	return c.pc.LocalDescription().SDP, nil
}

func (c *Connection) ApplyAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (c *Connection) ApplyOfferAndCreateAnswer(sdp string) (string, error) {
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return "", err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	<-gatherComplete
	return c.pc.LocalDescription().SDP, nil
}

func (c *Connection) AddICECandidate(candidate string) error {
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(candidate), &ci); err != nil {
		// Some peers relay the bare candidate line instead of the JSON
		// form; accept both.
		ci = webrtc.ICECandidateInit{Candidate: candidate}
	}
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) AddLocalTrack(track webrtc.TrackLocal) error {
	_, err := c.pc.AddTrack(track)
	return err
}

func (c *Connection) Close() {
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("peer", string(c.peer)).Msg("close error")
		}
	}
}

func (c *Connection) OnICECandidate(fn func(candidate string)) { c.onICE = fn }

func (c *Connection) OnTrack(fn func(track *webrtc.TrackRemote)) { c.onTrack = fn }

func (c *Connection) OnStateChange(fn func(state core.PeerState)) { c.onState = fn }
