// Package media provides pion-backed defaults for the capture and
// playback interfaces. The actual audio device layer lives outside
// this engine; it pushes encoded samples in and consumes RTP out.
package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// CaptureSource implements core.MediaSource over a static sample
// track. The device layer feeds it via WriteSample; the mute gate
// drops samples without touching the transport session, so "connected"
// stays decoupled from "transmitting".
type CaptureSource struct {
	mu    sync.RWMutex
	track *webrtc.TrackLocalStaticSample
	muted bool
}

func NewCaptureSource() (*CaptureSource, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "roomlink-mic",
	)
	if err != nil {
		return nil, err
	}
	return &CaptureSource{track: track}, nil
}

func (s *CaptureSource) TransmissionTrack() (webrtc.TrackLocal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.track, nil
}

func (s *CaptureSource) SetTransmissionMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
	log.Info().Str("module", "media").Bool("muted", muted).Msg("transmission gate")
}

func (s *CaptureSource) TransmissionMuted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// WriteSample forwards one captured sample unless the gate is closed.
func (s *CaptureSource) WriteSample(sample media.Sample) error {
	s.mu.RLock()
	muted := s.muted
	track := s.track
	s.mu.RUnlock()
	if muted {
		return nil
	}
	return track.WriteSample(sample)
}
