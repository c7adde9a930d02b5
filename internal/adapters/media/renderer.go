package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
)

// PacketSink consumes raw RTP payloads for one remote peer. The device
// layer implements it (decode + play).
type PacketSink interface {
	WriteRTP(peer domain.PeerID, payload []byte) error
}

// RendererFactory implements core.RendererFactory, handing every
// renderer the same sink.
type RendererFactory struct {
	Sink PacketSink
}

func (f *RendererFactory) NewRenderer(peer domain.PeerID) core.MediaRenderer {
	return &trackRenderer{peer: peer, sink: f.Sink}
}

// trackRenderer drains one remote track into the sink until stopped.
// Stop only flips the flag; the read loop notices on the next packet
// and exits (cooperative cancellation, nothing is aborted mid-read).
type trackRenderer struct {
	peer domain.PeerID
	sink PacketSink

	mu      sync.Mutex
	stopped bool
}

func (r *trackRenderer) Play(track *webrtc.TrackRemote) {
	go func() {
		buf := make([]byte, 1500)
		for {
			n, _, err := track.Read(buf)
			if err != nil {
				log.Info().Err(err).Str("module", "media").Str("peer", string(r.peer)).Msg("remote track ended")
				return
			}
			r.mu.Lock()
			stopped := r.stopped
			r.mu.Unlock()
			if stopped {
				return
			}
			if r.sink == nil {
				continue
			}
			if err := r.sink.WriteRTP(r.peer, buf[:n]); err != nil {
				log.Warn().Err(err).Str("module", "media").Str("peer", string(r.peer)).Msg("sink write")
			}
		}
	}()
}

func (r *trackRenderer) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}
