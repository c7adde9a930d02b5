package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// Announcer pushes the local user's presence and profile into the
// gossip stream. Announcements are re-sent wholesale after connects and
// subscription deltas instead of being queued; see SignalSender.
type Announcer struct {
	sender   core.SignalSender
	houses   core.HouseDirectory
	identity core.IdentityProvider
	profile  core.ProfileStore

	mu          sync.RWMutex
	activeHouse *domain.SigningPubkey
}

func NewAnnouncer(sender core.SignalSender, houses core.HouseDirectory, identity core.IdentityProvider, profile core.ProfileStore) *Announcer {
	return &Announcer{sender: sender, houses: houses, identity: identity, profile: profile}
}

// AnnounceAll sends presence hello, profile announce and per-house
// profile hello. Send failures are dropped, not retried; the next
// reconnect replays everything anyway.
func (a *Announcer) AnnounceAll(ctx context.Context) {
	a.SendPresenceHello(ctx)
	a.SendProfileAnnounce(ctx)
	a.SendProfileHello(ctx)
}

// SetActiveHouse records which house is open locally and notifies the
// server. A nil key means the user is back in the neighborhood.
func (a *Announcer) SetActiveHouse(house *domain.SigningPubkey) {
	a.mu.Lock()
	a.activeHouse = house
	a.mu.Unlock()

	id, ok := a.identity.Identity()
	if !ok {
		return
	}
	msg := protocol.PresenceActive{
		UserID:              id.UserID,
		ActiveSigningPubkey: house,
	}
	if err := a.sender.Send(msg); err != nil {
		log.Debug().Err(err).Str("module", "announce").Msg("presence active dropped")
	}
}

// ActiveHouse returns the locally open house, if any.
func (a *Announcer) ActiveHouse() *domain.SigningPubkey {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeHouse
}

func (a *Announcer) SendPresenceHello(ctx context.Context) {
	id, ok := a.identity.Identity()
	if !ok {
		return
	}
	houses, err := a.houses.ListHouses(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "announce").Msg("presence hello: list houses")
		return
	}
	keys := make([]domain.SigningPubkey, 0, len(houses))
	for _, h := range houses {
		keys = append(keys, h.SigningPubkey)
	}
	msg := protocol.PresenceHello{
		UserID:              id.UserID,
		SigningPubkeys:      keys,
		ActiveSigningPubkey: a.ActiveHouse(),
	}
	if err := a.sender.Send(msg); err != nil {
		log.Debug().Err(err).Str("module", "announce").Msg("presence hello dropped")
	}
}

func (a *Announcer) SendProfileAnnounce(ctx context.Context) {
	id, ok := a.identity.Identity()
	if !ok {
		return
	}
	houses, err := a.houses.ListHouses(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "announce").Msg("profile announce: list houses")
		return
	}
	keys := make([]domain.SigningPubkey, 0, len(houses))
	for _, h := range houses {
		keys = append(keys, h.SigningPubkey)
	}

	p := a.profile.LocalProfile()
	display := p.DisplayName
	if display == "" {
		display = id.DisplayName
	}
	msg := protocol.ProfileAnnounce{
		UserID:         id.UserID,
		DisplayName:    display,
		ShowRealName:   p.ShowRealName,
		Rev:            p.UpdatedAt,
		SigningPubkeys: keys,
	}
	// The real name travels only when the user opted in.
	if p.ShowRealName && p.RealName != "" {
		msg.RealName = &p.RealName
	}
	if err := a.sender.Send(msg); err != nil {
		log.Debug().Err(err).Str("module", "announce").Msg("profile announce dropped")
	}
}

// SendProfileHello asks the server what it knows about each house's
// members. House member lists are opaque to the server, so the client
// names the user ids it cares about.
func (a *Announcer) SendProfileHello(ctx context.Context) {
	houses, err := a.houses.ListHouses(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "announce").Msg("profile hello: list houses")
		return
	}
	for _, h := range houses {
		seen := make(map[domain.UserID]struct{}, len(h.Members))
		ids := make([]domain.UserID, 0, len(h.Members))
		for _, m := range h.Members {
			if m.UserID == "" {
				continue
			}
			if _, dup := seen[m.UserID]; dup {
				continue
			}
			seen[m.UserID] = struct{}{}
			ids = append(ids, m.UserID)
		}
		if len(ids) == 0 {
			continue
		}
		msg := protocol.ProfileHello{SigningPubkey: h.SigningPubkey, UserIDs: ids}
		if err := a.sender.Send(msg); err != nil {
			log.Debug().Err(err).Str("module", "announce").Msg("profile hello dropped")
		}
	}
}
