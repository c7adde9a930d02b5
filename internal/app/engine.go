package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/app/orch"
	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// Engine wires the signaling channel to the gossip and negotiation
// subsystems. It owns nothing transport-level itself; it registers
// handlers and replays state on every reconnect.
type Engine struct {
	Channel   core.SignalChannel
	Registry  *SubscriptionRegistry
	Announcer *Announcer
	Presence  *PresenceSync
	Profiles  *ProfileSync
	Hints     *HintSync
	Voice     *orch.Orchestrator
}

func NewEngine(
	channel core.SignalChannel,
	registry *SubscriptionRegistry,
	announcer *Announcer,
	presence *PresenceSync,
	profiles *ProfileSync,
	hints *HintSync,
	voice *orch.Orchestrator,
) *Engine {
	e := &Engine{
		Channel:   channel,
		Registry:  registry,
		Announcer: announcer,
		Presence:  presence,
		Profiles:  profiles,
		Hints:     hints,
		Voice:     voice,
	}
	e.bind()
	return e
}

func (e *Engine) bind() {
	// Subscriptions never survive a reconnect: clear and replay the
	// whole set. Presence and profile are announced after every open,
	// house set or not; the delta hook below has already announced
	// when the replay registered anything.
	e.Channel.OnOpen(func() {
		ctx := context.Background()
		e.Registry.Reset()
		added, err := e.Registry.SyncSubscriptions(ctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "engine").Msg("subscription replay")
		}
		if added == 0 {
			e.Announcer.AnnounceAll(ctx)
		}
	})

	e.Registry.OnSubscribed(func(ctx context.Context) {
		e.Announcer.AnnounceAll(ctx)
	})

	if e.Hints != nil {
		e.Hints.OnHousesUpdated(func(ctx context.Context) {
			if _, err := e.Registry.SyncSubscriptions(ctx); err != nil {
				log.Warn().Err(err).Str("module", "engine").Msg("subscription sync after hint import")
			}
		})
		e.Channel.Subscribe(protocol.TypeHouseHintUpdated, func(m protocol.Message) {
			if msg, ok := m.(*protocol.HouseHintUpdated); ok {
				e.Hints.HandleHintUpdated(context.Background(), msg.SigningPubkey)
			}
		})
	}

	e.Channel.Subscribe(protocol.TypePresenceSnapshot, func(m protocol.Message) {
		msg, ok := m.(*protocol.PresenceSnapshot)
		if !ok || !e.Registry.IsSubscribed(msg.SigningPubkey) {
			return
		}
		e.Presence.ApplySnapshot(msg.SigningPubkey, msg.Users)
	})

	e.Channel.Subscribe(protocol.TypePresenceUpdate, func(m protocol.Message) {
		msg, ok := m.(*protocol.PresenceUpdate)
		if !ok || !e.Registry.IsSubscribed(msg.SigningPubkey) {
			return
		}
		e.Presence.ApplyUpdate(msg.SigningPubkey, msg.UserID, msg.Online, msg.ActiveSigningPubkey)
	})

	e.Channel.Subscribe(protocol.TypeProfileUpdate, func(m protocol.Message) {
		if msg, ok := m.(*protocol.ProfileUpdate); ok {
			e.Profiles.ApplyUpdate(recordFromWire(msg.UserID, msg.DisplayName, msg.RealName, msg.ShowRealName, msg.Rev))
		}
	})

	e.Channel.Subscribe(protocol.TypeProfileSnapshot, func(m protocol.Message) {
		if msg, ok := m.(*protocol.ProfileSnapshot); ok {
			e.Profiles.ApplySnapshot(msg.Profiles)
		}
	})

	e.Channel.Subscribe(protocol.TypeError, func(m protocol.Message) {
		if msg, ok := m.(*protocol.ServerError); ok {
			log.Warn().Str("module", "engine").Str("message", msg.Message).Msg("server error")
		}
	})
}

// SelfPresence derives the local user's displayed status from channel
// connectivity, the open house and the voice session.
func (e *Engine) SelfPresence() domain.SelfPresence {
	inVoice := e.Voice != nil && e.Voice.InVoice()
	return domain.DeriveSelfPresence(e.Channel.Connected(), e.Announcer.ActiveHouse(), inVoice)
}

// SetActiveHouse records the locally open house and pushes the change
// into the gossip stream.
func (e *Engine) SetActiveHouse(house *domain.SigningPubkey) {
	e.Announcer.SetActiveHouse(house)
}

// HouseRemoved drops a locally deleted house so straggling server
// messages for it are ignored from now on.
func (e *Engine) HouseRemoved(house domain.SigningPubkey) {
	e.Registry.Drop(house)
}

// HousesUpdated registers any newly added houses (join/import) without
// reconnecting.
func (e *Engine) HousesUpdated(ctx context.Context) error {
	_, err := e.Registry.SyncSubscriptions(ctx)
	return err
}

// ResetSession clears all session-scoped state on account change.
// Presence and profiles are never persisted.
func (e *Engine) ResetSession() {
	if e.Voice != nil {
		e.Voice.LeaveVoice()
	}
	e.Registry.Reset()
	e.Presence.Reset()
	e.Profiles.Reset()
}
