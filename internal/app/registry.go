package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// SubscriptionRegistry tracks which houses are registered on the
// signaling channel. Registration is delta-only and one-way: adding a
// house sends one Register, removing one never notifies the server --
// the key just leaves the local set so straggling messages for it are
// dropped on arrival.
type SubscriptionRegistry struct {
	mu         sync.RWMutex
	subscribed map[domain.SigningPubkey]struct{}

	sender  core.SignalSender
	houses  core.HouseDirectory
	account string

	// onSubscribed fires after any positive delta: the visible peer set
	// for presence/profile gossip may have changed.
	onSubscribed func(ctx context.Context)
}

func NewSubscriptionRegistry(sender core.SignalSender, houses core.HouseDirectory, account string) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		subscribed: make(map[domain.SigningPubkey]struct{}),
		sender:     sender,
		houses:     houses,
		account:    account,
	}
}

// OnSubscribed registers the re-announce hook invoked after deltas.
func (r *SubscriptionRegistry) OnSubscribed(fn func(ctx context.Context)) {
	r.onSubscribed = fn
}

// SyncSubscriptions registers every house not yet in the tracked set
// and reports how many registrations went out. Idempotent: a second
// call with the same house set sends nothing.
func (r *SubscriptionRegistry) SyncSubscriptions(ctx context.Context) (int, error) {
	houses, err := r.houses.ListHouses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list houses: %w", err)
	}

	added := 0
	for _, h := range houses {
		r.mu.Lock()
		_, seen := r.subscribed[h.SigningPubkey]
		if !seen {
			r.subscribed[h.SigningPubkey] = struct{}{}
		}
		r.mu.Unlock()
		if seen {
			continue
		}

		msg := protocol.Register{
			HouseID:       h.ID,
			PeerID:        SyncPeerID(r.account, h.ID),
			SigningPubkey: h.SigningPubkey,
		}
		if err := r.sender.Send(msg); err != nil {
			// Untrack so the next sync retries the registration; a key
			// the server never heard about must not look subscribed.
			log.Warn().Err(err).Str("module", "registry").Str("house", string(h.ID)).Msg("register send dropped")
			r.mu.Lock()
			delete(r.subscribed, h.SigningPubkey)
			r.mu.Unlock()
			continue
		}
		added++
	}

	if added > 0 && r.onSubscribed != nil {
		r.onSubscribed(ctx)
	}
	return added, nil
}

// Drop removes a locally deleted house from the tracked set so later
// server messages for it are ignored. No unsubscribe is sent.
func (r *SubscriptionRegistry) Drop(house domain.SigningPubkey) {
	r.mu.Lock()
	delete(r.subscribed, house)
	r.mu.Unlock()
}

// IsSubscribed reports whether inbound messages for the house should
// still be processed.
func (r *SubscriptionRegistry) IsSubscribed(house domain.SigningPubkey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribed[house]
	return ok
}

// Subscribed returns a copy of the tracked key set.
func (r *SubscriptionRegistry) Subscribed() []domain.SigningPubkey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SigningPubkey, 0, len(r.subscribed))
	for k := range r.subscribed {
		out = append(out, k)
	}
	return out
}

// Reset clears the tracked set. Called after every reconnect: the
// server keeps no session stickiness, so the whole set is replayed.
func (r *SubscriptionRegistry) Reset() {
	r.mu.Lock()
	r.subscribed = make(map[domain.SigningPubkey]struct{})
	r.mu.Unlock()
}

// SyncPeerID is the synthetic peer id used for house subscriptions, as
// opposed to voice peer ids which are minted per session.
func SyncPeerID(account string, house domain.HouseID) domain.PeerID {
	return domain.PeerID(fmt.Sprintf("house-sync:%s:%s", account, house))
}
