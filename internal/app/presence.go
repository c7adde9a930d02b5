package app

import (
	"sync"

	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// PresenceSync merges gossiped presence into a per-house view of which
// members are online and where they are active. No revision counter:
// the channel is the ordering authority, the latest received wins.
type PresenceSync struct {
	mu     sync.RWMutex
	houses map[domain.SigningPubkey]map[domain.UserID]domain.PresenceRecord
}

func NewPresenceSync() *PresenceSync {
	return &PresenceSync{
		houses: make(map[domain.SigningPubkey]map[domain.UserID]domain.PresenceRecord),
	}
}

// ApplySnapshot fully replaces all records under the house: a user
// absent from the snapshot is gone, not stale.
func (p *PresenceSync) ApplySnapshot(house domain.SigningPubkey, users []protocol.PresenceUserStatus) {
	next := make(map[domain.UserID]domain.PresenceRecord, len(users))
	for _, u := range users {
		next[u.UserID] = domain.PresenceRecord{
			UserID:              u.UserID,
			Online:              true,
			ActiveSigningPubkey: u.ActiveSigningPubkey,
		}
	}
	p.mu.Lock()
	p.houses[house] = next
	p.mu.Unlock()
}

// ApplyUpdate replaces the single (house, user) record unconditionally.
func (p *PresenceSync) ApplyUpdate(house domain.SigningPubkey, user domain.UserID, online bool, active *domain.SigningPubkey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.houses[house]
	if !ok {
		m = make(map[domain.UserID]domain.PresenceRecord)
		p.houses[house] = m
	}
	m[user] = domain.PresenceRecord{UserID: user, Online: online, ActiveSigningPubkey: active}
}

// House returns a copy of the house's presence records.
func (p *PresenceSync) House(house domain.SigningPubkey) []domain.PresenceRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m := p.houses[house]
	out := make([]domain.PresenceRecord, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	return out
}

// Lookup returns one user's record under a house.
func (p *PresenceSync) Lookup(house domain.SigningPubkey, user domain.UserID) (domain.PresenceRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.houses[house][user]
	return rec, ok
}

// Reset drops all state. Called on account change; presence is never
// persisted, it is rebuilt from snapshots on reconnect.
func (p *PresenceSync) Reset() {
	p.mu.Lock()
	p.houses = make(map[domain.SigningPubkey]map[domain.UserID]domain.PresenceRecord)
	p.mu.Unlock()
}
