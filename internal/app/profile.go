package app

import (
	"sync"

	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// ProfileSync keeps remote display profiles, session-global, merged
// last-writer-wins by revision. Stale updates (rev <= stored) are
// dropped silently; they are steady-state noise in a gossip system,
// not errors.
type ProfileSync struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]domain.ProfileRecord
}

func NewProfileSync() *ProfileSync {
	return &ProfileSync{profiles: make(map[domain.UserID]domain.ProfileRecord)}
}

// ApplyUpdate stores the record if it is new or strictly newer.
// Returns whether it was applied, which only tests and logging care
// about.
func (p *ProfileSync) ApplyUpdate(rec domain.ProfileRecord) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.profiles[rec.UserID]
	if ok && rec.Rev <= existing.Rev {
		return false
	}
	if !rec.ShowSecondary {
		rec.SecondaryName = nil
	}
	p.profiles[rec.UserID] = rec
	return true
}

// ApplySnapshot applies each element independently under the same LWW
// rule; it is not an atomic replacement.
func (p *ProfileSync) ApplySnapshot(records []protocol.ProfileSnapshotRecord) {
	for _, r := range records {
		p.ApplyUpdate(recordFromWire(r.UserID, r.DisplayName, r.RealName, r.ShowRealName, r.Rev))
	}
}

// Get returns the stored profile for a user.
func (p *ProfileSync) Get(user domain.UserID) (domain.ProfileRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.profiles[user]
	return rec, ok
}

// All returns a copy of every stored profile.
func (p *ProfileSync) All() []domain.ProfileRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.ProfileRecord, 0, len(p.profiles))
	for _, rec := range p.profiles {
		out = append(out, rec)
	}
	return out
}

// Reset drops all state on account change.
func (p *ProfileSync) Reset() {
	p.mu.Lock()
	p.profiles = make(map[domain.UserID]domain.ProfileRecord)
	p.mu.Unlock()
}

// recordFromWire maps the wire shape (real_name/show_real_name) onto
// the stored one: the secondary name is retained only when shown.
func recordFromWire(user domain.UserID, display string, realName *string, show bool, rev int64) domain.ProfileRecord {
	rec := domain.ProfileRecord{
		UserID:        user,
		DisplayName:   display,
		ShowSecondary: show,
		Rev:           rev,
	}
	if show {
		rec.SecondaryName = realName
	}
	return rec
}
