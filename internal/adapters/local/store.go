// Package local is a file-backed stand-in for the platform's house,
// identity and profile stores. The real application keeps these in
// encrypted storage; this adapter gives the engine and the demo binary
// the same narrow interfaces over a houses JSON file.
package local

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	houses   []domain.House
	identity domain.Identity
	profile  domain.LocalProfile
	hints    map[domain.SigningPubkey]domain.HouseHint
}

func NewStore(identity domain.Identity, profile domain.LocalProfile) *Store {
	return &Store{
		identity: identity,
		profile:  profile,
		hints:    make(map[domain.SigningPubkey]domain.HouseHint),
	}
}

// LoadHouses reads the house list from a JSON file, replacing the
// current set.
func (s *Store) LoadHouses(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var houses []domain.House
	if err := json.Unmarshal(data, &houses); err != nil {
		return err
	}
	s.mu.Lock()
	s.houses = houses
	s.mu.Unlock()
	log.Info().Str("module", "local").Int("houses", len(houses)).Str("path", path).Msg("houses loaded")
	return nil
}

func (s *Store) SetHouses(houses []domain.House) {
	s.mu.Lock()
	s.houses = houses
	s.mu.Unlock()
}

func (s *Store) ListHouses(ctx context.Context) ([]domain.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.House, len(s.houses))
	copy(out, s.houses)
	return out, nil
}

func (s *Store) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.identity.UserID != ""
}

func (s *Store) LocalProfile() domain.LocalProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// UpdateProfile replaces the local profile and bumps its revision.
func (s *Store) UpdateProfile(p domain.LocalProfile) {
	if p.UpdatedAt == 0 {
		p.UpdatedAt = time.Now().UnixMilli()
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// ImportHint caches the fetched descriptor. Decryption and membership
// reconciliation belong to the platform layer above.
func (s *Store) ImportHint(ctx context.Context, hint domain.HouseHint) error {
	s.mu.Lock()
	s.hints[hint.SigningPubkey] = hint
	s.mu.Unlock()
	return nil
}

// Hint returns the last imported descriptor for a house.
func (s *Store) Hint(house domain.SigningPubkey) (domain.HouseHint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hints[house]
	return h, ok
}
