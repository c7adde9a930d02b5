package app

import (
	"context"
	"sync"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// fakeChannel implements core.SignalChannel in-process: sends are
// recorded, inbound messages are pushed with deliver, reconnects are
// simulated with open.
type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	sent      []protocol.Message
	handlers  map[string][]core.Handler
	onOpen    []func()
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{connected: true, handlers: make(map[string][]core.Handler)}
}

func (c *fakeChannel) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeChannel) Subscribe(msgType string, h core.Handler) {
	c.mu.Lock()
	c.handlers[msgType] = append(c.handlers[msgType], h)
	c.mu.Unlock()
}

func (c *fakeChannel) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = append(c.onOpen, fn)
	c.mu.Unlock()
}

// open simulates a successful (re)connect.
func (c *fakeChannel) open() {
	c.mu.Lock()
	c.connected = true
	hooks := append([]func(){}, c.onOpen...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// deliver pushes one inbound message through the dispatch path.
func (c *fakeChannel) deliver(m protocol.Message) {
	c.mu.Lock()
	handlers := append([]core.Handler{}, c.handlers[m.MessageType()]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(m)
	}
}

func (c *fakeChannel) sentOfType(msgType string) []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Message
	for _, m := range c.sent {
		if m.MessageType() == msgType {
			out = append(out, m)
		}
	}
	return out
}

type fakeDirectory struct {
	mu     sync.Mutex
	houses []domain.House
	err    error
}

func (d *fakeDirectory) ListHouses(ctx context.Context) ([]domain.House, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	out := make([]domain.House, len(d.houses))
	copy(out, d.houses)
	return out, nil
}

func (d *fakeDirectory) setHouses(houses []domain.House) {
	d.mu.Lock()
	d.houses = houses
	d.mu.Unlock()
}

type fakeIdentity struct {
	id domain.Identity
	ok bool
}

func (f *fakeIdentity) Identity() (domain.Identity, bool) { return f.id, f.ok }

type fakeProfileStore struct {
	profile domain.LocalProfile
}

func (f *fakeProfileStore) LocalProfile() domain.LocalProfile { return f.profile }

type fakeHintFetcher struct {
	mu      sync.Mutex
	hints   map[domain.SigningPubkey]domain.HouseHint
	err     error
	fetches int
}

func (f *fakeHintFetcher) FetchHint(ctx context.Context, house domain.SigningPubkey) (domain.HouseHint, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return domain.HouseHint{}, false, f.err
	}
	hint, ok := f.hints[house]
	return hint, ok, nil
}

type fakeImporter struct {
	mu       sync.Mutex
	imported []domain.HouseHint
	onImport func()
}

func (f *fakeImporter) ImportHint(ctx context.Context, hint domain.HouseHint) error {
	f.mu.Lock()
	f.imported = append(f.imported, hint)
	hook := f.onImport
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func twoHouses() []domain.House {
	return []domain.House{house("h1", "spk1", "u1"), house("h2", "spk2", "u2")}
}

func house(id, spk string, members ...string) domain.House {
	h := domain.House{ID: domain.HouseID(id), SigningPubkey: domain.SigningPubkey(spk)}
	for _, m := range members {
		h.Members = append(h.Members, domain.HouseMember{UserID: domain.UserID(m)})
	}
	return h
}
