package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/domain"
)

// EventHandler receives each fetched batch whole, not event-by-event.
type EventHandler func(events []domain.HouseEvent)

// Poller runs one cursor-based polling loop per house. Cycles that
// would overlap a still-running one are skipped, not queued; ack
// failures never block cursor advancement.
type Poller struct {
	client   *Client
	user     domain.UserID
	interval time.Duration

	mu    sync.Mutex
	polls map[domain.SigningPubkey]*housePoll
}

type housePoll struct {
	cancel   context.CancelFunc
	handler  EventHandler
	cursor   string
	inFlight bool
	mu       sync.Mutex
}

func NewPoller(client *Client, user domain.UserID, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		user:     user,
		interval: interval,
		polls:    make(map[domain.SigningPubkey]*housePoll),
	}
}

// StartPolling begins polling a house. Idempotent: a second start for
// an already-polling house is a no-op.
func (p *Poller) StartPolling(ctx context.Context, house domain.SigningPubkey, handler EventHandler) {
	p.mu.Lock()
	if _, running := p.polls[house]; running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	hp := &housePoll{cancel: cancel, handler: handler}
	p.polls[house] = hp
	p.mu.Unlock()

	log.Info().Str("module", "poll").Str("house", string(house)).Msg("polling started")
	go p.run(ctx, house, hp)
}

// StopPolling stops one house's loop. Safe to call for a house that is
// not being polled.
func (p *Poller) StopPolling(house domain.SigningPubkey) {
	p.mu.Lock()
	hp, ok := p.polls[house]
	if ok {
		delete(p.polls, house)
	}
	p.mu.Unlock()
	if ok {
		hp.cancel()
		log.Info().Str("module", "poll").Str("house", string(house)).Msg("polling stopped")
	}
}

// StopAll stops every loop.
func (p *Poller) StopAll() {
	p.mu.Lock()
	polls := p.polls
	p.polls = make(map[domain.SigningPubkey]*housePoll)
	p.mu.Unlock()
	for _, hp := range polls {
		hp.cancel()
	}
}

// Polling reports whether a loop is active for the house.
func (p *Poller) Polling(house domain.SigningPubkey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.polls[house]
	return ok
}

func (p *Poller) run(ctx context.Context, house domain.SigningPubkey, hp *housePoll) {
	p.pollOnce(ctx, house, hp)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx, house, hp)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, house domain.SigningPubkey, hp *housePoll) {
	hp.mu.Lock()
	if hp.inFlight {
		hp.mu.Unlock()
		return
	}
	hp.inFlight = true
	cursor := hp.cursor
	hp.mu.Unlock()
	defer func() {
		hp.mu.Lock()
		hp.inFlight = false
		hp.mu.Unlock()
	}()

	events, err := p.client.FetchEvents(ctx, house, cursor)
	if err != nil {
		// Transient; the next cycle retries from the same cursor.
		log.Warn().Err(err).Str("module", "poll").Str("house", string(house)).Msg("fetch events")
		return
	}
	if len(events) == 0 {
		return
	}

	log.Info().Str("module", "poll").Str("house", string(house)).Int("count", len(events)).Msg("events received")
	if hp.handler != nil {
		hp.handler(events)
	}

	last := events[len(events)-1].EventID
	hp.mu.Lock()
	hp.cursor = last
	hp.mu.Unlock()

	if err := p.client.AckEvents(ctx, house, p.user, last); err != nil {
		log.Warn().Err(err).Str("module", "poll").Str("house", string(house)).Msg("ack events")
	}
}
