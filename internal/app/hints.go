package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/core"
	"github.com/roommate/roomlink/internal/domain"
)

// HintSync reacts to HouseHintUpdated broadcasts: fetch the opaque
// descriptor over REST and hand it to local storage. Updates for
// houses no longer tracked are dropped -- a locally deleted house must
// not be re-imported by a straggling broadcast.
type HintSync struct {
	registry *SubscriptionRegistry
	fetcher  core.HintFetcher
	importer core.HouseImporter

	// onHousesUpdated re-runs subscription sync, because an imported
	// hint may have added houses or members.
	onHousesUpdated func(ctx context.Context)
}

func NewHintSync(registry *SubscriptionRegistry, fetcher core.HintFetcher, importer core.HouseImporter) *HintSync {
	return &HintSync{registry: registry, fetcher: fetcher, importer: importer}
}

func (h *HintSync) OnHousesUpdated(fn func(ctx context.Context)) {
	h.onHousesUpdated = fn
}

// HandleHintUpdated processes one HouseHintUpdated broadcast.
func (h *HintSync) HandleHintUpdated(ctx context.Context, house domain.SigningPubkey) {
	if !h.registry.IsSubscribed(house) {
		return
	}
	hint, found, err := h.fetcher.FetchHint(ctx, house)
	if err != nil {
		log.Warn().Err(err).Str("module", "hints").Str("house", string(house)).Msg("fetch hint")
		return
	}
	if !found {
		return
	}
	if err := h.importer.ImportHint(ctx, hint); err != nil {
		log.Warn().Err(err).Str("module", "hints").Str("house", string(house)).Msg("import hint")
		return
	}
	log.Info().Str("module", "hints").Str("house", string(house)).Msg("house hint imported")
	if h.onHousesUpdated != nil {
		h.onHousesUpdated(ctx)
	}
}
