package core

import (
	"context"

	"github.com/roommate/roomlink/internal/domain"
	"github.com/roommate/roomlink/internal/protocol"
)

// Handler consumes one inbound signaling message. Handlers run
// synchronously on the channel's read loop, in arrival order.
type Handler func(protocol.Message)

// SignalSender is the outbound half of the signaling channel. Send is
// fire-and-forget: a send while disconnected is dropped with
// ErrNotConnected, never queued. Callers that need delivery re-derive
// and re-send their state after reconnect.
type SignalSender interface {
	Send(protocol.Message) error
	Connected() bool
}

// SignalChannel is the full duplex channel: outbound sends, inbound
// dispatch by message type, and connect hooks for replaying state
// after every (re)connect.
type SignalChannel interface {
	SignalSender
	Subscribe(msgType string, h Handler)
	OnOpen(fn func())
}

// HouseDirectory is the local house store. The engine never mutates
// houses; it only reads the current set.
type HouseDirectory interface {
	ListHouses(ctx context.Context) ([]domain.House, error)
}

// IdentityProvider exposes the active account identity, if any.
type IdentityProvider interface {
	Identity() (domain.Identity, bool)
}

// ProfileStore exposes the local user's own profile for announcing.
type ProfileStore interface {
	LocalProfile() domain.LocalProfile
}

// HouseImporter applies a fetched opaque house hint to local storage.
// Verification and decryption happen behind this interface.
type HouseImporter interface {
	ImportHint(ctx context.Context, hint domain.HouseHint) error
}

// HintFetcher retrieves the opaque signed house descriptor over the
// polling REST surface. A missing hint is (zero, false, nil).
type HintFetcher interface {
	FetchHint(ctx context.Context, house domain.SigningPubkey) (domain.HouseHint, bool, error)
}
