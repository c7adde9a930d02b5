// Package domain contains entity without logic, just meta-data
package domain

type (
	HouseID string

	// SigningPubkey is the stable public key identifying a house across
	// devices and servers. Opaque to this engine; rendered as hex/base58
	// by whoever minted it.
	SigningPubkey string
)

// House is the locally known view of a house, as returned by the local
// house store. Members is whatever the store has decrypted; the engine
// only reads user ids out of it.
type House struct {
	ID            HouseID       `json:"id"`
	SigningPubkey SigningPubkey `json:"signing_pubkey"`
	Members       []HouseMember `json:"members"`
}

type HouseMember struct {
	UserID UserID `json:"user_id"`
}
