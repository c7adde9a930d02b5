package domain

// PresenceRecord is one user's presence as seen through one house
// subscription. No revision counter: the channel delivers in order and
// the latest received update wins.
type PresenceRecord struct {
	UserID              UserID         `json:"user_id"`
	Online              bool           `json:"online"`
	ActiveSigningPubkey *SigningPubkey `json:"active_signing_pubkey,omitempty"`
}

// SelfPresence is the locally derived status of the current user.
type SelfPresence string

const (
	SelfOffline      SelfPresence = "offline"
	SelfNeighborhood SelfPresence = "neighborhood"
	SelfInHouse      SelfPresence = "in_house"
	SelfInCall       SelfPresence = "in_call"
)

// DeriveSelfPresence combines the three independent signals by strict
// precedence: disconnected beats in-voice beats in-house beats
// neighborhood. The ordering is observable UI behavior, keep it exact.
func DeriveSelfPresence(connected bool, activeHouse *SigningPubkey, inVoice bool) SelfPresence {
	if !connected {
		return SelfOffline
	}
	if inVoice {
		return SelfInCall
	}
	if activeHouse != nil {
		return SelfInHouse
	}
	return SelfNeighborhood
}
