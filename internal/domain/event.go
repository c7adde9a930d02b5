package domain

// HouseEvent is one entry from the server's per-house event queue. The
// payload is encrypted upstream and signed by a member key; the engine
// moves it around without looking inside.
type HouseEvent struct {
	EventID          string        `json:"event_id"`
	SigningPubkey    SigningPubkey `json:"signing_pubkey"`
	EventType        string        `json:"event_type"`
	EncryptedPayload string        `json:"encrypted_payload"`
	Signature        string        `json:"signature"`
	Timestamp        string        `json:"timestamp"`
}

// HouseHint is the opaque signed house descriptor cached on the server.
// Not authoritative; any member may overwrite it.
type HouseHint struct {
	SigningPubkey  SigningPubkey `json:"signing_pubkey"`
	EncryptedState string        `json:"encrypted_state"`
	Signature      string        `json:"signature"`
	LastUpdated    string        `json:"last_updated"`
}
