package domain

import "github.com/google/uuid"

type (
	UserID string

	// PeerID identifies one endpoint on the signaling server. A user may
	// hold several at once (one per house subscription, one per voice
	// session).
	PeerID string
)

// NewVoicePeerID mints a fresh peer id for one voice session. Voice
// ids are never reused across sessions; the server treats each as a
// distinct endpoint.
func NewVoicePeerID() PeerID {
	return PeerID("voice-" + uuid.NewString())
}

// Identity is the locally stored account identity, read-only here.
type Identity struct {
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// LocalProfile is the user's own editable profile as the local store
// keeps it. UpdatedAt (epoch millis) becomes the announce revision.
type LocalProfile struct {
	DisplayName  string `json:"display_name"`
	RealName     string `json:"real_name"`
	ShowRealName bool   `json:"show_real_name"`
	UpdatedAt    int64  `json:"updated_at"`
}
