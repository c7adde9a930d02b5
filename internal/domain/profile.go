package domain

// ProfileRecord is a remote user's display profile, session-global (not
// per-house). Rev is a wall-clock-derived revision from the originating
// device: monotonic per device, not globally ordered. Last writer wins
// by strictly greater rev; equal revs are stale.
type ProfileRecord struct {
	UserID        UserID  `json:"user_id"`
	DisplayName   string  `json:"display_name"`
	SecondaryName *string `json:"secondary_name,omitempty"`
	ShowSecondary bool    `json:"show_secondary"`
	Rev           int64   `json:"rev"`
}
