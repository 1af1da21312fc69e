package domain

import "time"

// InstallState is the anti-forgery token issued when an OAuth install starts.
// It is bound to the shop it was issued for and may be consumed once.
type InstallState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the state can no longer be redeemed
func (s *InstallState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
