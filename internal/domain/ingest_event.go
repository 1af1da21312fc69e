package domain

import "time"

// IngestEvent is published after a record has been reconciled
type IngestEvent struct {
	TenantID   string     `json:"tenantId"`
	Kind       EntityKind `json:"kind"`
	ExternalID string     `json:"externalId"`
	Source     Source     `json:"source"`
	At         time.Time  `json:"at"`
}
