package domain

import "time"

// FetchSummary reports how one paginated walk over a resource kind ended
type FetchSummary struct {
	Kind           EntityKind `json:"kind"`
	ProcessedCount int        `json:"processedCount"`
	FailedCount    int        `json:"failedCount"`
	Pages          int        `json:"pages"`
	StoppedEarly   bool       `json:"stoppedEarly"`
	Error          string     `json:"error,omitempty"`
}

// Succeeded reports whether the walk reached the end of the listing
func (s FetchSummary) Succeeded() bool {
	return !s.StoppedEarly
}

// SyncReport is the outcome of a full sync or a scheduled poll for one tenant
type SyncReport struct {
	RunID      string         `json:"runId"`
	TenantID   string         `json:"tenantId"`
	ShopDomain string         `json:"shopDomain"`
	Source     Source         `json:"source"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Results    []FetchSummary `json:"results"`
}

// Complete reports whether every resource kind was fetched to the end
func (r *SyncReport) Complete() bool {
	for _, res := range r.Results {
		if !res.Succeeded() {
			return false
		}
	}
	return true
}

// Processed sums the records handed to the reconciler across all kinds
func (r *SyncReport) Processed() int {
	total := 0
	for _, res := range r.Results {
		total += res.ProcessedCount
	}
	return total
}
