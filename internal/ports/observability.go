package ports

import (
	"time"

	"shopify-ingestion-service/internal/domain"
)

// IngestMetrics receives counters from the pipeline
type IngestMetrics interface {
	WebhookReceived(topic string, outcome string)
	RecordReconciled(kind domain.EntityKind, source domain.Source, outcome string)
	PageFetched(kind domain.EntityKind, outcome string)
	SchedulerRun(outcome string)
	SyncDuration(kind domain.EntityKind, d time.Duration)
}

// EventPublisher fans reconciled records out to live subscribers
type EventPublisher interface {
	Publish(event *domain.IngestEvent)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) WebhookReceived(string, string)                            {}
func (NopMetrics) RecordReconciled(domain.EntityKind, domain.Source, string) {}
func (NopMetrics) PageFetched(domain.EntityKind, string)                     {}
func (NopMetrics) SchedulerRun(string)                                       {}
func (NopMetrics) SyncDuration(domain.EntityKind, time.Duration)             {}
