package pubsub

import (
	"context"
	"fmt"
	"sync"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// IngestEventChannel represents a subscription channel
type IngestEventChannel struct {
	ID     string
	Filter *IngestEventFilter
	Events chan *domain.IngestEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// IngestEventFilter filters reconciled record events
type IngestEventFilter struct {
	TenantID string              // Filter by tenant
	Kinds    []domain.EntityKind // Filter by entity kind
}

// IngestPubSub fans reconciled records out to live subscribers.
// Delivery is best effort: a slow subscriber drops events rather than stalling ingestion.
type IngestPubSub struct {
	mu       sync.RWMutex
	channels map[string]*IngestEventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
	buffer   int
}

var _ ports.EventPublisher = (*IngestPubSub)(nil)

// NewIngestPubSub creates a new ingest event pub/sub system
func NewIngestPubSub(logger zerolog.Logger) *IngestPubSub {
	return &IngestPubSub{
		channels: make(map[string]*IngestEventChannel),
		logger:   logger,
		buffer:   64,
	}
}

// Subscribe creates a new subscription channel that is removed when ctx ends
func (ps *IngestPubSub) Subscribe(ctx context.Context, filter *IngestEventFilter) *IngestEventChannel {
	ps.idMu.Lock()
	id := ps.generateID()
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &IngestEventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.IngestEvent, ps.buffer),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Ingest subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *IngestPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Ingest subscription removed")
}

// Publish broadcasts an event to all matching subscribers without blocking
func (ps *IngestPubSub) Publish(event *domain.IngestEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			publishedCount++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("tenantId", event.TenantID).
			Str("kind", string(event.Kind)).
			Int("subscribers", publishedCount).
			Msg("Published ingest event to subscribers")
	}
}

func matchesFilter(event *domain.IngestEvent, filter *IngestEventFilter) bool {
	if filter == nil {
		return true
	}
	if filter.TenantID != "" && event.TenantID != filter.TenantID {
		return false
	}
	if len(filter.Kinds) == 0 {
		return true
	}
	for _, kind := range filter.Kinds {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

func (ps *IngestPubSub) generateID() string {
	ps.nextID++
	return fmt.Sprintf("channel-%d", ps.nextID)
}

// Subscribers returns the number of open subscriptions
func (ps *IngestPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
