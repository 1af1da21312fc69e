package application

import (
	"context"
	"fmt"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes the topics it claims
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes a verified event to the first registered handler that claims its topic
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		logger: logger,
	}
}

// RegisterHandler adds a handler. Handlers are consulted in registration order.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch runs the matching handler. An unclaimed topic is logged and ignored.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			d.logger.Error().
				Err(err).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Webhook handler failed")
			return true, fmt.Errorf("failed to handle %s: %w", event.Topic, err)
		}
		return true, nil
	}

	d.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Msg("No handler for webhook topic, ignoring")
	return false, nil
}
