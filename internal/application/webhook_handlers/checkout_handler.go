package webhook_handlers

import (
	"context"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkouts/create. Later checkout states reach us through the poll.
type CheckoutHandler struct {
	reconciler EntityReconciler
	logger     zerolog.Logger
}

// NewCheckoutHandler creates a new checkout webhook handler
func NewCheckoutHandler(reconciler EntityReconciler, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CheckoutHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCheckoutsCreate
}

// Handle reconciles the checkout as an abandoned checkout
func (h *CheckoutHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Debug().Str("shop", event.Shop).Msg("Processing checkout webhook event")
	return reconcileEvent(ctx, h.reconciler, domain.KindAbandonedCheckout, event, h.logger)
}
