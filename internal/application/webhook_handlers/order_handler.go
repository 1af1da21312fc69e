package webhook_handlers

import (
	"context"
	"strings"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	reconciler EntityReconciler
	logger     zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(reconciler EntityReconciler, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true for every orders/* topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return strings.HasPrefix(topic, "orders/")
}

// Handle reconciles the order carried by the webhook
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	return reconcileEvent(ctx, h.reconciler, domain.KindOrder, event, h.logger)
}
