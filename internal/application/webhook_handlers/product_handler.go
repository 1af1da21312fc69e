package webhook_handlers

import (
	"context"
	"strings"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	reconciler EntityReconciler
	logger     zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(reconciler EntityReconciler, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true for every products/* topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return strings.HasPrefix(topic, "products/")
}

// Handle reconciles the product carried by the webhook
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	return reconcileEvent(ctx, h.reconciler, domain.KindProduct, event, h.logger)
}
