package webhook_handlers

import (
	"context"
	"strings"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	reconciler EntityReconciler
	logger     zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(reconciler EntityReconciler, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true for every customers/* topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return strings.HasPrefix(topic, "customers/")
}

// Handle reconciles the customer carried by the webhook
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	return reconcileEvent(ctx, h.reconciler, domain.KindCustomer, event, h.logger)
}
