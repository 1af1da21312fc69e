package webhook_handlers

import (
	"context"
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// TenantDeactivator marks a tenant as uninstalled; *application.CredentialStore satisfies it
type TenantDeactivator interface {
	DeactivateUninstalled(ctx context.Context, id string, uninstalledAt time.Time) (bool, error)
}

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	tenants TenantDeactivator
	logger  zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(tenants TenantDeactivator, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		tenants: tenants,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle deactivates the tenant so the scheduler stops polling it.
// Reconciled data and the stored credential are kept. An uninstall raised before the
// current installation is a late redelivery and leaves the tenant active.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("tenantId", event.TenantID).
		Msg("Processing app uninstalled webhook event")

	// Webhook subscriptions are removed by the platform on uninstall
	deactivated, err := h.tenants.DeactivateUninstalled(ctx, event.TenantID, event.OccurredAt())
	if err != nil {
		return err
	}
	if !deactivated {
		h.logger.Warn().
			Str("shop", event.Shop).
			Str("tenantId", event.TenantID).
			Time("occurredAt", event.OccurredAt()).
			Msg("Ignoring uninstall that predates the current installation")
	}
	return nil
}
