package webhook_handlers

import (
	"context"

	"shopify-ingestion-service/internal/application"
	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// EntityReconciler upserts a decoded payload; *application.Reconciler satisfies it
type EntityReconciler interface {
	Reconcile(ctx context.Context, kind domain.EntityKind, tenantID string, payload domain.RawDocument, source domain.Source) error
}

// reconcileEvent decodes the webhook body and reconciles it. Errors scoped to the record are
// logged and swallowed so the delivery is acknowledged; anything else goes back to the caller.
func reconcileEvent(ctx context.Context, reconciler EntityReconciler, kind domain.EntityKind, event *domain.WebhookEvent, logger zerolog.Logger) error {
	doc, err := application.DecodeRecord(event.Payload)
	if err == nil {
		err = reconciler.Reconcile(ctx, kind, event.TenantID, doc, domain.SourceWebhook)
	}
	if err == nil {
		return nil
	}
	if domain.IsRecordScoped(err) {
		logger.Warn().
			Err(err).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Str("tenantId", event.TenantID).
			Msg("Skipping webhook record")
		return nil
	}
	return err
}
