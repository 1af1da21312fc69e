package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// Reconcile outcomes reported to metrics
const (
	outcomeOK         = "ok"
	outcomeMalformed  = "malformed"
	outcomeConstraint = "constraint"
	outcomeError      = "error"
)

// Reconciler projects platform payloads and upserts them keyed by (tenant, external id).
// Applying the same payload twice leaves the same stored state; out-of-order payloads
// resolve to whichever was applied last.
type Reconciler struct {
	repo      ports.EntityRepository
	publisher ports.EventPublisher
	metrics   ports.IngestMetrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReconciler creates a new entity reconciler. publisher and metrics may be nil.
func NewReconciler(repo ports.EntityRepository, publisher ports.EventPublisher, metrics ports.IngestMetrics, logger zerolog.Logger) *Reconciler {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Reconciler{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile routes a payload to the upsert for its kind
func (r *Reconciler) Reconcile(ctx context.Context, kind domain.EntityKind, tenantID string, payload domain.RawDocument, source domain.Source) error {
	switch kind {
	case domain.KindProduct:
		return r.UpsertProduct(ctx, tenantID, payload, source)
	case domain.KindCustomer:
		return r.UpsertCustomer(ctx, tenantID, payload, source)
	case domain.KindOrder:
		return r.UpsertOrder(ctx, tenantID, payload, source)
	case domain.KindAbandonedCheckout:
		return r.UpsertAbandonedCheckout(ctx, tenantID, payload, source)
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
}

// UpsertProduct reconciles one product payload
func (r *Reconciler) UpsertProduct(ctx context.Context, tenantID string, payload domain.RawDocument, source domain.Source) error {
	return r.apply(ctx, domain.KindProduct, tenantID, payload, source, []string{"id"}, func(meta domain.RecordMeta) error {
		return r.repo.UpsertProduct(ctx, &domain.Product{
			RecordMeta:        meta,
			Title:             optString(payload, "title"),
			Handle:            optString(payload, "handle"),
			Vendor:            optString(payload, "vendor"),
			ProductType:       optString(payload, "product_type"),
			Status:            optString(payload, "status"),
			VariantCount:      arrayLen(payload, "variants"),
			PlatformCreatedAt: r.timestamp(domain.KindProduct, meta, payload, "created_at"),
			PlatformUpdatedAt: r.timestamp(domain.KindProduct, meta, payload, "updated_at"),
		})
	})
}

// UpsertCustomer reconciles one customer payload
func (r *Reconciler) UpsertCustomer(ctx context.Context, tenantID string, payload domain.RawDocument, source domain.Source) error {
	return r.apply(ctx, domain.KindCustomer, tenantID, payload, source, []string{"id"}, func(meta domain.RecordMeta) error {
		totalSpent, err := optDecimal(payload, "total_spent")
		if err != nil {
			return err
		}
		ordersCount, err := optInt(payload, "orders_count")
		if err != nil {
			return err
		}
		return r.repo.UpsertCustomer(ctx, &domain.Customer{
			RecordMeta:        meta,
			Email:             optString(payload, "email"),
			FirstName:         optString(payload, "first_name"),
			LastName:          optString(payload, "last_name"),
			Phone:             optString(payload, "phone"),
			TotalSpent:        totalSpent,
			OrdersCount:       ordersCount,
			PlatformCreatedAt: r.timestamp(domain.KindCustomer, meta, payload, "created_at"),
		})
	})
}

// UpsertOrder reconciles one order payload
func (r *Reconciler) UpsertOrder(ctx context.Context, tenantID string, payload domain.RawDocument, source domain.Source) error {
	return r.apply(ctx, domain.KindOrder, tenantID, payload, source, []string{"id"}, func(meta domain.RecordMeta) error {
		totalPrice, err := optDecimal(payload, "total_price")
		if err != nil {
			return err
		}
		return r.repo.UpsertOrder(ctx, &domain.Order{
			RecordMeta:        meta,
			OrderNumber:       optString(payload, "order_number"),
			Email:             optString(payload, "email"),
			TotalPrice:        totalPrice,
			Currency:          optString(payload, "currency"),
			FinancialStatus:   optString(payload, "financial_status"),
			PlatformCreatedAt: r.timestamp(domain.KindOrder, meta, payload, "created_at"),
		})
	})
}

// UpsertAbandonedCheckout reconciles one checkout payload. Checkouts without an id fall back to their token.
func (r *Reconciler) UpsertAbandonedCheckout(ctx context.Context, tenantID string, payload domain.RawDocument, source domain.Source) error {
	return r.apply(ctx, domain.KindAbandonedCheckout, tenantID, payload, source, []string{"id", "token"}, func(meta domain.RecordMeta) error {
		totalPrice, err := optDecimal(payload, "total_price")
		if err != nil {
			return err
		}
		return r.repo.UpsertAbandonedCheckout(ctx, &domain.AbandonedCheckout{
			RecordMeta:        meta,
			Email:             optString(payload, "email"),
			TotalPrice:        totalPrice,
			Currency:          optString(payload, "currency"),
			LineItemCount:     arrayLen(payload, "line_items"),
			PlatformCreatedAt: r.timestamp(domain.KindAbandonedCheckout, meta, payload, "created_at"),
		})
	})
}

// timestamp projects an optional platform timestamp. An unparseable value is stored as null
// and the record is still reconciled; the raw snapshot keeps the original text.
func (r *Reconciler) timestamp(kind domain.EntityKind, meta domain.RecordMeta, payload domain.RawDocument, key string) *time.Time {
	t, err := optTime(payload, key)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("tenantId", meta.TenantID).
			Str("kind", string(kind)).
			Str("externalId", meta.ExternalID).
			Str("field", key).
			Msg("Ignoring unparseable timestamp")
		return nil
	}
	return t
}

func (r *Reconciler) apply(
	ctx context.Context,
	kind domain.EntityKind,
	tenantID string,
	payload domain.RawDocument,
	source domain.Source,
	idKeys []string,
	upsert func(meta domain.RecordMeta) error,
) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required to reconcile %s", kind)
	}

	id, err := externalID(payload, idKeys...)
	if err == nil {
		now := r.now().UTC()
		err = upsert(domain.RecordMeta{
			TenantID:     tenantID,
			ExternalID:   id,
			Source:       source,
			FirstSeenAt:  now,
			LastSyncedAt: now,
			Raw:          payload,
		})
	}

	if err != nil {
		outcome := outcomeError
		switch {
		case errors.Is(err, domain.ErrMalformedPayload):
			outcome = outcomeMalformed
		case errors.Is(err, domain.ErrStorageConstraintViolation):
			outcome = outcomeConstraint
		}
		r.metrics.RecordReconciled(kind, source, outcome)

		event := r.logger.Warn()
		if outcome == outcomeError {
			event = r.logger.Error()
		}
		event.Err(err).
			Str("tenantId", tenantID).
			Str("kind", string(kind)).
			Str("externalId", id).
			Str("source", string(source)).
			Msg("Failed to reconcile record")
		return fmt.Errorf("failed to reconcile %s: %w", kind, err)
	}

	r.metrics.RecordReconciled(kind, source, outcomeOK)
	r.logger.Debug().
		Str("tenantId", tenantID).
		Str("kind", string(kind)).
		Str("externalId", id).
		Str("source", string(source)).
		Msg("Record reconciled")

	if r.publisher != nil {
		r.publisher.Publish(&domain.IngestEvent{
			TenantID:   tenantID,
			Kind:       kind,
			ExternalID: id,
			Source:     source,
			At:         r.now().UTC(),
		})
	}
	return nil
}
