package application

import (
	"context"
	"errors"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultDedupeTTL is how long a delivery id is remembered. The platform retries for up to 48h
// but nearly all redeliveries land within the first day.
const DefaultDedupeTTL = 24 * time.Hour

// Webhook outcomes reported to metrics
const (
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeIgnored   = "ignored"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeUnknown   = "unknown_tenant"
	WebhookOutcomeRejected  = "rejected"
	WebhookOutcomeFailed    = "failed"
)

// WebhookService ingests push notifications that have already passed signature verification
type WebhookService struct {
	credentials *CredentialStore
	dispatcher  *WebhookDispatcher
	webhookLog  ports.WebhookLogRepository
	dedupe      ports.IdempotencyStore
	metrics     ports.IngestMetrics
	logger      zerolog.Logger
	dedupeTTL   time.Duration
}

// NewWebhookService creates a new webhook ingestion service. webhookLog, dedupe and metrics may be nil.
func NewWebhookService(
	credentials *CredentialStore,
	dispatcher *WebhookDispatcher,
	webhookLog ports.WebhookLogRepository,
	dedupe ports.IdempotencyStore,
	metrics ports.IngestMetrics,
	logger zerolog.Logger,
) *WebhookService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &WebhookService{
		credentials: credentials,
		dispatcher:  dispatcher,
		webhookLog:  webhookLog,
		dedupe:      dedupe,
		metrics:     metrics,
		logger:      logger,
		dedupeTTL:   DefaultDedupeTTL,
	}
}

// Receive resolves the tenant from the shop domain and dispatches the event.
// It returns domain.ErrTenantNotFound for unknown shops; any other error should be retried by the platform.
func (s *WebhookService) Receive(ctx context.Context, event *domain.WebhookEvent) (string, error) {
	tenant, err := s.credentials.GetByShop(ctx, event.Shop)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			s.logger.Warn().Str("shop", event.Shop).Str("topic", event.Topic).Msg("Webhook for unknown shop")
			s.metrics.WebhookReceived(event.Topic, WebhookOutcomeUnknown)
			return WebhookOutcomeUnknown, err
		}
		s.metrics.WebhookReceived(event.Topic, WebhookOutcomeFailed)
		return WebhookOutcomeFailed, err
	}
	event.TenantID = tenant.ID

	log := s.logger.With().
		Str("tenantId", tenant.ID).
		Str("shop", event.Shop).
		Str("topic", event.Topic).
		Str("webhookId", event.WebhookID).
		Logger()

	if s.dedupe != nil && event.WebhookID != "" {
		seen, err := s.dedupe.IsProcessed(ctx, event.WebhookID)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to check webhook delivery id, processing anyway")
		} else if seen {
			log.Info().Msg("Duplicate webhook delivery, skipping")
			s.metrics.WebhookReceived(event.Topic, WebhookOutcomeDuplicate)
			return WebhookOutcomeDuplicate, nil
		}
	}

	if s.webhookLog != nil {
		if err := s.webhookLog.LogWebhook(ctx, event); err != nil {
			log.Warn().Err(err).Msg("Failed to log webhook event")
		}
	}

	handled, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		s.metrics.WebhookReceived(event.Topic, WebhookOutcomeFailed)
		return WebhookOutcomeFailed, err
	}

	if s.dedupe != nil && event.WebhookID != "" {
		if _, err := s.dedupe.MarkProcessed(ctx, event.WebhookID, s.dedupeTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to mark webhook delivery as processed")
		}
	}

	outcome := WebhookOutcomeProcessed
	if !handled {
		outcome = WebhookOutcomeIgnored
	}
	s.metrics.WebhookReceived(event.Topic, outcome)
	log.Debug().Str("outcome", outcome).Msg("Webhook received")
	return outcome, nil
}

// Rejected records a delivery that failed signature verification
func (s *WebhookService) Rejected(event *domain.WebhookEvent) {
	s.metrics.WebhookReceived(event.Topic, WebhookOutcomeRejected)
}
