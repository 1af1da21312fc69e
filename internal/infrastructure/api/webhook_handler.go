package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// maxWebhookBytes caps the signed body read into memory
const maxWebhookBytes = 5 << 20

// Platform webhook headers
const (
	HeaderHmac      = "X-Shopify-Hmac-Sha256"
	HeaderTopic     = "X-Shopify-Topic"
	HeaderShop      = "X-Shopify-Shop-Domain"
	HeaderWebhookID = "X-Shopify-Webhook-Id"
	HeaderTriggered = "X-Shopify-Triggered-At"
)

// SignatureVerifier checks a webhook signature against the raw body
type SignatureVerifier interface {
	Verify(payload []byte, signature string) bool
}

// WebhookReceiver ingests verified deliveries
type WebhookReceiver interface {
	Receive(ctx context.Context, event *domain.WebhookEvent) (string, error)
	Rejected(event *domain.WebhookEvent)
}

// WebhookHandler verifies the signature before anything is parsed or stored, then hands the
// delivery to the receiver. 401 bad signature, 404 unknown shop, 500 retryable failure.
func WebhookHandler(verifier SignatureVerifier, receiver WebhookReceiver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()

		event := &domain.WebhookEvent{
			WebhookID:  r.Header.Get(HeaderWebhookID),
			Topic:      r.Header.Get(HeaderTopic),
			Shop:       r.Header.Get(HeaderShop),
			Payload:    payload,
			ReceivedAt: time.Now().UTC(),
		}
		if at, err := time.Parse(time.RFC3339, r.Header.Get(HeaderTriggered)); err == nil {
			event.TriggeredAt = at.UTC()
		}

		if !verifier.Verify(payload, r.Header.Get(HeaderHmac)) {
			logger.Warn().Str("shop", event.Shop).Str("topic", event.Topic).Msg("Webhook signature verification failed")
			receiver.Rejected(event)
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		event.Verified = true

		if _, err := receiver.Receive(r.Context(), event); err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				writeError(w, http.StatusNotFound, "unknown shop")
				return
			}
			logger.Error().
				Err(err).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Failed to process webhook event")
			// 500 makes the platform retry the delivery
			writeError(w, http.StatusInternalServerError, "failed to process webhook event")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}
