package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shopify-ingestion-service/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const heartbeatInterval = 25 * time.Second

// EventsHandler streams a tenant's reconciled records as server-sent events
func EventsHandler(ps *pubsub.IngestPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		if !validTenantID(tenantID) {
			writeError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		sub := ps.Subscribe(r.Context(), &pubsub.IngestEventFilter{TenantID: tenantID})
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-sub.Done:
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case event, ok := <-sub.Events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to encode ingest event")
					continue
				}
				fmt.Fprintf(w, "event: ingest\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}
