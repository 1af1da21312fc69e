package api

import (
	"context"
	"errors"
	"net/http"

	"shopify-ingestion-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TenantSyncer runs a blocking full sync for a tenant id
type TenantSyncer interface {
	SyncTenantByID(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncReport, error)
}

// TenantLister lists installations without credentials
type TenantLister interface {
	ListTenants(ctx context.Context) ([]*domain.Tenant, error)
}

// FullSyncHandler runs a full sync and returns the per-kind summaries.
// 200 when every kind ran to the end, 502 when any kind stopped on an upstream failure.
func FullSyncHandler(syncer TenantSyncer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		if !validTenantID(tenantID) {
			writeError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}

		report, err := syncer.SyncTenantByID(r.Context(), tenantID, domain.SourceSync)
		switch {
		case errors.Is(err, domain.ErrTenantNotFound):
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		case errors.Is(err, domain.ErrTenantInactive):
			writeError(w, http.StatusConflict, "tenant is inactive")
			return
		case err != nil:
			logger.Error().Err(err).Str("tenantId", tenantID).Msg("Manual full sync failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		status := http.StatusOK
		if !report.Complete() {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, report)
	}
}

// ListTenantsHandler returns every installation
func ListTenantsHandler(tenants TenantLister, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := tenants.ListTenants(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list tenants")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
