package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"shopify-ingestion-service/internal/application"
	"shopify-ingestion-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Tenant ids are storage object ids
var tenantIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

func validTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// MetricsReader answers the dashboard aggregate queries
type MetricsReader interface {
	Summary(ctx context.Context, tenantID string, window domain.DateRange) (*domain.MetricsSummary, error)
	OrdersByDate(ctx context.Context, tenantID string, window domain.DateRange) ([]domain.DailyRevenue, error)
	TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.CustomerSpend, error)
	Products(ctx context.Context, tenantID string, limit int) (*domain.ProductOverview, error)
}

// MetricsHandlers serves the read-only metrics endpoints
type MetricsHandlers struct {
	reader MetricsReader
	logger zerolog.Logger
}

// NewMetricsHandlers creates the metrics endpoint handlers
func NewMetricsHandlers(reader MetricsReader, logger zerolog.Logger) *MetricsHandlers {
	return &MetricsHandlers{reader: reader, logger: logger}
}

// Summary handles GET /api/metrics/summary/{tenantId}
func (h *MetricsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID, window, ok := h.windowRequest(w, r)
	if !ok {
		return
	}
	summary, err := h.reader.Summary(r.Context(), tenantID, window)
	h.respond(w, tenantID, summary, err)
}

// OrdersByDate handles GET /api/metrics/orders-by-date/{tenantId}
func (h *MetricsHandlers) OrdersByDate(w http.ResponseWriter, r *http.Request) {
	tenantID, window, ok := h.windowRequest(w, r)
	if !ok {
		return
	}
	days, err := h.reader.OrdersByDate(r.Context(), tenantID, window)
	h.respond(w, tenantID, days, err)
}

// TopCustomers handles GET /api/metrics/top-customers/{tenantId}
func (h *MetricsHandlers) TopCustomers(w http.ResponseWriter, r *http.Request) {
	tenantID, limit, ok := h.limitRequest(w, r)
	if !ok {
		return
	}
	customers, err := h.reader.TopCustomers(r.Context(), tenantID, limit)
	h.respond(w, tenantID, customers, err)
}

// Products handles GET /api/metrics/products/{tenantId}
func (h *MetricsHandlers) Products(w http.ResponseWriter, r *http.Request) {
	tenantID, limit, ok := h.limitRequest(w, r)
	if !ok {
		return
	}
	overview, err := h.reader.Products(r.Context(), tenantID, limit)
	h.respond(w, tenantID, overview, err)
}

func (h *MetricsHandlers) windowRequest(w http.ResponseWriter, r *http.Request) (string, domain.DateRange, bool) {
	var window domain.DateRange
	tenantID := chi.URLParam(r, "tenantId")
	if !validTenantID(tenantID) {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return "", window, false
	}

	var err error
	q := r.URL.Query()
	if window.From, err = parseDate(q.Get("from"), false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", window, false
	}
	if window.To, err = parseDate(q.Get("to"), true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", window, false
	}
	return tenantID, window, true
}

func (h *MetricsHandlers) limitRequest(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	tenantID := chi.URLParam(r, "tenantId")
	if !validTenantID(tenantID) {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return "", 0, false
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return "", 0, false
		}
		limit = n
	}
	return tenantID, limit, true
}

func (h *MetricsHandlers) respond(w http.ResponseWriter, tenantID string, body any, err error) {
	if errors.Is(err, application.ErrInvalidDateRange) {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Metrics query failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// parseDate accepts RFC3339 or YYYY-MM-DD. A bare date used as an upper bound covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
