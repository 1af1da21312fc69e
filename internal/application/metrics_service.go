package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 5
	maxListLimit     = 50
)

// ErrInvalidDateRange is returned when from is after to
var ErrInvalidDateRange = errors.New("invalid date range")

// MetricsService answers the read-only dashboard queries for one tenant
type MetricsService struct {
	repo   ports.MetricsRepository
	logger zerolog.Logger
}

// NewMetricsService creates a new metrics reader
func NewMetricsService(repo ports.MetricsRepository, logger zerolog.Logger) *MetricsService {
	return &MetricsService{
		repo:   repo,
		logger: logger,
	}
}

// Summary returns customer, order and revenue totals. Orders and revenue honour the window.
func (s *MetricsService) Summary(ctx context.Context, tenantID string, window domain.DateRange) (*domain.MetricsSummary, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, tenantID, window)
	if err != nil {
		s.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Failed to compute summary")
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	return summary, nil
}

// OrdersByDate returns order count and revenue per calendar day (UTC), oldest first
func (s *MetricsService) OrdersByDate(ctx context.Context, tenantID string, window domain.DateRange) ([]domain.DailyRevenue, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	days, err := s.repo.OrdersByDate(ctx, tenantID, window)
	if err != nil {
		s.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Failed to group orders by date")
		return nil, fmt.Errorf("failed to group orders by date: %w", err)
	}
	if days == nil {
		days = []domain.DailyRevenue{}
	}
	return days, nil
}

// TopCustomers returns the highest spending customers with a known total
func (s *MetricsService) TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.CustomerSpend, error) {
	customers, err := s.repo.TopCustomers(ctx, tenantID, clampLimit(limit))
	if err != nil {
		s.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Failed to rank customers")
		return nil, fmt.Errorf("failed to rank customers: %w", err)
	}
	if customers == nil {
		customers = []domain.CustomerSpend{}
	}
	return customers, nil
}

// Products returns the product count and the most recently first-seen products
func (s *MetricsService) Products(ctx context.Context, tenantID string, limit int) (*domain.ProductOverview, error) {
	overview, err := s.repo.Products(ctx, tenantID, clampLimit(limit))
	if err != nil {
		s.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Failed to load products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if overview == nil {
		overview = &domain.ProductOverview{}
	}
	if overview.Recent == nil {
		overview.Recent = []domain.Product{}
	}
	return overview, nil
}

func validateWindow(window domain.DateRange) error {
	if window.From != nil && window.To != nil && window.From.After(*window.To) {
		return ErrInvalidDateRange
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
