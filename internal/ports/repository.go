package ports

import (
	"context"
	"time"

	"shopify-ingestion-service/internal/domain"
)

// TenantRepository persists installations. Lookups return (nil, nil) when nothing matches.
type TenantRepository interface {
	// UpsertByShop inserts or replaces the installation keyed on shop domain and returns the stored record
	UpsertByShop(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByShop(ctx context.Context, shopDomain string) (*domain.Tenant, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Tenant, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// EntityRepository performs atomic insert-or-overwrite keyed by (tenant id, external id).
// Constraint failures are wrapped with domain.ErrStorageConstraintViolation.
type EntityRepository interface {
	UpsertProduct(ctx context.Context, product *domain.Product) error
	UpsertCustomer(ctx context.Context, customer *domain.Customer) error
	UpsertOrder(ctx context.Context, order *domain.Order) error
	UpsertAbandonedCheckout(ctx context.Context, checkout *domain.AbandonedCheckout) error
}

// WebhookLogRepository keeps an append-only log of verified push notifications
type WebhookLogRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// MetricsRepository answers read-only aggregate queries over the reconciled tables
type MetricsRepository interface {
	Summary(ctx context.Context, tenantID string, window domain.DateRange) (*domain.MetricsSummary, error)
	OrdersByDate(ctx context.Context, tenantID string, window domain.DateRange) ([]domain.DailyRevenue, error)
	TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.CustomerSpend, error)
	Products(ctx context.Context, tenantID string, limit int) (*domain.ProductOverview, error)
}

// StateStore holds issued OAuth state tokens until they are redeemed once
type StateStore interface {
	Save(ctx context.Context, state *domain.InstallState, ttl time.Duration) error
	// Consume returns and deletes the state, or (nil, nil) if unknown or expired
	Consume(ctx context.Context, state string) (*domain.InstallState, error)
}

// IdempotencyStore remembers processed delivery ids
type IdempotencyStore interface {
	// MarkProcessed returns true if id was newly marked, false if already present
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, id string) (bool, error)
}

// EncryptionService protects credentials at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
