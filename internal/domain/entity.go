package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind names a reconciled resource collection
type EntityKind string

const (
	KindProduct           EntityKind = "product"
	KindCustomer          EntityKind = "customer"
	KindOrder             EntityKind = "order"
	KindAbandonedCheckout EntityKind = "abandoned_checkout"
)

// FullSyncKinds is the order in which a full sync walks the listings
var FullSyncKinds = []EntityKind{KindCustomer, KindProduct, KindOrder}

// Source records which ingestion channel performed the last write
type Source string

const (
	SourceWebhook  Source = "webhook"
	SourceSync     Source = "sync"
	SourceSchedule Source = "schedule"
)

// RawDocument is the last-seen payload, stored verbatim.
// Numbers decode as json.Number so external ids keep their exact value.
type RawDocument map[string]any

// EntityKey is the natural upsert key of every reconciled row
type EntityKey struct {
	TenantID   string
	ExternalID string
}

// RecordMeta is shared by every reconciled row
type RecordMeta struct {
	TenantID     string      `json:"tenantId"`
	ExternalID   string      `json:"externalId"`
	Source       Source      `json:"source"`
	FirstSeenAt  time.Time   `json:"firstSeenAt"`
	LastSyncedAt time.Time   `json:"lastSyncedAt"`
	Raw          RawDocument `json:"raw,omitempty"`
}

// Key returns the (tenant, external id) pair
func (m RecordMeta) Key() EntityKey {
	return EntityKey{TenantID: m.TenantID, ExternalID: m.ExternalID}
}

// Product is the projected view of a platform product
type Product struct {
	ID string `json:"id,omitempty"`
	RecordMeta
	Title             *string    `json:"title"`
	Handle            *string    `json:"handle"`
	Vendor            *string    `json:"vendor"`
	ProductType       *string    `json:"productType"`
	Status            *string    `json:"status"`
	VariantCount      int        `json:"variantCount"`
	PlatformCreatedAt *time.Time `json:"createdAt"`
	PlatformUpdatedAt *time.Time `json:"updatedAt"`
}

// Customer is the projected view of a platform customer
type Customer struct {
	ID string `json:"id,omitempty"`
	RecordMeta
	Email             *string          `json:"email"`
	FirstName         *string          `json:"firstName"`
	LastName          *string          `json:"lastName"`
	Phone             *string          `json:"phone"`
	TotalSpent        *decimal.Decimal `json:"totalSpent"`
	OrdersCount       *int64           `json:"ordersCount"`
	PlatformCreatedAt *time.Time       `json:"createdAt"`
}

// Order is the projected view of a platform order
type Order struct {
	ID string `json:"id,omitempty"`
	RecordMeta
	OrderNumber       *string          `json:"orderNumber"`
	Email             *string          `json:"email"`
	TotalPrice        *decimal.Decimal `json:"totalPrice"`
	Currency          *string          `json:"currency"`
	FinancialStatus   *string          `json:"financialStatus"`
	PlatformCreatedAt *time.Time       `json:"createdAt"`
}

// AbandonedCheckout is the projected view of a checkout that never converted
type AbandonedCheckout struct {
	ID string `json:"id,omitempty"`
	RecordMeta
	Email             *string          `json:"email"`
	TotalPrice        *decimal.Decimal `json:"totalPrice"`
	Currency          *string          `json:"currency"`
	LineItemCount     int              `json:"lineItemCount"`
	PlatformCreatedAt *time.Time       `json:"createdAt"`
}
