package entity

import (
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoRecordFields are shared by every reconciled collection.
// FirstSeenAt is omitted from $set so that it is only written on insert.
type MongoRecordFields struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	TenantID     string             `bson:"tenantId"`
	ExternalID   string             `bson:"externalId"`
	Source       string             `bson:"source"`
	FirstSeenAt  time.Time          `bson:"firstSeenAt,omitempty"`
	LastSyncedAt time.Time          `bson:"lastSyncedAt"`
	Raw          map[string]any     `bson:"raw,omitempty"`
}

func recordFieldsFromDomain(meta domain.RecordMeta) MongoRecordFields {
	return MongoRecordFields{
		TenantID:     meta.TenantID,
		ExternalID:   meta.ExternalID,
		Source:       string(meta.Source),
		LastSyncedAt: meta.LastSyncedAt,
		Raw:          RawToMongo(meta.Raw),
	}
}

func (f MongoRecordFields) toDomain() domain.RecordMeta {
	return domain.RecordMeta{
		TenantID:     f.TenantID,
		ExternalID:   f.ExternalID,
		Source:       domain.Source(f.Source),
		FirstSeenAt:  f.FirstSeenAt,
		LastSyncedAt: f.LastSyncedAt,
		Raw:          RawFromMongo(f.Raw),
	}
}

// MongoProductDoc represents a product in MongoDB
type MongoProductDoc struct {
	MongoRecordFields `bson:",inline"`
	Title             *string    `bson:"title"`
	Handle            *string    `bson:"handle"`
	Vendor            *string    `bson:"vendor"`
	ProductType       *string    `bson:"productType"`
	Status            *string    `bson:"status"`
	VariantCount      int        `bson:"variantCount"`
	PlatformCreatedAt *time.Time `bson:"platformCreatedAt"`
	PlatformUpdatedAt *time.Time `bson:"platformUpdatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoProductDoc) ToDomain() *domain.Product {
	return &domain.Product{
		ID:                d.ID.Hex(),
		RecordMeta:        d.toDomain(),
		Title:             d.Title,
		Handle:            d.Handle,
		Vendor:            d.Vendor,
		ProductType:       d.ProductType,
		Status:            d.Status,
		VariantCount:      d.VariantCount,
		PlatformCreatedAt: d.PlatformCreatedAt,
		PlatformUpdatedAt: d.PlatformUpdatedAt,
	}
}

// MongoProductDocFromDomain converts a domain entity to a MongoDB document
func MongoProductDocFromDomain(p *domain.Product) *MongoProductDoc {
	return &MongoProductDoc{
		MongoRecordFields: recordFieldsFromDomain(p.RecordMeta),
		Title:             p.Title,
		Handle:            p.Handle,
		Vendor:            p.Vendor,
		ProductType:       p.ProductType,
		Status:            p.Status,
		VariantCount:      p.VariantCount,
		PlatformCreatedAt: p.PlatformCreatedAt,
		PlatformUpdatedAt: p.PlatformUpdatedAt,
	}
}

// MongoCustomerDoc represents a customer in MongoDB
type MongoCustomerDoc struct {
	MongoRecordFields `bson:",inline"`
	Email             *string               `bson:"email"`
	FirstName         *string               `bson:"firstName"`
	LastName          *string               `bson:"lastName"`
	Phone             *string               `bson:"phone"`
	TotalSpent        *primitive.Decimal128 `bson:"totalSpent"`
	OrdersCount       *int64                `bson:"ordersCount"`
	PlatformCreatedAt *time.Time            `bson:"platformCreatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCustomerDoc) ToDomain() *domain.Customer {
	return &domain.Customer{
		ID:                d.ID.Hex(),
		RecordMeta:        d.toDomain(),
		Email:             d.Email,
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		Phone:             d.Phone,
		TotalSpent:        DecimalFromMongo(d.TotalSpent),
		OrdersCount:       d.OrdersCount,
		PlatformCreatedAt: d.PlatformCreatedAt,
	}
}

// MongoCustomerDocFromDomain converts a domain entity to a MongoDB document
func MongoCustomerDocFromDomain(c *domain.Customer) *MongoCustomerDoc {
	return &MongoCustomerDoc{
		MongoRecordFields: recordFieldsFromDomain(c.RecordMeta),
		Email:             c.Email,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Phone:             c.Phone,
		TotalSpent:        DecimalToMongo(c.TotalSpent),
		OrdersCount:       c.OrdersCount,
		PlatformCreatedAt: c.PlatformCreatedAt,
	}
}

// MongoOrderDoc represents an order in MongoDB
type MongoOrderDoc struct {
	MongoRecordFields `bson:",inline"`
	OrderNumber       *string               `bson:"orderNumber"`
	Email             *string               `bson:"email"`
	TotalPrice        *primitive.Decimal128 `bson:"totalPrice"`
	Currency          *string               `bson:"currency"`
	FinancialStatus   *string               `bson:"financialStatus"`
	PlatformCreatedAt *time.Time            `bson:"platformCreatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderDoc) ToDomain() *domain.Order {
	return &domain.Order{
		ID:                d.ID.Hex(),
		RecordMeta:        d.toDomain(),
		OrderNumber:       d.OrderNumber,
		Email:             d.Email,
		TotalPrice:        DecimalFromMongo(d.TotalPrice),
		Currency:          d.Currency,
		FinancialStatus:   d.FinancialStatus,
		PlatformCreatedAt: d.PlatformCreatedAt,
	}
}

// MongoOrderDocFromDomain converts a domain entity to a MongoDB document
func MongoOrderDocFromDomain(o *domain.Order) *MongoOrderDoc {
	return &MongoOrderDoc{
		MongoRecordFields: recordFieldsFromDomain(o.RecordMeta),
		OrderNumber:       o.OrderNumber,
		Email:             o.Email,
		TotalPrice:        DecimalToMongo(o.TotalPrice),
		Currency:          o.Currency,
		FinancialStatus:   o.FinancialStatus,
		PlatformCreatedAt: o.PlatformCreatedAt,
	}
}

// MongoAbandonedCheckoutDoc represents an abandoned checkout in MongoDB
type MongoAbandonedCheckoutDoc struct {
	MongoRecordFields `bson:",inline"`
	Email             *string               `bson:"email"`
	TotalPrice        *primitive.Decimal128 `bson:"totalPrice"`
	Currency          *string               `bson:"currency"`
	LineItemCount     int                   `bson:"lineItemCount"`
	PlatformCreatedAt *time.Time            `bson:"platformCreatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoAbandonedCheckoutDoc) ToDomain() *domain.AbandonedCheckout {
	return &domain.AbandonedCheckout{
		ID:                d.ID.Hex(),
		RecordMeta:        d.toDomain(),
		Email:             d.Email,
		TotalPrice:        DecimalFromMongo(d.TotalPrice),
		Currency:          d.Currency,
		LineItemCount:     d.LineItemCount,
		PlatformCreatedAt: d.PlatformCreatedAt,
	}
}

// MongoAbandonedCheckoutDocFromDomain converts a domain entity to a MongoDB document
func MongoAbandonedCheckoutDocFromDomain(c *domain.AbandonedCheckout) *MongoAbandonedCheckoutDoc {
	return &MongoAbandonedCheckoutDoc{
		MongoRecordFields: recordFieldsFromDomain(c.RecordMeta),
		Email:             c.Email,
		TotalPrice:        DecimalToMongo(c.TotalPrice),
		Currency:          c.Currency,
		LineItemCount:     c.LineItemCount,
		PlatformCreatedAt: c.PlatformCreatedAt,
	}
}

// DecimalToMongo converts an exact decimal to Decimal128. Values outside Decimal128 range map to nil.
func DecimalToMongo(d *decimal.Decimal) *primitive.Decimal128 {
	if d == nil {
		return nil
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return nil
	}
	return &v
}

// DecimalFromMongo converts a stored Decimal128 back to an exact decimal
func DecimalFromMongo(v *primitive.Decimal128) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return nil
	}
	return &d
}
