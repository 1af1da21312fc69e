package entity

import (
	"time"

	"shopify-ingestion-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoTenantDoc represents an installed shop in MongoDB. AccessToken is always ciphertext.
type MongoTenantDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ShopDomain  string             `bson:"shopDomain"`
	AccessToken string             `bson:"accessToken"`
	Scopes      []string           `bson:"scopes"`
	InstalledAt time.Time          `bson:"installedAt"`
	Active      bool               `bson:"active"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoTenantDoc) ToDomain() *domain.Tenant {
	return &domain.Tenant{
		ID:          d.ID.Hex(),
		ShopDomain:  d.ShopDomain,
		AccessToken: d.AccessToken,
		Scopes:      d.Scopes,
		InstalledAt: d.InstalledAt,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoTenantDocFromDomain converts a domain entity to a MongoDB document
func MongoTenantDocFromDomain(tenant *domain.Tenant) *MongoTenantDoc {
	doc := &MongoTenantDoc{
		ShopDomain:  tenant.ShopDomain,
		AccessToken: tenant.AccessToken,
		Scopes:      tenant.Scopes,
		InstalledAt: tenant.InstalledAt,
		Active:      tenant.Active,
		CreatedAt:   tenant.CreatedAt,
		UpdatedAt:   tenant.UpdatedAt,
	}
	if doc.Scopes == nil {
		doc.Scopes = []string{}
	}

	if tenant.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(tenant.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
