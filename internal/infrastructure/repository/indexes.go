package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique keys that upserts rely on, plus the indexes the metrics queries use
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	naturalKey := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("tenant_external_id"),
	}
	byCreated := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "platformCreatedAt", Value: -1}},
		Options: options.Index().SetName("tenant_created_at"),
	}

	indexes := map[string][]mongo.IndexModel{
		TenantsCollection: {{
			Keys:    bson.D{{Key: "shopDomain", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("shop_domain"),
		}},
		ProductsCollection: {naturalKey, {
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "firstSeenAt", Value: -1}},
			Options: options.Index().SetName("tenant_first_seen_at"),
		}},
		CustomersCollection: {naturalKey, {
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "totalSpent", Value: -1}},
			Options: options.Index().SetName("tenant_total_spent"),
		}},
		OrdersCollection:             {naturalKey, byCreated},
		AbandonedCheckoutsCollection: {naturalKey},
		WebhookEventsCollection: {{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "receivedAt", Value: -1}},
			Options: options.Index().SetName("tenant_received_at"),
		}},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
