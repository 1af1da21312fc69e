package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/infrastructure/repository/entity"
	"shopify-ingestion-service/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	TenantsCollection            = "tenants"
	WebhookEventsCollection      = "webhook_events"
	ProductsCollection           = "products"
	CustomersCollection          = "customers"
	OrdersCollection             = "orders"
	AbandonedCheckoutsCollection = "abandoned_checkouts"
)

// MongoRepository implements TenantRepository and WebhookLogRepository using MongoDB
type MongoRepository struct {
	tenantsCollection  *mongo.Collection
	webhooksCollection *mongo.Collection
	now                func() time.Time
}

var (
	_ ports.TenantRepository     = (*MongoRepository)(nil)
	_ ports.WebhookLogRepository = (*MongoRepository)(nil)
)

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		tenantsCollection:  db.Collection(TenantsCollection),
		webhooksCollection: db.Collection(WebhookEventsCollection),
		now:                time.Now,
	}
}

// UpsertByShop saves or replaces the installation for a shop domain and returns the stored tenant
func (r *MongoRepository) UpsertByShop(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	now := r.now().UTC()
	doc := entity.MongoTenantDocFromDomain(tenant)
	doc.ID = primitive.NilObjectID
	doc.CreatedAt = time.Time{}
	doc.UpdatedAt = now

	filter := bson.M{"shopDomain": tenant.ShopDomain}
	update := bson.M{
		"$set":         doc,
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved entity.MongoTenantDoc
	err := r.tenantsCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent install inserted first; the retry takes the update path
		err = r.tenantsCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save tenant: %w", err)
	}

	return saved.ToDomain(), nil
}

// GetByID retrieves a tenant by id
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

// GetByShop retrieves a tenant by shop domain
func (r *MongoRepository) GetByShop(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	return r.findOne(ctx, bson.M{"shopDomain": shopDomain})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Tenant, error) {
	var doc entity.MongoTenantDoc
	err := r.tenantsCollection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return doc.ToDomain(), nil
}

// List retrieves tenants ordered by install time
func (r *MongoRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Tenant, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "installedAt", Value: 1}})

	cursor, err := r.tenantsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer cursor.Close(ctx)

	tenants := []*domain.Tenant{}
	for cursor.Next(ctx) {
		var doc entity.MongoTenantDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode tenant: %w", err)
		}
		tenants = append(tenants, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return tenants, nil
}

// SetActive flips the tenant's active flag
func (r *MongoRepository) SetActive(ctx context.Context, id string, active bool) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}

	update := bson.M{"$set": bson.M{"active": active, "updatedAt": r.now().UTC()}}
	result, err := r.tenantsCollection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}

	return nil
}

// LogWebhook logs a webhook event
func (r *MongoRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	doc.CreatedAt = r.now().UTC()
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = doc.CreatedAt
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	event.ID = doc.ID.Hex()

	return nil
}
