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
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documentValidationFailure is the server code for a write rejected by a collection validator
const documentValidationFailure = 121

// MongoEntityRepository upserts reconciled records keyed by (tenantId, externalId).
// Correctness depends on the unique indexes created by EnsureIndexes.
type MongoEntityRepository struct {
	products           *mongo.Collection
	customers          *mongo.Collection
	orders             *mongo.Collection
	abandonedCheckouts *mongo.Collection
}

var _ ports.EntityRepository = (*MongoEntityRepository)(nil)

// NewMongoEntityRepository creates a new MongoDB entity repository
func NewMongoEntityRepository(db *mongo.Database) *MongoEntityRepository {
	return &MongoEntityRepository{
		products:           db.Collection(ProductsCollection),
		customers:          db.Collection(CustomersCollection),
		orders:             db.Collection(OrdersCollection),
		abandonedCheckouts: db.Collection(AbandonedCheckoutsCollection),
	}
}

// UpsertProduct inserts or overwrites a product
func (r *MongoEntityRepository) UpsertProduct(ctx context.Context, product *domain.Product) error {
	doc := entity.MongoProductDocFromDomain(product)
	return upsertRecord(ctx, r.products, product.Key(), product.FirstSeenAt, doc)
}

// UpsertCustomer inserts or overwrites a customer
func (r *MongoEntityRepository) UpsertCustomer(ctx context.Context, customer *domain.Customer) error {
	doc := entity.MongoCustomerDocFromDomain(customer)
	return upsertRecord(ctx, r.customers, customer.Key(), customer.FirstSeenAt, doc)
}

// UpsertOrder inserts or overwrites an order
func (r *MongoEntityRepository) UpsertOrder(ctx context.Context, order *domain.Order) error {
	doc := entity.MongoOrderDocFromDomain(order)
	return upsertRecord(ctx, r.orders, order.Key(), order.FirstSeenAt, doc)
}

// UpsertAbandonedCheckout inserts or overwrites an abandoned checkout
func (r *MongoEntityRepository) UpsertAbandonedCheckout(ctx context.Context, checkout *domain.AbandonedCheckout) error {
	doc := entity.MongoAbandonedCheckoutDocFromDomain(checkout)
	return upsertRecord(ctx, r.abandonedCheckouts, checkout.Key(), checkout.FirstSeenAt, doc)
}

// upsertRecord overwrites every projected field, raw included, and writes firstSeenAt only on insert.
// Two writers racing on a new key both attempt the insert; the loser gets a duplicate key error
// and its retry takes the update path.
func upsertRecord(ctx context.Context, coll *mongo.Collection, key domain.EntityKey, firstSeen time.Time, doc any) error {
	if firstSeen.IsZero() {
		firstSeen = time.Now().UTC()
	}

	filter := bson.M{"tenantId": key.TenantID, "externalId": key.ExternalID}
	update := bson.M{
		"$set":         doc,
		"$setOnInsert": bson.M{"firstSeenAt": firstSeen},
	}
	opts := options.Update().SetUpsert(true)

	_, err := coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = coll.UpdateOne(ctx, filter, update, opts)
	}
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) || isValidationFailure(err) {
		return fmt.Errorf("%w: %s %s/%s: %v", domain.ErrStorageConstraintViolation, coll.Name(), key.TenantID, key.ExternalID, err)
	}
	return fmt.Errorf("failed to upsert into %s: %w", coll.Name(), err)
}

func isValidationFailure(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(documentValidationFailure)
}
