package repository

import (
	"context"
	"fmt"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/infrastructure/repository/entity"
	"shopify-ingestion-service/internal/ports"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMetricsRepository runs read-only aggregations over the reconciled collections
type MongoMetricsRepository struct {
	products           *mongo.Collection
	customers          *mongo.Collection
	orders             *mongo.Collection
	abandonedCheckouts *mongo.Collection
}

var _ ports.MetricsRepository = (*MongoMetricsRepository)(nil)

// NewMongoMetricsRepository creates a new MongoDB metrics repository
func NewMongoMetricsRepository(db *mongo.Database) *MongoMetricsRepository {
	return &MongoMetricsRepository{
		products:           db.Collection(ProductsCollection),
		customers:          db.Collection(CustomersCollection),
		orders:             db.Collection(OrdersCollection),
		abandonedCheckouts: db.Collection(AbandonedCheckoutsCollection),
	}
}

type revenueRow struct {
	ID    string               `bson:"_id"`
	Total primitive.Decimal128 `bson:"total"`
	Count int64                `bson:"count"`
}

// revenueGroup sums totalPrice as Decimal128 so money never passes through floating point
func revenueGroup(id any) bson.M {
	return bson.M{"$group": bson.M{
		"_id":   id,
		"total": bson.M{"$sum": bson.M{"$toDecimal": bson.M{"$ifNull": bson.A{"$totalPrice", 0}}}},
		"count": bson.M{"$sum": 1},
	}}
}

func windowFilter(tenantID string, window domain.DateRange) bson.M {
	filter := bson.M{"tenantId": tenantID}
	created := bson.M{}
	if window.From != nil {
		created["$gte"] = window.From.UTC()
	}
	if window.To != nil {
		created["$lte"] = window.To.UTC()
	}
	if len(created) > 0 {
		filter["platformCreatedAt"] = created
	}
	return filter
}

// Summary counts customers, orders and abandoned checkouts and sums order revenue
func (r *MongoMetricsRepository) Summary(ctx context.Context, tenantID string, window domain.DateRange) (*domain.MetricsSummary, error) {
	tenantFilter := bson.M{"tenantId": tenantID}
	summary := &domain.MetricsSummary{Revenue: decimal.Zero}

	customers, err := r.customers.CountDocuments(ctx, tenantFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	summary.Customers = customers

	checkouts, err := r.abandonedCheckouts.CountDocuments(ctx, tenantFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count abandoned checkouts: %w", err)
	}
	summary.AbandonedCheckouts = checkouts

	pipeline := bson.A{
		bson.M{"$match": windowFilter(tenantID, window)},
		revenueGroup(nil),
	}
	rows, err := r.aggregateRevenue(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		summary.Orders = rows[0].Count
		if total := entity.DecimalFromMongo(&rows[0].Total); total != nil {
			summary.Revenue = *total
		}
	}

	return summary, nil
}

// UnknownDateBucket collects orders without a platform created-at. It sorts after every date.
const UnknownDateBucket = "unknown"

// OrdersByDate buckets orders by UTC calendar day of the platform created-at
func (r *MongoMetricsRepository) OrdersByDate(ctx context.Context, tenantID string, window domain.DateRange) ([]domain.DailyRevenue, error) {
	pipeline := bson.A{
		bson.M{"$match": windowFilter(tenantID, window)},
		revenueGroup(bson.M{"$dateToString": bson.M{
			"format": "%Y-%m-%d",
			"date":   "$platformCreatedAt",
			"onNull": UnknownDateBucket,
		}}),
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	rows, err := r.aggregateRevenue(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	days := make([]domain.DailyRevenue, 0, len(rows))
	for _, row := range rows {
		day := domain.DailyRevenue{Date: row.ID, Count: row.Count, Total: decimal.Zero}
		if total := entity.DecimalFromMongo(&row.Total); total != nil {
			day.Total = *total
		}
		days = append(days, day)
	}
	return days, nil
}

func (r *MongoMetricsRepository) aggregateRevenue(ctx context.Context, pipeline bson.A) ([]revenueRow, error) {
	cursor, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []revenueRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode order aggregate: %w", err)
	}
	return rows, nil
}

// TopCustomers ranks customers with a known total spend, highest first
func (r *MongoMetricsRepository) TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.CustomerSpend, error) {
	filter := bson.M{"tenantId": tenantID, "totalSpent": bson.M{"$ne": nil}}
	opts := options.Find().
		SetSort(bson.D{{Key: "totalSpent", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"raw": 0})

	cursor, err := r.customers.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find customers: %w", err)
	}
	defer cursor.Close(ctx)

	out := []domain.CustomerSpend{}
	for cursor.Next(ctx) {
		var doc entity.MongoCustomerDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode customer: %w", err)
		}
		c := doc.ToDomain()
		spend := domain.CustomerSpend{
			ID:         c.ID,
			ExternalID: c.ExternalID,
			Email:      c.Email,
			FirstName:  c.FirstName,
			LastName:   c.LastName,
		}
		if c.TotalSpent != nil {
			spend.TotalSpent = *c.TotalSpent
		}
		out = append(out, spend)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}

// Products returns the product count and the most recently first-seen products
func (r *MongoMetricsRepository) Products(ctx context.Context, tenantID string, limit int) (*domain.ProductOverview, error) {
	filter := bson.M{"tenantId": tenantID}

	count, err := r.products.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "firstSeenAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"raw": 0})
	cursor, err := r.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	overview := &domain.ProductOverview{Count: count, Recent: []domain.Product{}}
	for cursor.Next(ctx) {
		var doc entity.MongoProductDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		overview.Recent = append(overview.Recent, *doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return overview, nil
}
