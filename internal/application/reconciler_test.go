package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenantA = "aaaaaaaaaaaaaaaaaaaaaaaa"
	tenantB = "bbbbbbbbbbbbbbbbbbbbbbbb"
)

func mustDecode(t *testing.T, raw string) domain.RawDocument {
	t.Helper()
	doc, err := DecodeRecord([]byte(raw))
	require.NoError(t, err)
	return doc
}

func newTestReconciler(repo *memEntityRepo) (*Reconciler, *countingMetrics, *recordingPublisher) {
	metrics := newCountingMetrics()
	publisher := &recordingPublisher{}
	return NewReconciler(repo, publisher, metrics, testLogger), metrics, publisher
}

func TestReconciler_UpsertOrder_Idempotent(t *testing.T) {
	repo := newMemEntityRepo()
	r, metrics, _ := newTestReconciler(repo)

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return first }

	payload := `{"id": 1001, "order_number": 1001, "email": "a@example.com", "total_price": "19.99",
		"currency": "EUR", "financial_status": "paid", "created_at": "2025-02-28T09:00:00+01:00"}`

	require.NoError(t, r.UpsertOrder(context.Background(), tenantA, mustDecode(t, payload), domain.SourceWebhook))

	r.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, r.UpsertOrder(context.Background(), tenantA, mustDecode(t, payload), domain.SourceSync))

	require.Len(t, repo.orders, 1)
	stored := repo.orders[domain.EntityKey{TenantID: tenantA, ExternalID: "1001"}]

	assert.Equal(t, "1001", *stored.OrderNumber)
	assert.True(t, decimal.RequireFromString("19.99").Equal(*stored.TotalPrice))
	assert.Equal(t, "EUR", *stored.Currency)
	assert.Equal(t, time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC), *stored.PlatformCreatedAt)
	assert.Equal(t, first, stored.FirstSeenAt)
	assert.Equal(t, first.Add(time.Hour), stored.LastSyncedAt)
	assert.Equal(t, domain.SourceSync, stored.Source)
	assert.Equal(t, 1, metrics.get("record:order:webhook:ok"))
	assert.Equal(t, 1, metrics.get("record:order:sync:ok"))
}

func TestReconciler_LastAppliedWins(t *testing.T) {
	repo := newMemEntityRepo()
	r, _, _ := newTestReconciler(repo)
	ctx := context.Background()

	newer := `{"id": 7, "title": "Newer", "updated_at": "2025-03-02T00:00:00Z"}`
	older := `{"id": 7, "title": "Older", "updated_at": "2025-03-01T00:00:00Z"}`

	require.NoError(t, r.UpsertProduct(ctx, tenantA, mustDecode(t, newer), domain.SourceWebhook))
	require.NoError(t, r.UpsertProduct(ctx, tenantA, mustDecode(t, older), domain.SourceSync))

	stored := repo.products[domain.EntityKey{TenantID: tenantA, ExternalID: "7"}]
	assert.Equal(t, "Older", *stored.Title)
}

func TestReconciler_TenantIsolation(t *testing.T) {
	repo := newMemEntityRepo()
	r, _, _ := newTestReconciler(repo)
	ctx := context.Background()

	require.NoError(t, r.UpsertCustomer(ctx, tenantA, mustDecode(t, `{"id": 55, "email": "a@shop-a.com"}`), domain.SourceSync))
	require.NoError(t, r.UpsertCustomer(ctx, tenantB, mustDecode(t, `{"id": 55, "email": "b@shop-b.com"}`), domain.SourceSync))

	require.Len(t, repo.customers, 2)
	assert.Equal(t, "a@shop-a.com", *repo.customers[domain.EntityKey{TenantID: tenantA, ExternalID: "55"}].Email)
	assert.Equal(t, "b@shop-b.com", *repo.customers[domain.EntityKey{TenantID: tenantB, ExternalID: "55"}].Email)
}

func TestReconciler_Projection(t *testing.T) {
	ctx := context.Background()

	t.Run("null price stays absent", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		require.NoError(t, r.UpsertOrder(ctx, tenantA, mustDecode(t, `{"id": 1, "total_price": null}`), domain.SourceSync))
		assert.Nil(t, repo.orders[domain.EntityKey{TenantID: tenantA, ExternalID: "1"}].TotalPrice)
	})

	t.Run("empty price stays absent", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		require.NoError(t, r.UpsertCustomer(ctx, tenantA, mustDecode(t, `{"id": 1, "total_spent": ""}`), domain.SourceSync))
		assert.Nil(t, repo.customers[domain.EntityKey{TenantID: tenantA, ExternalID: "1"}].TotalSpent)
	})

	t.Run("large ids keep every digit", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		require.NoError(t, r.UpsertProduct(ctx, tenantA, mustDecode(t, `{"id": 9007199254740993}`), domain.SourceSync))
		_, ok := repo.products[domain.EntityKey{TenantID: tenantA, ExternalID: "9007199254740993"}]
		assert.True(t, ok)
	})

	t.Run("variant and line item counts", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		require.NoError(t, r.UpsertProduct(ctx, tenantA, mustDecode(t, `{"id": 2, "variants": [{}, {}, {}]}`), domain.SourceSync))
		require.NoError(t, r.UpsertAbandonedCheckout(ctx, tenantA, mustDecode(t, `{"id": 3, "line_items": [{}]}`), domain.SourceSchedule))

		assert.Equal(t, 3, repo.products[domain.EntityKey{TenantID: tenantA, ExternalID: "2"}].VariantCount)
		assert.Equal(t, 1, repo.checkouts[domain.EntityKey{TenantID: tenantA, ExternalID: "3"}].LineItemCount)
	})

	t.Run("checkout falls back to token", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		require.NoError(t, r.UpsertAbandonedCheckout(ctx, tenantA, mustDecode(t, `{"token": "abc123", "total_price": "5.00"}`), domain.SourceSchedule))
		stored, ok := repo.checkouts[domain.EntityKey{TenantID: tenantA, ExternalID: "abc123"}]
		require.True(t, ok)
		assert.Equal(t, domain.SourceSchedule, stored.Source)
	})
}

func TestReconciler_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id is malformed", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, metrics, publisher := newTestReconciler(repo)

		err := r.UpsertOrder(ctx, tenantA, mustDecode(t, `{"email": "x@example.com"}`), domain.SourceWebhook)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
		assert.Empty(t, repo.orders)
		assert.Empty(t, publisher.all())
		assert.Equal(t, 1, metrics.get("record:order:webhook:malformed"))
	})

	t.Run("bad price is malformed", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		err := r.UpsertOrder(ctx, tenantA, mustDecode(t, `{"id": 1, "total_price": "twelve"}`), domain.SourceSync)
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
		assert.Empty(t, repo.orders)
	})

	t.Run("bad timestamp is stored as null", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, metrics, _ := newTestReconciler(repo)

		payload := `{"id": 1, "title": "Mug", "created_at": "yesterday", "updated_at": "2025-03-02T00:00:00Z"}`
		require.NoError(t, r.UpsertProduct(ctx, tenantA, mustDecode(t, payload), domain.SourceSync))

		stored, ok := repo.products[domain.EntityKey{TenantID: tenantA, ExternalID: "1"}]
		require.True(t, ok)
		assert.Nil(t, stored.PlatformCreatedAt)
		require.NotNil(t, stored.PlatformUpdatedAt)
		assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), *stored.PlatformUpdatedAt)
		assert.Equal(t, "yesterday", stored.Raw["created_at"])
		assert.Equal(t, 1, metrics.get("record:product:sync:ok"))
	})

	t.Run("non-string timestamp is stored as null", func(t *testing.T) {
		repo := newMemEntityRepo()
		r, _, _ := newTestReconciler(repo)

		require.NoError(t, r.UpsertOrder(ctx, tenantA, mustDecode(t, `{"id": 2, "created_at": 1700000000}`), domain.SourceWebhook))
		assert.Nil(t, repo.orders[domain.EntityKey{TenantID: tenantA, ExternalID: "2"}].PlatformCreatedAt)
	})

	t.Run("constraint violation is record scoped", func(t *testing.T) {
		repo := newMemEntityRepo()
		repo.fail["9"] = fmt.Errorf("%w: duplicate key", domain.ErrStorageConstraintViolation)
		r, metrics, _ := newTestReconciler(repo)

		err := r.UpsertCustomer(ctx, tenantA, mustDecode(t, `{"id": 9}`), domain.SourceSync)
		assert.ErrorIs(t, err, domain.ErrStorageConstraintViolation)
		assert.True(t, domain.IsRecordScoped(err))
		assert.Equal(t, 1, metrics.get("record:customer:sync:constraint"))
	})

	t.Run("tenant id is required", func(t *testing.T) {
		r, _, _ := newTestReconciler(newMemEntityRepo())
		assert.Error(t, r.UpsertProduct(ctx, "", mustDecode(t, `{"id": 1}`), domain.SourceSync))
	})

	t.Run("unknown kind", func(t *testing.T) {
		r, _, _ := newTestReconciler(newMemEntityRepo())
		assert.Error(t, r.Reconcile(ctx, domain.EntityKind("refund"), tenantA, mustDecode(t, `{"id": 1}`), domain.SourceSync))
	})
}

func TestReconciler_PublishesReconciledRecords(t *testing.T) {
	r, _, publisher := newTestReconciler(newMemEntityRepo())

	require.NoError(t, r.Reconcile(context.Background(), domain.KindProduct, tenantA, mustDecode(t, `{"id": 42}`), domain.SourceWebhook))

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, tenantA, events[0].TenantID)
	assert.Equal(t, domain.KindProduct, events[0].Kind)
	assert.Equal(t, "42", events[0].ExternalID)
	assert.Equal(t, domain.SourceWebhook, events[0].Source)
}

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "object", input: `{"id": 1}`},
		{name: "invalid json", input: `{"id": `, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "array", input: `[1, 2]`, wantErr: true},
		{name: "string", input: `"hello"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrMalformedPayload)
				return
			}
			assert.NoError(t, err)
		})
	}
}
