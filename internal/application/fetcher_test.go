package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTenant() *domain.Tenant {
	return &domain.Tenant{ID: tenantA, ShopDomain: "shop-a.myshopify.com", AccessToken: "tok", Active: true}
}

// customerPage renders ids as a customers listing body. A negative id renders as a record without one.
func customerPage(ids ...int) string {
	records := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < 0 {
			records = append(records, `{"email": "no-id@example.com"}`)
			continue
		}
		records = append(records, fmt.Sprintf(`{"id": %d, "email": "c%d@example.com"}`, id, id))
	}
	return `{"customers": [` + strings.Join(records, ",") + `]}`
}

func reconcileHandler(r *Reconciler, tenant *domain.Tenant, kind domain.EntityKind) RecordHandler {
	return func(ctx context.Context, record domain.RawDocument) error {
		return r.Reconcile(ctx, kind, tenant.ID, record, domain.SourceSync)
	}
}

func TestFetcher_FetchAll_FollowsNextLinks(t *testing.T) {
	client := new(MockShopifyClient)
	tenant := testTenant()

	client.On("ListingURL", tenant.ShopDomain, "customers", mock.MatchedBy(func(q url.Values) bool {
		return q.Get("limit") == "250"
	})).Return("p1")
	client.On("GetPage", mock.Anything, "tok", "p1").Return(page(customerPage(1, 2, 3), "p2"), nil).Once()
	client.On("GetPage", mock.Anything, "tok", "p2").Return(page(customerPage(4, -1, 5, 6), "p3"), nil).Once()
	client.On("GetPage", mock.Anything, "tok", "p3").Return(page(customerPage(7, 8, 9), ""), nil).Once()

	repo := newMemEntityRepo()
	reconciler := NewReconciler(repo, nil, nil, testLogger)
	metrics := newCountingMetrics()
	fetcher := NewFetcher(client, metrics, testLogger)

	summary := fetcher.FetchAll(context.Background(), tenant, domain.KindCustomer, reconcileHandler(reconciler, tenant, domain.KindCustomer), FetchOptions{})

	client.AssertExpectations(t)
	assert.Equal(t, domain.FetchSummary{
		Kind:           domain.KindCustomer,
		ProcessedCount: 10,
		FailedCount:    1,
		Pages:          3,
	}, summary)
	assert.True(t, summary.Succeeded())
	assert.Len(t, repo.customers, 9)
	assert.Equal(t, 3, metrics.get("page:customer:ok"))
	assert.Equal(t, 1, metrics.get("duration:customer"))
}

func TestFetcher_FetchAll_OrdersIncludeEveryStatus(t *testing.T) {
	client := new(MockShopifyClient)
	tenant := testTenant()

	client.On("ListingURL", tenant.ShopDomain, "orders", mock.MatchedBy(func(q url.Values) bool {
		return q.Get("status") == "any" && q.Get("limit") == "250"
	})).Return("orders-1")
	client.On("GetPage", mock.Anything, "tok", "orders-1").Return(page(`{"orders": []}`, ""), nil)

	fetcher := NewFetcher(client, nil, testLogger)
	summary := fetcher.FetchAll(context.Background(), tenant, domain.KindOrder, func(context.Context, domain.RawDocument) error { return nil }, FetchOptions{})

	client.AssertExpectations(t)
	assert.False(t, summary.StoppedEarly)
	assert.Equal(t, 1, summary.Pages)
	assert.Zero(t, summary.ProcessedCount)
}

func TestFetcher_FetchAll_StopsOnUpstreamFailure(t *testing.T) {
	tests := []struct {
		name string
		resp *ports.PageResponse
		err  error
	}{
		{name: "transport error", err: errors.New("connection reset")},
		{name: "server error", resp: &ports.PageResponse{StatusCode: 500, Body: []byte(`{"errors":"boom"}`)}},
		{name: "unauthorized", resp: &ports.PageResponse{StatusCode: 401, Body: []byte(`{"errors":"invalid token"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockShopifyClient)
			tenant := testTenant()

			client.On("ListingURL", tenant.ShopDomain, "customers", mock.Anything).Return("p1")
			client.On("GetPage", mock.Anything, "tok", "p1").Return(page(customerPage(1, 2, 3), "p2"), nil)
			client.On("GetPage", mock.Anything, "tok", "p2").Return(tt.resp, tt.err)

			handled := 0
			metrics := newCountingMetrics()
			fetcher := NewFetcher(client, metrics, testLogger)
			summary := fetcher.FetchAll(context.Background(), tenant, domain.KindCustomer, func(context.Context, domain.RawDocument) error {
				handled++
				return nil
			}, FetchOptions{})

			assert.True(t, summary.StoppedEarly)
			assert.False(t, summary.Succeeded())
			assert.Contains(t, summary.Error, domain.ErrUpstreamRequestFailed.Error())
			assert.Equal(t, 1, summary.Pages)
			assert.Equal(t, 3, summary.ProcessedCount)
			assert.Equal(t, 3, handled)
			assert.Equal(t, 1, metrics.get("page:customer:error"))
		})
	}
}

func TestFetcher_FetchAll_PageShapes(t *testing.T) {
	t.Run("falls back to the first array field", func(t *testing.T) {
		client := new(MockShopifyClient)
		tenant := testTenant()
		client.On("ListingURL", tenant.ShopDomain, "products", mock.Anything).Return("p1")
		client.On("GetPage", mock.Anything, "tok", "p1").Return(page(`{"items": [{"id": 1}, {"id": 2}], "meta": {"count": 2}}`, ""), nil)

		var ids []any
		fetcher := NewFetcher(client, nil, testLogger)
		summary := fetcher.FetchAll(context.Background(), tenant, domain.KindProduct, func(_ context.Context, rec domain.RawDocument) error {
			ids = append(ids, rec["id"])
			return nil
		}, FetchOptions{})

		assert.False(t, summary.StoppedEarly)
		assert.Equal(t, 2, summary.ProcessedCount)
		assert.Len(t, ids, 2)
	})

	t.Run("stops when no records array", func(t *testing.T) {
		client := new(MockShopifyClient)
		tenant := testTenant()
		client.On("ListingURL", tenant.ShopDomain, "products", mock.Anything).Return("p1")
		client.On("GetPage", mock.Anything, "tok", "p1").Return(page(`{"errors": "Not Found"}`, "p2"), nil)

		metrics := newCountingMetrics()
		fetcher := NewFetcher(client, metrics, testLogger)
		summary := fetcher.FetchAll(context.Background(), tenant, domain.KindProduct, func(context.Context, domain.RawDocument) error { return nil }, FetchOptions{})

		client.AssertNotCalled(t, "GetPage", mock.Anything, "tok", "p2")
		assert.True(t, summary.StoppedEarly)
		assert.Equal(t, 1, metrics.get("page:product:no_records"))
	})

	t.Run("stops on an undecodable page", func(t *testing.T) {
		client := new(MockShopifyClient)
		tenant := testTenant()
		client.On("ListingURL", tenant.ShopDomain, "products", mock.Anything).Return("p1")
		client.On("GetPage", mock.Anything, "tok", "p1").Return(page(`<html>`, ""), nil)

		fetcher := NewFetcher(client, nil, testLogger)
		summary := fetcher.FetchAll(context.Background(), tenant, domain.KindProduct, func(context.Context, domain.RawDocument) error { return nil }, FetchOptions{})

		assert.True(t, summary.StoppedEarly)
		assert.NotEmpty(t, summary.Error)
	})
}

func TestFetcher_FetchAll_MaxPages(t *testing.T) {
	client := new(MockShopifyClient)
	tenant := testTenant()

	client.On("ListingURL", tenant.ShopDomain, "checkouts", mock.Anything).Return("c1")
	client.On("GetPage", mock.Anything, "tok", "c1").Return(page(`{"checkouts": [{"id": 1}, {"token": "t2"}]}`, "c2"), nil).Once()

	fetcher := NewFetcher(client, nil, testLogger)
	summary := fetcher.FetchAll(context.Background(), tenant, domain.KindAbandonedCheckout, func(context.Context, domain.RawDocument) error { return nil }, FetchOptions{MaxPages: 1})

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "GetPage", mock.Anything, "tok", "c2")
	assert.False(t, summary.StoppedEarly)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.ProcessedCount)
}

func TestFetcher_FetchAll_CancelledContext(t *testing.T) {
	client := new(MockShopifyClient)
	tenant := testTenant()
	client.On("ListingURL", tenant.ShopDomain, "customers", mock.Anything).Return("p1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(client, nil, testLogger)
	summary := fetcher.FetchAll(ctx, tenant, domain.KindCustomer, func(context.Context, domain.RawDocument) error { return nil }, FetchOptions{})

	client.AssertNotCalled(t, "GetPage", mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, summary.StoppedEarly)
	assert.Zero(t, summary.Pages)
}

func TestFetcher_FetchAll_UnknownKind(t *testing.T) {
	client := new(MockShopifyClient)
	fetcher := NewFetcher(client, nil, testLogger)

	summary := fetcher.FetchAll(context.Background(), testTenant(), domain.EntityKind("refund"), nil, FetchOptions{})

	require.True(t, summary.StoppedEarly)
	client.AssertNotCalled(t, "ListingURL", mock.Anything, mock.Anything, mock.Anything)
}
