package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var testLogger = zerolog.Nop()

// MockShopifyClient is a mock implementation of ports.ShopifyClient
type MockShopifyClient struct {
	mock.Mock
}

func (m *MockShopifyClient) AuthorizeURL(shop string, scopes []string, redirectURI string, state string) string {
	args := m.Called(shop, scopes, redirectURI, state)
	return args.String(0)
}

func (m *MockShopifyClient) VerifyCallback(query url.Values) (bool, error) {
	args := m.Called(query)
	return args.Bool(0), args.Error(1)
}

func (m *MockShopifyClient) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	args := m.Called(ctx, shop, code)
	return args.String(0), args.Error(1)
}

func (m *MockShopifyClient) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error {
	args := m.Called(ctx, shop, accessToken, topic, address)
	return args.Error(0)
}

func (m *MockShopifyClient) ListingURL(shop string, resource string, query url.Values) string {
	args := m.Called(shop, resource, query)
	return args.String(0)
}

func (m *MockShopifyClient) GetPage(ctx context.Context, accessToken string, pageURL string) (*ports.PageResponse, error) {
	args := m.Called(ctx, accessToken, pageURL)
	resp, _ := args.Get(0).(*ports.PageResponse)
	return resp, args.Error(1)
}

// page builds a 200 listing page; next is the following page url or ""
func page(body string, next string) *ports.PageResponse {
	resp := &ports.PageResponse{StatusCode: 200, Body: []byte(body)}
	if next != "" {
		resp.Link = fmt.Sprintf(`<%s>; rel="next"`, next)
	}
	return resp
}

// memEntityRepo mimics the storage upsert: keyed by (tenant, external id), first-seen kept on overwrite
type memEntityRepo struct {
	mu        sync.Mutex
	products  map[domain.EntityKey]domain.Product
	customers map[domain.EntityKey]domain.Customer
	orders    map[domain.EntityKey]domain.Order
	checkouts map[domain.EntityKey]domain.AbandonedCheckout
	// fail forces every upsert for these external ids to return the error
	fail map[string]error
}

func newMemEntityRepo() *memEntityRepo {
	return &memEntityRepo{
		products:  make(map[domain.EntityKey]domain.Product),
		customers: make(map[domain.EntityKey]domain.Customer),
		orders:    make(map[domain.EntityKey]domain.Order),
		checkouts: make(map[domain.EntityKey]domain.AbandonedCheckout),
		fail:      make(map[string]error),
	}
}

func (r *memEntityRepo) failFor(meta domain.RecordMeta) error {
	return r.fail[meta.ExternalID]
}

func (r *memEntityRepo) UpsertProduct(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor(p.RecordMeta); err != nil {
		return err
	}
	stored := *p
	if prev, ok := r.products[p.Key()]; ok {
		stored.FirstSeenAt = prev.FirstSeenAt
	}
	r.products[p.Key()] = stored
	return nil
}

func (r *memEntityRepo) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor(c.RecordMeta); err != nil {
		return err
	}
	stored := *c
	if prev, ok := r.customers[c.Key()]; ok {
		stored.FirstSeenAt = prev.FirstSeenAt
	}
	r.customers[c.Key()] = stored
	return nil
}

func (r *memEntityRepo) UpsertOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor(o.RecordMeta); err != nil {
		return err
	}
	stored := *o
	if prev, ok := r.orders[o.Key()]; ok {
		stored.FirstSeenAt = prev.FirstSeenAt
	}
	r.orders[o.Key()] = stored
	return nil
}

func (r *memEntityRepo) UpsertAbandonedCheckout(ctx context.Context, c *domain.AbandonedCheckout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor(c.RecordMeta); err != nil {
		return err
	}
	stored := *c
	if prev, ok := r.checkouts[c.Key()]; ok {
		stored.FirstSeenAt = prev.FirstSeenAt
	}
	r.checkouts[c.Key()] = stored
	return nil
}

// memTenantRepo keys tenants by shop domain and hands out 24-hex ids
type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	seq     int
	listErr error
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[string]*domain.Tenant)}
}

func (r *memTenantRepo) UpsertByShop(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *tenant
	for _, t := range r.tenants {
		if t.ShopDomain == tenant.ShopDomain {
			stored.ID = t.ID
			stored.CreatedAt = t.CreatedAt
			r.tenants[t.ID] = &stored
			out := stored
			return &out, nil
		}
	}
	r.seq++
	stored.ID = fmt.Sprintf("%024x", r.seq)
	stored.CreatedAt = tenant.UpdatedAt
	r.tenants[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (r *memTenantRepo) GetByShop(ctx context.Context, shop string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.ShopDomain == shop {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memTenantRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.Tenant
	for _, t := range r.tenants {
		if activeOnly && !t.Active {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTenantRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.Active = active
	return nil
}

// prefixEncryption marks ciphertext with a prefix so tests can tell what was stored
type prefixEncryption struct{}

func (prefixEncryption) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (prefixEncryption) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// countingMetrics records every observation as "name:label:label"
type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) inc(key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *countingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *countingMetrics) WebhookReceived(topic string, outcome string) {
	m.inc("webhook:" + domain.TopicFamily(topic) + ":" + outcome)
}

func (m *countingMetrics) RecordReconciled(kind domain.EntityKind, source domain.Source, outcome string) {
	m.inc("record:" + string(kind) + ":" + string(source) + ":" + outcome)
}

func (m *countingMetrics) PageFetched(kind domain.EntityKind, outcome string) {
	m.inc("page:" + string(kind) + ":" + outcome)
}

func (m *countingMetrics) SchedulerRun(outcome string) {
	m.inc("scheduler:" + outcome)
}

func (m *countingMetrics) SyncDuration(kind domain.EntityKind, d time.Duration) {
	m.inc("duration:" + string(kind))
}

// recordingPublisher keeps published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.IngestEvent
}

func (p *recordingPublisher) Publish(event *domain.IngestEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) all() []*domain.IngestEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.IngestEvent(nil), p.events...)
}

// memWebhookLog appends every logged event
type memWebhookLog struct {
	mu     sync.Mutex
	events []domain.WebhookEvent
	err    error
}

func (l *memWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, *event)
	return nil
}

func (l *memWebhookLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// stubMetricsRepo returns canned aggregates and remembers the last call
type stubMetricsRepo struct {
	summary   *domain.MetricsSummary
	days      []domain.DailyRevenue
	customers []domain.CustomerSpend
	overview  *domain.ProductOverview
	err       error

	lastLimit  int
	lastWindow domain.DateRange
	calls      int
}

func (r *stubMetricsRepo) Summary(ctx context.Context, tenantID string, window domain.DateRange) (*domain.MetricsSummary, error) {
	r.calls++
	r.lastWindow = window
	return r.summary, r.err
}

func (r *stubMetricsRepo) OrdersByDate(ctx context.Context, tenantID string, window domain.DateRange) ([]domain.DailyRevenue, error) {
	r.calls++
	r.lastWindow = window
	return r.days, r.err
}

func (r *stubMetricsRepo) TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.CustomerSpend, error) {
	r.calls++
	r.lastLimit = limit
	return r.customers, r.err
}

func (r *stubMetricsRepo) Products(ctx context.Context, tenantID string, limit int) (*domain.ProductOverview, error) {
	r.calls++
	r.lastLimit = limit
	return r.overview, r.err
}

var (
	_ ports.ShopifyClient        = (*MockShopifyClient)(nil)
	_ ports.EntityRepository     = (*memEntityRepo)(nil)
	_ ports.TenantRepository     = (*memTenantRepo)(nil)
	_ ports.EncryptionService    = prefixEncryption{}
	_ ports.IngestMetrics        = (*countingMetrics)(nil)
	_ ports.EventPublisher       = (*recordingPublisher)(nil)
	_ ports.WebhookLogRepository = (*memWebhookLog)(nil)
	_ ports.MetricsRepository    = (*stubMetricsRepo)(nil)
)
