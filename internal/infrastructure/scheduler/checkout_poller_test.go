package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTenants struct {
	tenants []*domain.Tenant
	err     error
}

func (s *staticTenants) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenants, s.err
}

// scriptedPoller returns a summary per shop; a shop listed in panics panics instead
type scriptedPoller struct {
	mu      sync.Mutex
	polled  []string
	failing map[string]bool
	panics  map[string]bool
}

func (p *scriptedPoller) PollAbandonedCheckouts(ctx context.Context, tenant *domain.Tenant) domain.FetchSummary {
	p.mu.Lock()
	p.polled = append(p.polled, tenant.ShopDomain)
	p.mu.Unlock()

	if p.panics[tenant.ShopDomain] {
		panic("poll exploded")
	}
	if p.failing[tenant.ShopDomain] {
		return domain.FetchSummary{Kind: domain.KindAbandonedCheckout, StoppedEarly: true, Error: "upstream request failed"}
	}
	return domain.FetchSummary{Kind: domain.KindAbandonedCheckout, Pages: 1}
}

func (p *scriptedPoller) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.polled...)
}

type runCounter struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *runCounter) WebhookReceived(string, string)                            {}
func (r *runCounter) RecordReconciled(domain.EntityKind, domain.Source, string) {}
func (r *runCounter) PageFetched(domain.EntityKind, string)                     {}
func (r *runCounter) SyncDuration(domain.EntityKind, time.Duration)             {}
func (r *runCounter) SchedulerRun(outcome string) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func tenants(shops ...string) *staticTenants {
	out := &staticTenants{}
	for _, shop := range shops {
		out.tenants = append(out.tenants, &domain.Tenant{ID: shop, ShopDomain: shop, Active: true})
	}
	return out
}

func TestCheckoutTrigger_RunOnce(t *testing.T) {
	t.Run("every tenant is polled", func(t *testing.T) {
		poller := &scriptedPoller{}
		metrics := &runCounter{}
		trigger := NewCheckoutTrigger(DefaultConfig(), tenants("a", "b", "c"), poller, metrics, zerolog.Nop())

		result := trigger.RunOnce(context.Background())

		assert.Equal(t, RunResult{Tenants: 3}, result)
		assert.Equal(t, []string{"a", "b", "c"}, poller.calls())
		assert.Equal(t, []string{"ok"}, metrics.outcomes)
	})

	t.Run("failures and panics are isolated", func(t *testing.T) {
		poller := &scriptedPoller{
			failing: map[string]bool{"a": true},
			panics:  map[string]bool{"b": true},
		}
		metrics := &runCounter{}
		trigger := NewCheckoutTrigger(DefaultConfig(), tenants("a", "b", "c"), poller, metrics, zerolog.Nop())

		result := trigger.RunOnce(context.Background())

		assert.Equal(t, RunResult{Tenants: 3, Failed: 2}, result)
		assert.Equal(t, []string{"a", "b", "c"}, poller.calls())
		assert.Equal(t, []string{"partial"}, metrics.outcomes)
	})

	t.Run("listing failure", func(t *testing.T) {
		poller := &scriptedPoller{}
		metrics := &runCounter{}
		trigger := NewCheckoutTrigger(DefaultConfig(), &staticTenants{err: errors.New("mongo down")}, poller, metrics, zerolog.Nop())

		result := trigger.RunOnce(context.Background())

		assert.Zero(t, result.Tenants)
		assert.Empty(t, poller.calls())
		assert.Equal(t, []string{"list_failed"}, metrics.outcomes)
	})

	t.Run("no tenants", func(t *testing.T) {
		trigger := NewCheckoutTrigger(DefaultConfig(), tenants(), &scriptedPoller{}, nil, zerolog.Nop())
		assert.Equal(t, RunResult{}, trigger.RunOnce(context.Background()))
	})
}

func TestCheckoutTrigger_StartStop(t *testing.T) {
	poller := &scriptedPoller{}
	trigger := NewCheckoutTrigger(Config{Interval: 10 * time.Millisecond}, tenants("a"), poller, nil, zerolog.Nop())

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(poller.calls()) >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(ctx))
	require.NoError(t, trigger.Stop(ctx))

	after := len(poller.calls())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, len(poller.calls()))
}
