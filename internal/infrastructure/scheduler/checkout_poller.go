package scheduler

import (
	"context"
	"sync"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultInterval is the abandoned checkout re-poll period
const DefaultInterval = 15 * time.Minute

// TenantProvider lists the tenants to poll, with decrypted credentials
type TenantProvider interface {
	ListActive(ctx context.Context) ([]*domain.Tenant, error)
}

// CheckoutPoller fetches one tenant's abandoned checkouts
type CheckoutPoller interface {
	PollAbandonedCheckouts(ctx context.Context, tenant *domain.Tenant) domain.FetchSummary
}

// Config holds configuration for the checkout poll trigger
type Config struct {
	Interval time.Duration
	// TenantTimeout bounds one tenant's poll so a hung call cannot hold the tick forever
	TenantTimeout time.Duration
}

// DefaultConfig returns the production configuration
func DefaultConfig() Config {
	return Config{
		Interval:      DefaultInterval,
		TenantTimeout: 2 * time.Minute,
	}
}

// RunResult summarises one tick
type RunResult struct {
	Tenants int
	Failed  int
}

// CheckoutTrigger re-polls abandoned checkouts for every active tenant on a fixed interval.
// Each tick runs on its own goroutine, so a slow run never delays the next tick.
type CheckoutTrigger struct {
	config  Config
	tenants TenantProvider
	poller  CheckoutPoller
	metrics ports.IngestMetrics
	logger  zerolog.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCheckoutTrigger creates a new checkout poll trigger. metrics may be nil.
func NewCheckoutTrigger(config Config, tenants TenantProvider, poller CheckoutPoller, metrics ports.IngestMetrics, logger zerolog.Logger) *CheckoutTrigger {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &CheckoutTrigger{
		config:  config,
		tenants: tenants,
		poller:  poller,
		metrics: metrics,
		logger:  logger,
	}
}

// Start starts the ticker loop
func (c *CheckoutTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info().
		Dur("interval", c.config.Interval).
		Msg("Abandoned checkout poll started")

	return nil
}

// Stop cancels the loop and waits for in-flight ticks, or for ctx to end
func (c *CheckoutTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info().Msg("Abandoned checkout poll stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CheckoutTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.RunOnce(ctx)
			}()
		}
	}
}

// RunOnce polls every active tenant in turn. A failure or panic for one tenant is logged
// and the next tenant still runs.
func (c *CheckoutTrigger) RunOnce(ctx context.Context) RunResult {
	var result RunResult

	tenants, err := c.tenants.ListActive(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list tenants for checkout poll")
		c.metrics.SchedulerRun("list_failed")
		return result
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			break
		}
		result.Tenants++
		if !c.pollTenant(ctx, tenant) {
			result.Failed++
		}
	}

	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial"
	}
	c.metrics.SchedulerRun(outcome)
	c.logger.Info().
		Int("tenants", result.Tenants).
		Int("failed", result.Failed).
		Msg("Abandoned checkout poll finished")
	return result
}

func (c *CheckoutTrigger) pollTenant(ctx context.Context, tenant *domain.Tenant) (ok bool) {
	log := c.logger.With().Str("tenantId", tenant.ID).Str("shop", tenant.ShopDomain).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Checkout poll panicked")
			ok = false
		}
	}()

	if c.config.TenantTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.TenantTimeout)
		defer cancel()
	}

	summary := c.poller.PollAbandonedCheckouts(ctx, tenant)
	if summary.StoppedEarly {
		log.Warn().Str("error", summary.Error).Msg("Checkout poll stopped early")
		return false
	}
	return true
}
