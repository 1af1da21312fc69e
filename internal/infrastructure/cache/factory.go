package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-ingestion-service/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Stores bundles the short-lived key stores used by the install and webhook paths
type Stores struct {
	States      ports.StateStore
	Idempotency ports.IdempotencyStore
	closers     []func() error
}

// Close releases the Redis client or stops in-memory cleanup goroutines
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreFactory creates the state and idempotency stores
type StoreFactory struct {
	redisURL              string
	logger                zerolog.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory. An empty redisURL selects the in-memory stores.
func NewStoreFactory(redisURL string, logger zerolog.Logger, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisURL:              redisURL,
		logger:                logger,
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStores tries Redis first and falls back to in-memory stores if allowed
func (f *StoreFactory) CreateStores(ctx context.Context) (*Stores, error) {
	if f.redisURL != "" {
		stores, err := f.createRedisStores(ctx)
		if err == nil {
			f.logger.Info().Msg("Using Redis state and idempotency stores")
			return stores, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn().
			Err(err).
			Msg("Redis unavailable, falling back to in-memory stores. Installs and webhook dedupe will not be shared across instances.")
	}
	return f.CreateInMemoryStores(), nil
}

func (f *StoreFactory) createRedisStores(ctx context.Context) (*Stores, error) {
	opts, err := redis.ParseURL(f.redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Stores{
		States:      NewRedisStateStore(client, ""),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		closers:     []func() error{client.Close},
	}, nil
}

// CreateInMemoryStores creates process-local stores
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	states := NewInMemoryStateStore()
	idempotency := NewInMemoryIdempotencyStore()
	return &Stores{
		States:      states,
		Idempotency: idempotency,
		closers:     []func() error{states.Close, idempotency.Close},
	}
}
