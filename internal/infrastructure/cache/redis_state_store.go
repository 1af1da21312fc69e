package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const defaultStatePrefix = "oauth:state:"

// RedisStateStore keeps issued OAuth states in Redis until they are redeemed or expire
type RedisStateStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateStore creates a state store with an existing Redis client
func NewRedisStateStore(client *redis.Client, keyPrefix string) *RedisStateStore {
	if keyPrefix == "" {
		keyPrefix = defaultStatePrefix
	}
	return &RedisStateStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Save stores the state with a TTL
func (s *RedisStateStore) Save(ctx context.Context, state *domain.InstallState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+state.State, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the state so it can be redeemed once
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*domain.InstallState, error) {
	data, err := s.client.GetDel(ctx, s.keyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}

	var issued domain.InstallState
	if err := json.Unmarshal(data, &issued); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if issued.Expired(time.Now()) {
		return nil, nil
	}
	return &issued, nil
}

var _ ports.StateStore = (*RedisStateStore)(nil)
