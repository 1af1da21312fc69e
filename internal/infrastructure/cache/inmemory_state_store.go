package cache

import (
	"context"
	"sync"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"
)

// InMemoryStateStore keeps issued OAuth states in process memory.
// An install must complete on the instance that started it.
type InMemoryStateStore struct {
	mu        sync.Mutex
	states    map[string]domain.InstallState
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	now       func() time.Time
}

// NewInMemoryStateStore creates a new in-memory state store
func NewInMemoryStateStore() *InMemoryStateStore {
	store := &InMemoryStateStore{
		states:   make(map[string]domain.InstallState),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}

	store.wg.Add(1)
	go runCleanup(&store.wg, store.stopChan, store.cleanup)

	return store
}

// Save stores a copy of the state. ttl overrides the state's own expiry when positive.
func (s *InMemoryStateStore) Save(ctx context.Context, state *domain.InstallState, ttl time.Duration) error {
	stored := *state
	if ttl > 0 {
		stored.ExpiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.states[state.State] = stored
	s.mu.Unlock()
	return nil
}

// Consume removes and returns the state, or nil if it is unknown or expired
func (s *InMemoryStateStore) Consume(ctx context.Context, state string) (*domain.InstallState, error) {
	s.mu.Lock()
	issued, ok := s.states[state]
	delete(s.states, state)
	s.mu.Unlock()

	if !ok || issued.Expired(s.now()) {
		return nil, nil
	}
	return &issued, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryStateStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryStateStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, st := range s.states {
		if st.Expired(now) {
			delete(s.states, key)
		}
	}
}

var _ ports.StateStore = (*InMemoryStateStore)(nil)
