// Package cache provides the webhook idempotency fast path. The stores
// here are advisory: they short-circuit obvious duplicates cheaply, while
// the order_events unique index remains the durable guarantee.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ngs/omnihub/internal/domain/shared"
)

// InMemoryIdempotencyStore keeps processed keys in process memory. Suitable
// for a single webhook instance; multi-instance deployments should use the
// Redis store.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	stop    chan struct{}
	once    sync.Once
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// NewInMemoryIdempotencyStore creates the store and starts its expiry sweep
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkProcessed marks a key as processed. Returns true if the key was not
// already marked.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiry, ok := s.entries[key]; ok && expiry.After(now) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether a key is marked and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[key]
	return ok && expiry.After(time.Now()), nil
}

// Close stops the expiry sweep
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *InMemoryIdempotencyStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, expiry := range s.entries {
				if expiry.Before(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
