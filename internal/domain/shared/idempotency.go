package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event keys to short-circuit duplicate
// webhook deliveries before they reach the database. The unique constraint
// on order_events.idempotency_key remains the authoritative guard; this
// store is a fast path only.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already known.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
