package cache

import (
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/config"
)

// NewIdempotencyStore picks the idempotency fast-path backend from config.
// Redis failures degrade to the in-memory store with a warning rather than
// refusing to start: the database unique constraint still guards
// correctness, only cross-instance fast-path sharing is lost.
func NewIdempotencyStore(cfg config.RedisConfig, log *zap.Logger) shared.IdempotencyStore {
	if !cfg.Enabled {
		return NewInMemoryIdempotencyStore()
	}
	store, err := NewRedisIdempotencyStore(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		log.Warn("redis unavailable, falling back to in-memory idempotency store",
			zap.String("addr", cfg.Addr),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore()
	}
	log.Info("using redis idempotency store", zap.String("addr", cfg.Addr))
	return store
}
