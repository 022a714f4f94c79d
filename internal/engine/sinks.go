package engine

import (
	"context"
	"time"

	rediscache "github.com/quantpair/statarb/internal/cache/redis"
	"go.uber.org/zap"
)

// RedisSink adapts the Redis cache to the SnapshotSink interface. Publish
// failures are logged and dropped so a Redis outage never blocks the
// evaluation loop.
type RedisSink struct {
	cache   *rediscache.Cache
	logger  *zap.Logger
	timeout time.Duration
}

// NewRedisSink wraps a Redis cache as a snapshot sink.
func NewRedisSink(cache *rediscache.Cache, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		cache:   cache,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// Put publishes a snapshot to Redis.
func (s *RedisSink) Put(pair, metric string, value interface{}, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.cache.Put(ctx, pair, metric, value, ttl); err != nil {
		s.logger.Warn("redis snapshot publish failed",
			zap.String("pair", pair),
			zap.String("metric", metric),
			zap.Error(err))
	}
}
