// Package rediscache mirrors analytics snapshots and tick buffers into
// Redis so dashboards and other processes can read the live engine state.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantpair/statarb/internal/config"
	"github.com/quantpair/statarb/internal/models"
	"github.com/redis/go-redis/v9"
)

const tickBufferLen = 1000

// Cache wraps a Redis client with the engine's key conventions.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: failed to connect to %s: %w", cfg.Addr, err)
	}
	return &Cache{client: client}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func analyticsKey(pair, metric string) string {
	return fmt.Sprintf("analytics:%s:%s", pair, metric)
}

func tickBufferKey(symbol string) string {
	return fmt.Sprintf("ticks:%s:buffer", symbol)
}

type snapshot struct {
	Value     interface{} `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// Put stores an analytics snapshot as JSON with the given TTL.
func (c *Cache) Put(ctx context.Context, pair, metric string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot{Value: value, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("redis: failed to marshal %s snapshot: %w", metric, err)
	}
	if err := c.client.SetEx(ctx, analyticsKey(pair, metric), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to cache %s: %w", metric, err)
	}
	return nil
}

// Get reads a snapshot back. The second return is false on a miss.
func (c *Cache) Get(ctx context.Context, pair, metric string) (json.RawMessage, bool, error) {
	data, err := c.client.Get(ctx, analyticsKey(pair, metric)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: failed to read %s: %w", metric, err)
	}
	return data, true, nil
}

// PushTick appends a tick to the symbol's ring buffer, trims the buffer to
// its capacity and refreshes the key expiry.
func (c *Cache) PushTick(ctx context.Context, tick models.Tick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal tick: %w", err)
	}
	key := tickBufferKey(tick.Symbol)
	pipe := c.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -tickBufferLen, -1)
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to buffer tick for %s: %w", tick.Symbol, err)
	}
	return nil
}

// RecentTicks reads up to n most recent ticks for a symbol, oldest first.
func (c *Cache) RecentTicks(ctx context.Context, symbol string, n int) ([]models.Tick, error) {
	raw, err := c.client.LRange(ctx, tickBufferKey(symbol), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read tick buffer for %s: %w", symbol, err)
	}
	ticks := make([]models.Tick, 0, len(raw))
	for _, item := range raw {
		var t models.Tick
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

// Ping reports connection health.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
