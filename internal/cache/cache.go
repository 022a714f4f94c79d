package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache provides fast in-memory storage for per-pair analytics snapshots.
// Each metric carries its own TTL so fast-moving values (z-score, PnL)
// expire quicker than slow ones (hedge ratio, correlation).
type Cache struct {
	metrics    *gocache.Cache
	defaultTTL time.Duration
}

// Snapshot is a cached metric value with its computation time.
type Snapshot struct {
	Value     interface{} `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// New creates a cache instance with the given default TTL.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		metrics:    gocache.New(defaultTTL, defaultTTL*2),
		defaultTTL: defaultTTL,
	}
}

func key(pair, metric string) string {
	return pair + ":" + metric
}

// Put caches a metric snapshot for a pair with an explicit TTL. A zero ttl
// uses the cache default.
func (c *Cache) Put(pair, metric string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.metrics.Set(key(pair, metric), Snapshot{Value: value, Timestamp: time.Now()}, ttl)
}

// Get retrieves a cached metric snapshot for a pair.
func (c *Cache) Get(pair, metric string) (Snapshot, bool) {
	if val, found := c.metrics.Get(key(pair, metric)); found {
		if snap, ok := val.(Snapshot); ok {
			return snap, true
		}
	}
	return Snapshot{}, false
}

// Clear removes all cached data.
func (c *Cache) Clear() {
	c.metrics.Flush()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{ItemCount: c.metrics.ItemCount()}
}
