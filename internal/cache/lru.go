package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

// LRUCache is the L1 layer: bounded in-memory cache with LRU eviction on
// overflow and lazy TTL expiry on read. A single mutex guards both the map and
// the recency list; critical sections are a map lookup plus a move-to-front.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List // front = most recently used

	hits   uint64
	misses uint64

	now func() time.Time
}

type lruEntry struct {
	key      string
	entry    models.ForecastCacheEntry
	storedAt time.Time
}

// LRUStats is a point-in-time snapshot of L1 counters.
type LRUStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// NewLRUCache builds an L1 cache bounded by maxSize entries and ttl per entry.
func NewLRUCache(maxSize int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the cached entry for (location, at) if present and fresh.
// Expired entries are removed on access.
func (c *LRUCache) Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool, error) {
	key := Key(location, at)
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return models.ForecastCacheEntry{}, false, nil
	}
	ent := el.Value.(*lruEntry)
	if c.ttl > 0 && c.now().Sub(ent.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return models.ForecastCacheEntry{}, false, nil
	}
	c.order.MoveToFront(el)
	c.hits++
	observability.ForecastCacheHitsTotal.WithLabelValues("l1").Inc()
	return ent.entry, true, nil
}

// Set stores the entry, evicting the least recently used entry on overflow.
func (c *LRUCache) Set(ctx context.Context, entry models.ForecastCacheEntry) error {
	key := Key(entry.Forecast.LocationName, entry.Forecast.Timestamp)
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*lruEntry)
		ent.entry = entry
		ent.storedAt = c.now()
		c.order.MoveToFront(el)
		return nil
	}
	el := c.order.PushFront(&lruEntry{key: key, entry: entry, storedAt: c.now()})
	c.items[key] = el
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
	return nil
}

// Stats returns the current hit/miss counters.
func (c *LRUCache) Stats() LRUStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return LRUStats{Hits: c.hits, Misses: c.misses, Size: c.order.Len(), HitRate: rate}
}

// Len returns the number of live entries, including any not yet lazily expired.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
