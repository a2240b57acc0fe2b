package cache

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

// LayeredCache is the facade over L1 (LRU), the optional shared store, L2
// (spatial) and L3 (disk). Writes propagate through all layers; reads fall
// through in order and promote hits into L1. The cache is advisory: layer
// failures are logged as warnings and never fail the caller.
type LayeredCache struct {
	l1     *LRUCache
	shared Store // nil unless memcached is enabled
	l2     *SpatialCache
	l3     *DiskLog
	logger *zap.Logger
}

// NewLayeredCache assembles the cache stack. shared may be nil.
func NewLayeredCache(l1 *LRUCache, shared Store, l2 *SpatialCache, l3 *DiskLog, logger *zap.Logger) *LayeredCache {
	return &LayeredCache{l1: l1, shared: shared, l2: l2, l3: l3, logger: logger}
}

// RegisterLocation makes a location eligible for L2 neighbor lookups.
func (c *LayeredCache) RegisterLocation(coord models.LocationCoordinate) {
	c.l2.RegisterLocation(coord)
}

// Get reads through the layers. A hit below L1 is promoted into L1.
func (c *LayeredCache) Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool) {
	if ent, ok, err := c.l1.Get(ctx, location, at); err == nil && ok {
		return ent, true
	}

	if c.shared != nil {
		ent, ok, err := c.shared.Get(ctx, location, at)
		if err != nil {
			c.warn("shared cache get failed", location, err)
		} else if ok {
			c.promote(ctx, ent)
			return ent, true
		}
	}

	if ent, ok, err := c.l2.Get(ctx, location, at); err == nil && ok {
		c.promote(ctx, ent)
		return ent, true
	}

	ent, ok, err := c.l3.Get(ctx, location, at)
	if err != nil {
		c.warn("disk cache read failed", location, err)
	} else if ok {
		c.promote(ctx, ent)
		return ent, true
	}

	observability.ForecastCacheMissesTotal.Inc()
	return models.ForecastCacheEntry{}, false
}

// Save stores a forecast through every layer, stamping cached_at with now.
func (c *LayeredCache) Save(ctx context.Context, f models.Forecast) {
	entry := models.ForecastCacheEntry{
		Forecast: f,
		CachedAt: time.Now().In(models.JST),
	}
	if err := c.l1.Set(ctx, entry); err != nil {
		c.warn("l1 set failed", f.LocationName, err)
	}
	if c.shared != nil {
		if err := c.shared.Set(ctx, entry); err != nil {
			c.warn("shared cache set failed", f.LocationName, err)
		}
	}
	if err := c.l2.Set(ctx, entry); err != nil {
		c.warn("l2 set failed", f.LocationName, err)
	}
	if err := c.l3.Set(ctx, entry); err != nil {
		c.warn("disk cache write failed", f.LocationName, err)
	}
}

// Contains reports whether (location, at) is already present in L1, without
// consulting the lower layers. The warmer uses it to skip re-fetches.
func (c *LayeredCache) Contains(ctx context.Context, location string, at time.Time) bool {
	_, ok, err := c.l1.Get(ctx, location, at)
	return err == nil && ok
}

// TemperatureAt looks a past temperature up through the layers, for the
// temperature-difference metadata on responses.
func (c *LayeredCache) TemperatureAt(ctx context.Context, location string, at time.Time) (float64, bool) {
	ent, ok := c.Get(ctx, location, at)
	if !ok {
		return 0, false
	}
	return ent.Forecast.Temperature, true
}

// DailyRange returns max-min temperature recorded for the target day, when the
// disk layer has enough entries.
func (c *LayeredCache) DailyRange(location string, day time.Time) (float64, bool) {
	entries, err := c.l3.readAll(location)
	if err != nil || len(entries) == 0 {
		return 0, false
	}
	y, m, d := day.In(models.JST).Date()
	min, max := 0.0, 0.0
	n := 0
	for _, e := range entries {
		ey, em, ed := e.Forecast.Timestamp.In(models.JST).Date()
		if ey != y || em != m || ed != d {
			continue
		}
		t := e.Forecast.Temperature
		if n == 0 || t < min {
			min = t
		}
		if n == 0 || t > max {
			max = t
		}
		n++
	}
	if n < 2 {
		return 0, false
	}
	return max - min, true
}

// Sizes returns per-layer in-memory entry counts, for memory estimation. The
// disk layer is excluded; it occupies no process memory.
func (c *LayeredCache) Sizes() map[string]int {
	return map[string]int{
		"l1": c.l1.Len(),
		"l2": c.l2.EntryCount(),
	}
}

// Stats aggregates per-layer counters for diagnostics endpoints.
func (c *LayeredCache) Stats() map[string]string {
	l1 := c.l1.Stats()
	l2 := c.l2.Stats()
	return map[string]string{
		"l1_hits":          strconv.FormatUint(l1.Hits, 10),
		"l1_misses":        strconv.FormatUint(l1.Misses, 10),
		"l1_size":          strconv.Itoa(l1.Size),
		"l1_hit_rate":      strconv.FormatFloat(l1.HitRate, 'f', 3, 64),
		"l2_direct_hits":   strconv.FormatUint(l2.DirectHits, 10),
		"l2_neighbor_hits": strconv.FormatUint(l2.NeighborHits, 10),
	}
}

func (c *LayeredCache) promote(ctx context.Context, ent models.ForecastCacheEntry) {
	if err := c.l1.Set(ctx, ent); err != nil {
		c.warn("l1 promote failed", ent.Forecast.LocationName, err)
	}
}

func (c *LayeredCache) warn(msg, location string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, zap.String("location", location), zap.Error(err))
	}
}
