// Package cache implements the layered forecast cache: an in-memory LRU (L1),
// a spatial neighbor cache (L2), an append-only CSV log per location (L3) and
// an optional shared memcached store. Writes propagate through all layers,
// reads fall through and promote.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/soratext/soratext/internal/models"
)

// Store is the minimal get/set contract shared by the cache layers that key
// entries by (location, rounded-minute timestamp).
type Store interface {
	Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool, error)
	Set(ctx context.Context, entry models.ForecastCacheEntry) error
}

// Key builds the canonical cache key: location|YYYYMMDDHHMM in JST, minute
// precision.
func Key(location string, at time.Time) string {
	return fmt.Sprintf("%s|%s", location, at.In(models.JST).Truncate(time.Minute).Format("200601021504"))
}
