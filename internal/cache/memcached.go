package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

const memcachedKeyPrefix = "forecast:"

// MemcachedStore is an optional shared store sitting between L1 and L2 when
// several instances serve the same locations.
type MemcachedStore struct {
	client *memcache.Client
	ttl    time.Duration
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211").
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int, ttl time.Duration) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client, ttl: ttl}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Get implements Store. Returns (zero, false, nil) on cache miss.
func (s *MemcachedStore) Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool, error) {
	if ctx.Err() != nil {
		return models.ForecastCacheEntry{}, false, ctx.Err()
	}
	item, err := s.client.Get(memcachedKeyPrefix + Key(location, at))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return models.ForecastCacheEntry{}, false, nil
		}
		return models.ForecastCacheEntry{}, false, err
	}
	var ent models.ForecastCacheEntry
	if err := json.Unmarshal(item.Value, &ent); err != nil {
		return models.ForecastCacheEntry{}, false, err
	}
	observability.ForecastCacheHitsTotal.WithLabelValues("memcached").Inc()
	return ent, true, nil
}

// Set implements Store.
func (s *MemcachedStore) Set(ctx context.Context, entry models.ForecastCacheEntry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	expSec := int32(s.ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600
	}
	return s.client.Set(&memcache.Item{
		Key:        memcachedKeyPrefix + Key(entry.Forecast.LocationName, entry.Forecast.Timestamp),
		Value:      raw,
		Expiration: expSec,
	})
}
