package cache

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

const earthRadiusKM = 6371.0

// SpatialCache is the L2 layer: per-location ordered entry lists plus a
// registry of coordinates. A miss for a location with known coordinates can be
// served from a neighboring location within maxDistanceKM; the returned entry
// is relabeled with the requested location name but otherwise unchanged.
type SpatialCache struct {
	mu             sync.Mutex
	maxNeighbors   int
	maxDistanceKM  float64
	coords         map[string]models.LocationCoordinate
	entries        map[string][]models.ForecastCacheEntry // ordered by forecast time

	directHits   uint64
	neighborHits uint64
}

// SpatialStats separates direct from neighbor-served hits.
type SpatialStats struct {
	DirectHits   uint64 `json:"direct_hits"`
	NeighborHits uint64 `json:"neighbor_hits"`
	Locations    int    `json:"locations"`
}

// NewSpatialCache builds an L2 cache consulting at most maxNeighbors
// registered locations within maxDistanceKM.
func NewSpatialCache(maxNeighbors int, maxDistanceKM float64) *SpatialCache {
	return &SpatialCache{
		maxNeighbors:  maxNeighbors,
		maxDistanceKM: maxDistanceKM,
		coords:        make(map[string]models.LocationCoordinate),
		entries:       make(map[string][]models.ForecastCacheEntry),
	}
}

// RegisterLocation records the coordinate used for neighbor lookups. A
// location with no registered coordinate is never served a neighbor hit.
func (c *SpatialCache) RegisterLocation(coord models.LocationCoordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coords[coord.Name] = coord
}

// Get returns an entry for (location, at), trying the location itself first
// and then up to maxNeighbors nearby registered locations.
func (c *SpatialCache) Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.lookup(location, at); ok {
		c.directHits++
		observability.ForecastCacheHitsTotal.WithLabelValues("l2_direct").Inc()
		return ent, true, nil
	}

	origin, ok := c.coords[location]
	if !ok {
		return models.ForecastCacheEntry{}, false, nil
	}
	for _, name := range c.neighborsOf(origin) {
		if ent, ok := c.lookup(name, at); ok {
			// Relabel only; every numeric field is preserved.
			ent.Forecast.LocationName = location
			c.neighborHits++
			observability.ForecastCacheHitsTotal.WithLabelValues("l2_neighbor").Inc()
			return ent, true, nil
		}
	}
	return models.ForecastCacheEntry{}, false, nil
}

// Set appends the entry to its location's ordered list, replacing any entry
// at the same minute.
func (c *SpatialCache) Set(ctx context.Context, entry models.ForecastCacheEntry) error {
	loc := entry.Forecast.LocationName
	ts := entry.Forecast.Timestamp.Truncate(time.Minute)
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.entries[loc]
	for i, e := range list {
		if e.Forecast.Timestamp.Truncate(time.Minute).Equal(ts) {
			list[i] = entry
			return nil
		}
	}
	list = append(list, entry)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Forecast.Timestamp.Before(list[j].Forecast.Timestamp)
	})
	c.entries[loc] = list
	return nil
}

// Stats returns the direct/neighbor hit counters.
func (c *SpatialCache) Stats() SpatialStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SpatialStats{DirectHits: c.directHits, NeighborHits: c.neighborHits, Locations: len(c.entries)}
}

// EntryCount returns the total cached entries across all locations.
func (c *SpatialCache) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}

// lookup finds the entry at the exact minute. Caller holds the lock.
func (c *SpatialCache) lookup(location string, at time.Time) (models.ForecastCacheEntry, bool) {
	want := at.Truncate(time.Minute)
	for _, e := range c.entries[location] {
		if e.Forecast.Timestamp.Truncate(time.Minute).Equal(want) {
			return e, true
		}
	}
	return models.ForecastCacheEntry{}, false
}

// neighborsOf returns up to maxNeighbors registered location names within
// maxDistanceKM of origin, nearest first. Caller holds the lock.
func (c *SpatialCache) neighborsOf(origin models.LocationCoordinate) []string {
	type candidate struct {
		name string
		dist float64
	}
	var cands []candidate
	for name, coord := range c.coords {
		if name == origin.Name {
			continue
		}
		d := Haversine(origin.Latitude, origin.Longitude, coord.Latitude, coord.Longitude)
		if d <= c.maxDistanceKM {
			cands = append(cands, candidate{name: name, dist: d})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > c.maxNeighbors {
		cands = cands[:c.maxNeighbors]
	}
	out := make([]string, len(cands))
	for i, cand := range cands {
		out[i] = cand.name
	}
	return out
}

// Haversine returns the great-circle distance in kilometers between two
// (lat, lon) points in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
