package cache

import (
	"context"
	"testing"
	"time"

	"github.com/soratext/soratext/internal/models"
)

func newTestStack(t *testing.T) *LayeredCache {
	t.Helper()
	l1 := NewLRUCache(10, 0)
	l2 := NewSpatialCache(5, 10)
	l3 := NewDiskLog(t.TempDir(), 3, 7, 7, nil)
	return NewLayeredCache(l1, nil, l2, l3, nil)
}

func TestLayeredSaveWritesThroughAllLayers(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)

	f := entryFor("東京", jst(9)).Forecast
	c.Save(ctx, f)

	if _, ok, _ := c.l1.Get(ctx, "東京", jst(9)); !ok {
		t.Error("entry missing from L1 after Save")
	}
	if _, ok, _ := c.l2.Get(ctx, "東京", jst(9)); !ok {
		t.Error("entry missing from L2 after Save")
	}
	if _, ok, _ := c.l3.Get(ctx, "東京", jst(9)); !ok {
		t.Error("entry missing from L3 after Save")
	}
}

func TestLayeredGetFallsThroughAndPromotes(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)

	// Seed only the disk layer: L1 and L2 must miss first.
	if err := c.l3.Append(entryFor("東京", jst(9))); err != nil {
		t.Fatal(err)
	}

	ent, ok := c.Get(ctx, "東京", jst(9))
	if !ok {
		t.Fatal("disk-only entry not found through the stack")
	}
	if ent.Forecast.LocationName != "東京" {
		t.Errorf("entry location = %q", ent.Forecast.LocationName)
	}

	// The hit was promoted: a second read is served by L1.
	before := c.l1.Stats().Hits
	if _, ok := c.Get(ctx, "東京", jst(9)); !ok {
		t.Fatal("promoted entry missing")
	}
	if c.l1.Stats().Hits != before+1 {
		t.Error("second read not served from L1")
	}
}

func TestLayeredGetMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)
	if _, ok := c.Get(ctx, "東京", jst(9)); ok {
		t.Error("empty stack produced a hit")
	}
}

func TestLayeredNeighborFallback(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)
	c.RegisterLocation(models.LocationCoordinate{Name: "東京", Latitude: 35.68, Longitude: 139.77})
	c.RegisterLocation(models.LocationCoordinate{Name: "品川", Latitude: 35.63, Longitude: 139.74})

	c.Save(ctx, entryFor("品川", jst(9)).Forecast)
	// L1 keys are exact-location, so 東京 misses there and the read reaches
	// the spatial layer.
	ent, ok := c.Get(ctx, "東京", jst(9))
	if !ok {
		t.Fatal("neighbor entry not found through the stack")
	}
	if ent.Forecast.LocationName != "東京" {
		t.Errorf("neighbor hit labeled %q, want 東京", ent.Forecast.LocationName)
	}
}

func TestLayeredContainsOnlyConsultsL1(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)

	if err := c.l3.Append(entryFor("東京", jst(9))); err != nil {
		t.Fatal(err)
	}
	if c.Contains(ctx, "東京", jst(9)) {
		t.Error("Contains reported a disk-only entry; it must stay cheap")
	}

	c.Save(ctx, entryFor("東京", jst(12)).Forecast)
	if !c.Contains(ctx, "東京", jst(12)) {
		t.Error("Contains missed a saved entry")
	}
}

func TestLayeredTemperatureAt(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)

	f := entryFor("東京", jst(9)).Forecast
	f.Temperature = 31.5
	c.Save(ctx, f)

	got, ok := c.TemperatureAt(ctx, "東京", jst(9))
	if !ok || got != 31.5 {
		t.Errorf("TemperatureAt = (%v, %v), want (31.5, true)", got, ok)
	}
	if _, ok := c.TemperatureAt(ctx, "東京", jst(18)); ok {
		t.Error("TemperatureAt hit for an uncached hour")
	}
}

func TestLayeredDailyRange(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)

	for hour, temp := range map[int]float64{9: 22, 12: 28, 15: 30, 18: 25} {
		f := entryFor("東京", jst(hour)).Forecast
		f.Temperature = temp
		c.Save(ctx, f)
	}

	got, ok := c.DailyRange("東京", jst(12))
	if !ok || got != 8 {
		t.Errorf("DailyRange = (%v, %v), want (8, true)", got, ok)
	}

	// A single entry is not a range.
	c.Save(ctx, entryFor("大阪", jst(9)).Forecast)
	if _, ok := c.DailyRange("大阪", jst(9)); ok {
		t.Error("DailyRange computed from a single entry")
	}
}

func TestLayeredStats(t *testing.T) {
	ctx := context.Background()
	c := newTestStack(t)
	c.Save(ctx, entryFor("東京", jst(9)).Forecast)
	c.Get(ctx, "東京", jst(9))
	c.Get(ctx, "東京", jst(18))

	stats := c.Stats()
	for _, key := range []string{"l1_hits", "l1_misses", "l1_size", "l1_hit_rate", "l2_direct_hits", "l2_neighbor_hits"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Stats() missing %q", key)
		}
	}
	if stats["l1_hits"] != "1" {
		t.Errorf("l1_hits = %s, want 1", stats["l1_hits"])
	}

	sizes := c.Sizes()
	if sizes["l1"] != 1 || sizes["l2"] != 1 {
		t.Errorf("Sizes() = %v, want one entry in l1 and l2", sizes)
	}
}

// fakeStore is a Store stand-in for the shared layer.
type fakeStore struct {
	entries map[string]models.ForecastCacheEntry
	getErr  error
	sets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]models.ForecastCacheEntry)}
}

func (s *fakeStore) Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool, error) {
	if s.getErr != nil {
		return models.ForecastCacheEntry{}, false, s.getErr
	}
	ent, ok := s.entries[Key(location, at)]
	return ent, ok, nil
}

func (s *fakeStore) Set(ctx context.Context, entry models.ForecastCacheEntry) error {
	s.sets++
	s.entries[Key(entry.Forecast.LocationName, entry.Forecast.Timestamp)] = entry
	return nil
}

func TestLayeredSharedStore(t *testing.T) {
	ctx := context.Background()
	shared := newFakeStore()
	c := NewLayeredCache(NewLRUCache(10, 0), shared, NewSpatialCache(5, 10), NewDiskLog(t.TempDir(), 3, 7, 7, nil), nil)

	c.Save(ctx, entryFor("東京", jst(9)).Forecast)
	if shared.sets != 1 {
		t.Errorf("shared store sets = %d, want 1", shared.sets)
	}

	// An entry present only in the shared store is found and promoted.
	_ = shared.Set(ctx, entryFor("大阪", jst(9)))
	if _, ok := c.Get(ctx, "大阪", jst(9)); !ok {
		t.Fatal("shared-only entry not found")
	}
	if _, ok, _ := c.l1.Get(ctx, "大阪", jst(9)); !ok {
		t.Error("shared hit not promoted into L1")
	}
}
