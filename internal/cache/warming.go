package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

// ForecastFetcher is implemented by the weather client. The warmer depends on
// this interface to avoid a circular dependency on the client package.
type ForecastFetcher interface {
	FetchNextDayHours(ctx context.Context, lat, lon float64) (models.ForecastCollection, error)
}

// Warmer prefetches forecasts for a list of popular locations. Fetches run
// with bounded concurrency and an upstream-friendly rate limit; locations
// whose current hour is already cached are skipped, not re-fetched.
type Warmer struct {
	fetcher ForecastFetcher
	cache   *LayeredCache
	limiter *rate.Limiter
	maxConc int
	logger  *zap.Logger
}

// NewWarmer builds a warmer issuing at most maxConcurrent fetches at once and
// at most ratePerSec upstream calls per second.
func NewWarmer(fetcher ForecastFetcher, cache *LayeredCache, maxConcurrent int, ratePerSec float64, logger *zap.Logger) *Warmer {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	return &Warmer{
		fetcher: fetcher,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		maxConc: maxConcurrent,
		logger:  logger,
	}
}

// Warm prefetches every location concurrently. Returns an aggregated error if
// any location failed; the remaining locations are still warmed.
func (w *Warmer) Warm(ctx context.Context, locations []models.LocationCoordinate) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming forecast cache", zap.Int("locations", len(locations)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConc)

	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		loc := loc
		g.Go(func() error {
			hour := time.Now().In(models.JST).Truncate(time.Hour)
			if w.cache.Contains(gctx, loc.Name, hour) {
				return nil
			}
			if err := w.limiter.Wait(gctx); err != nil {
				return err
			}
			w.cache.RegisterLocation(loc)
			coll, err := w.fetcher.FetchNextDayHours(gctx, loc.Latitude, loc.Longitude)
			if err != nil {
				errCh <- fmt.Errorf("warm %s: %w", loc.Name, err)
				return nil // keep warming the rest
			}
			for _, f := range coll.Forecasts {
				f.LocationName = loc.Name
				w.cache.Save(gctx, f)
			}
			return nil
		})
	}
	err := g.Wait()
	close(errCh)

	var errs []error
	for e := range errCh {
		errs = append(errs, e)
	}
	if w.logger != nil {
		w.logger.Info("cache warming complete",
			zap.Int("locations", len(locations)),
			zap.Int("errors", len(errs)),
			zap.Duration("duration", time.Since(start)))
	}
	if err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		return err
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, locations []models.LocationCoordinate, interval time.Duration) error {
	if err := w.Warm(ctx, locations); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, locations); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
