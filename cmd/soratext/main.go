package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/soratext/soratext/internal/cache"
	"github.com/soratext/soratext/internal/client"
	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/corpus"
	httphandler "github.com/soratext/soratext/internal/http"
	"github.com/soratext/soratext/internal/llm"
	"github.com/soratext/soratext/internal/memmon"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
	"github.com/soratext/soratext/internal/pipeline"
	"github.com/soratext/soratext/internal/rewrite"
	"github.com/soratext/soratext/internal/selector"
	"github.com/soratext/soratext/internal/validation"
)

// locationFlags accumulates repeated --location values, each "name" or
// "name,lat,lon".
type locationFlags []string

func (l *locationFlags) String() string { return strings.Join(*l, ";") }

func (l *locationFlags) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var (
		locations locationFlags
		datetime  = flag.String("datetime", "", "target datetime, RFC3339 (default: morning-edition rule)")
		provider  = flag.String("llm-provider", "", "override LLM provider (openai, gemini, anthropic)")
		serve     = flag.Bool("serve", false, "run the HTTP service instead of a one-shot generation")
		warm      = flag.Bool("warm", false, "prefetch forecasts for the configured locations before running")
	)
	flag.Var(&locations, "location", "location as name or name,lat,lon (repeatable)")
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *provider != "" {
		cfg.LLMProvider = *provider
	}

	cliLocations, err := parseLocations(locations)
	if err != nil {
		logger.Fatal("parse locations", zap.Error(err))
	}
	mergeLocations(cfg, cliLocations)

	forecastCache := buildForecastCache(cfg, logger)
	for _, loc := range cfg.WarmLocations {
		forecastCache.RegisterLocation(loc)
	}

	wxClient, err := client.New(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout,
		cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay, forecastCache, logger)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmProvider, err := llm.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("llm provider", zap.Error(err))
	}

	repo := corpus.NewRepository(cfg.CorpusDir, filepath.Join(cfg.CacheDir, "index"), logger)
	engine := validation.NewEngine(cfg.Thresholds, cfg.Lexicons, logger)
	sel := selector.New(llmProvider, engine, cfg.Thresholds, cfg.Lexicons, logger)
	rewriter := rewrite.New(cfg.Thresholds, cfg.Lexicons, logger)
	monitor := memmon.New(cfg.MemoryWarnPct, cfg.MemoryCriticalPct, logger)

	orch := pipeline.New(cfg, wxClient, repo, sel, engine, rewriter, forecastCache, logger)

	if *warm && len(cfg.WarmLocations) > 0 {
		warmer := cache.NewWarmer(wxClient, forecastCache, cfg.WarmMaxConcurrent, cfg.WarmRatePerSec, logger)
		warmCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		if err := warmer.Warm(warmCtx, cfg.WarmLocations); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		cancel()
	}

	if *serve {
		runServer(ctx, cfg, orch, forecastCache, monitor, logger)
		return
	}
	runOnce(ctx, cfg, orch, cliLocations, *datetime, logger)
}

// cliRecord is the one-shot output emitted per location, one JSON object
// per line.
type cliRecord struct {
	Location     string              `json:"location"`
	FinalComment string              `json:"final_comment"`
	Success      bool                `json:"success"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
	Errors       []models.StageError `json:"errors,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// runOnce generates one pair per requested location and prints the records.
func runOnce(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, cliLocations []models.LocationCoordinate, datetime string, logger *zap.Logger) {
	targets := cliLocations
	if len(targets) == 0 {
		targets = cfg.WarmLocations
	}
	if len(targets) == 0 {
		logger.Fatal("no locations: pass --location or configure warmer locations")
	}

	var target time.Time
	if datetime != "" {
		t, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			logger.Fatal("parse datetime", zap.Error(err))
		}
		target = t.In(models.JST)
	}

	enc := json.NewEncoder(os.Stdout)
	failed := false
	for _, loc := range targets {
		req := pipeline.Request{Location: loc.Name, Datetime: target}
		if loc.Latitude != 0 || loc.Longitude != 0 {
			coord := loc
			req.Coord = &coord
		}
		state := orch.Run(ctx, req)
		if !state.Success {
			failed = true
		}
		rec := cliRecord{
			Location:     loc.Name,
			FinalComment: state.FinalComment,
			Success:      state.Success,
			Metadata:     state.Metadata,
			Errors:       state.Errors,
			Warnings:     state.Warnings,
		}
		if err := enc.Encode(rec); err != nil {
			logger.Error("encode record", zap.String("location", loc.Name), zap.Error(err))
		}
	}
	if failed {
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, forecastCache *cache.LayeredCache, monitor *memmon.Monitor, logger *zap.Logger) {
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	handler := httphandler.NewHandler(orch, forecastCache, monitor, logger)
	router := handler.Router(limiter, cfg.RequestBudget)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestBudget + 10*time.Second,
	}

	if !monitor.Disabled() {
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					monitor.CheckUsage()
				}
			}
		}()
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("graceful shutdown triggered")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed",
			zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildForecastCache assembles L1/L2/L3 with the optional shared memcached
// layer.
func buildForecastCache(cfg *config.Config, logger *zap.Logger) *cache.LayeredCache {
	l1 := cache.NewLRUCache(cfg.L1MaxSize, cfg.L1TTL)
	l2 := cache.NewSpatialCache(cfg.SpatialMaxNeighbors, cfg.SpatialMaxDistanceKM)
	l3 := cache.NewDiskLog(cfg.CacheDir, cfg.DiskToleranceHours, cfg.DiskDaysRange, cfg.RetentionDays, logger)

	var shared cache.Store
	if cfg.MemcachedEnabled {
		shared = cache.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, cfg.L1TTL)
		logger.Info("shared cache: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	}
	return cache.NewLayeredCache(l1, shared, l2, l3, logger)
}

// parseLocations parses repeated --location values.
func parseLocations(raw []string) ([]models.LocationCoordinate, error) {
	var out []models.LocationCoordinate
	for _, r := range raw {
		parts := strings.Split(r, ",")
		switch len(parts) {
		case 1:
			out = append(out, models.LocationCoordinate{Name: strings.TrimSpace(parts[0])})
		case 3:
			lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err != nil {
				return nil, fmt.Errorf("location %q: bad latitude: %w", r, err)
			}
			lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("location %q: bad longitude: %w", r, err)
			}
			out = append(out, models.LocationCoordinate{
				Name: strings.TrimSpace(parts[0]), Latitude: lat, Longitude: lon,
			})
		default:
			return nil, fmt.Errorf("location %q: want name or name,lat,lon", r)
		}
	}
	return out, nil
}

// mergeLocations makes CLI coordinates visible to the pipeline and warmer.
func mergeLocations(cfg *config.Config, cliLocations []models.LocationCoordinate) {
	known := make(map[string]bool, len(cfg.WarmLocations))
	for _, l := range cfg.WarmLocations {
		known[l.Name] = true
	}
	for _, l := range cliLocations {
		if !known[l.Name] && (l.Latitude != 0 || l.Longitude != 0) {
			cfg.WarmLocations = append(cfg.WarmLocations, l)
		}
	}
}
