package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soratext/soratext/internal/models"
)

// EnvPrefix is prepended to every threshold override variable, e.g.
// SORATEXT_HEAVY_RAIN_MM=12.5.
const EnvPrefix = "SORATEXT_"

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration

	LLMProvider      string
	LLMModel         string
	LLMTimeout       time.Duration
	LLMRetryAttempts int
	LLMRetryDelay    time.Duration

	CacheDir              string
	L1MaxSize             int
	L1TTL                 time.Duration
	SpatialMaxNeighbors   int
	SpatialMaxDistanceKM  float64
	DiskToleranceHours    int
	DiskDaysRange         int
	RetentionDays         int
	MemcachedEnabled      bool
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	CorpusDir           string
	CommentCapPerBucket int

	MaxRetryCount int
	RequestBudget time.Duration

	WarmLocations     []models.LocationCoordinate
	WarmMaxConcurrent int
	WarmRatePerSec    float64

	MemoryWarnPct     float64
	MemoryCriticalPct float64

	RateLimitRPS   int
	RateLimitBurst int

	Thresholds Thresholds
	Lexicons   Lexicons
}

// fileConfig mirrors the YAML layout of config/{ENV_NAME}.yaml.
type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL            string `yaml:"url"`
		Timeout        string `yaml:"timeout"`
		RetryAttempts  int    `yaml:"retry_attempts"`
		RetryBaseDelay string `yaml:"retry_base_delay"`
		RetryMaxDelay  string `yaml:"retry_max_delay"`
	} `yaml:"weather_api"`

	LLM struct {
		Provider      string `yaml:"provider"`
		Model         string `yaml:"model"`
		Timeout       string `yaml:"timeout"`
		RetryAttempts int    `yaml:"retry_attempts"`
		RetryDelay    string `yaml:"retry_delay"`
	} `yaml:"llm"`

	Cache struct {
		Dir                  string  `yaml:"dir"`
		L1MaxSize            int     `yaml:"l1_max_size"`
		L1TTL                string  `yaml:"l1_ttl"`
		SpatialMaxNeighbors  int     `yaml:"spatial_max_neighbors"`
		SpatialMaxDistanceKM float64 `yaml:"spatial_max_distance_km"`
		DiskToleranceHours   int     `yaml:"disk_tolerance_hours"`
		DiskDaysRange        int     `yaml:"disk_days_range"`
		RetentionDays        int     `yaml:"retention_days"`
		Memcached            struct {
			Enabled      bool   `yaml:"enabled"`
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Corpus struct {
		Dir          string `yaml:"dir"`
		CapPerBucket int    `yaml:"cap_per_bucket"`
	} `yaml:"corpus"`

	Pipeline struct {
		MaxRetryCount int    `yaml:"max_retry_count"`
		RequestBudget string `yaml:"request_budget"`
	} `yaml:"pipeline"`

	Warmer struct {
		MaxConcurrent int     `yaml:"max_concurrent"`
		RatePerSec    float64 `yaml:"rate_per_sec"`
		Locations     []struct {
			Name string  `yaml:"name"`
			Lat  float64 `yaml:"lat"`
			Lon  float64 `yaml:"lon"`
		} `yaml:"locations"`
	} `yaml:"warmer"`

	Memory struct {
		WarnPct     float64 `yaml:"warn_pct"`
		CriticalPct float64 `yaml:"critical_pct"`
	} `yaml:"memory"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Thresholds map[string]float64 `yaml:"thresholds"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) plus the
// lexicon files, applying env overrides last. A missing config file is not
// fatal; hard-coded defaults apply.
func Load() (*Config, error) {
	return LoadDir("config")
}

// LoadDir is Load with an explicit config directory, for tests.
func LoadDir(dir string) (*Config, error) {
	cfg := Defaults()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	path := filepath.Join(dir, env+".yaml")
	data, err := os.ReadFile(path)
	if err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		applyFile(cfg, &fc)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := loadLexicons(&cfg.Lexicons, dir); err != nil {
		return nil, err
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the hard-coded configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		ServerPort: "8080",

		WeatherAPIURL:     "https://wxtech.weathernews.com/api/v1/ss1wx",
		WeatherAPITimeout: 30 * time.Second,
		RetryAttempts:     3,
		RetryBaseDelay:    1 * time.Second,
		RetryMaxDelay:     4 * time.Second,

		LLMProvider:      "openai",
		LLMTimeout:       30 * time.Second,
		LLMRetryAttempts: 3,
		LLMRetryDelay:    2 * time.Second,

		CacheDir:              "data/forecast_cache",
		L1MaxSize:             500,
		L1TTL:                 300 * time.Second,
		SpatialMaxNeighbors:   5,
		SpatialMaxDistanceKM:  10,
		DiskToleranceHours:    3,
		DiskDaysRange:         7,
		RetentionDays:         7,
		MemcachedAddrs:        "localhost:11211",
		MemcachedTimeout:      500 * time.Millisecond,
		MemcachedMaxIdleConns: 2,

		CorpusDir:           "data/corpus",
		CommentCapPerBucket: 100,

		MaxRetryCount: 5,
		RequestBudget: 60 * time.Second,

		WarmMaxConcurrent: 5,
		WarmRatePerSec:    2,

		MemoryWarnPct:     80,
		MemoryCriticalPct: 90,

		RateLimitRPS:   20,
		RateLimitBurst: 40,

		Thresholds: DefaultThresholds(),
		Lexicons:   DefaultLexicons(),
	}
}

func applyFile(cfg *Config, fc *fileConfig) {
	if fc.Server.Port != "" {
		cfg.ServerPort = fc.Server.Port
	}
	if fc.WeatherAPI.URL != "" {
		cfg.WeatherAPIURL = fc.WeatherAPI.URL
	}
	cfg.WeatherAPITimeout = parseDuration(fc.WeatherAPI.Timeout, cfg.WeatherAPITimeout)
	if fc.WeatherAPI.RetryAttempts > 0 {
		cfg.RetryAttempts = fc.WeatherAPI.RetryAttempts
	}
	cfg.RetryBaseDelay = parseDuration(fc.WeatherAPI.RetryBaseDelay, cfg.RetryBaseDelay)
	cfg.RetryMaxDelay = parseDuration(fc.WeatherAPI.RetryMaxDelay, cfg.RetryMaxDelay)

	if fc.LLM.Provider != "" {
		cfg.LLMProvider = fc.LLM.Provider
	}
	if fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	cfg.LLMTimeout = parseDuration(fc.LLM.Timeout, cfg.LLMTimeout)
	if fc.LLM.RetryAttempts > 0 {
		cfg.LLMRetryAttempts = fc.LLM.RetryAttempts
	}
	cfg.LLMRetryDelay = parseDuration(fc.LLM.RetryDelay, cfg.LLMRetryDelay)

	if fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if fc.Cache.L1MaxSize > 0 {
		cfg.L1MaxSize = fc.Cache.L1MaxSize
	}
	cfg.L1TTL = parseDuration(fc.Cache.L1TTL, cfg.L1TTL)
	if fc.Cache.SpatialMaxNeighbors > 0 {
		cfg.SpatialMaxNeighbors = fc.Cache.SpatialMaxNeighbors
	}
	if fc.Cache.SpatialMaxDistanceKM > 0 {
		cfg.SpatialMaxDistanceKM = fc.Cache.SpatialMaxDistanceKM
	}
	if fc.Cache.DiskToleranceHours > 0 {
		cfg.DiskToleranceHours = fc.Cache.DiskToleranceHours
	}
	if fc.Cache.DiskDaysRange > 0 {
		cfg.DiskDaysRange = fc.Cache.DiskDaysRange
	}
	if fc.Cache.RetentionDays > 0 {
		cfg.RetentionDays = fc.Cache.RetentionDays
	}
	cfg.MemcachedEnabled = fc.Cache.Memcached.Enabled
	if fc.Cache.Memcached.Addrs != "" {
		cfg.MemcachedAddrs = fc.Cache.Memcached.Addrs
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, cfg.MemcachedTimeout)
	if fc.Cache.Memcached.MaxIdleConns > 0 {
		cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	}

	if fc.Corpus.Dir != "" {
		cfg.CorpusDir = fc.Corpus.Dir
	}
	if fc.Corpus.CapPerBucket > 0 {
		cfg.CommentCapPerBucket = fc.Corpus.CapPerBucket
	}

	if fc.Pipeline.MaxRetryCount > 0 {
		cfg.MaxRetryCount = fc.Pipeline.MaxRetryCount
	}
	cfg.RequestBudget = parseDuration(fc.Pipeline.RequestBudget, cfg.RequestBudget)

	if fc.Warmer.MaxConcurrent > 0 {
		cfg.WarmMaxConcurrent = fc.Warmer.MaxConcurrent
	}
	if fc.Warmer.RatePerSec > 0 {
		cfg.WarmRatePerSec = fc.Warmer.RatePerSec
	}
	for _, l := range fc.Warmer.Locations {
		cfg.WarmLocations = append(cfg.WarmLocations, models.LocationCoordinate{
			Name: l.Name, Latitude: l.Lat, Longitude: l.Lon,
		})
	}

	if fc.Memory.WarnPct > 0 {
		cfg.MemoryWarnPct = fc.Memory.WarnPct
	}
	if fc.Memory.CriticalPct > 0 {
		cfg.MemoryCriticalPct = fc.Memory.CriticalPct
	}

	if fc.Reliability.RateLimitRPS > 0 {
		cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	}
	if fc.Reliability.RateLimitBurst > 0 {
		cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	}

	applyThresholdMap(&cfg.Thresholds, fc.Thresholds)
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is not positive.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// envFloat reads SORATEXT_<name> as a float, returning (0, false) when unset
// or malformed.
func envFloat(name string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// envInt reads SORATEXT_<name> as an int, returning (0, false) when unset or
// malformed.
func envInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt("L1_MAX_SIZE"); ok {
		cfg.L1MaxSize = v
	}
	if v, ok := envInt("L1_TTL_SECONDS"); ok {
		cfg.L1TTL = time.Duration(v) * time.Second
	}
	if v, ok := envInt("SPATIAL_MAX_NEIGHBORS"); ok {
		cfg.SpatialMaxNeighbors = v
	}
	if v, ok := envFloat("SPATIAL_MAX_DISTANCE_KM"); ok {
		cfg.SpatialMaxDistanceKM = v
	}
	if v, ok := envInt("DISK_TOLERANCE_HOURS"); ok {
		cfg.DiskToleranceHours = v
	}
	if v, ok := envInt("RETENTION_DAYS"); ok {
		cfg.RetentionDays = v
	}
	if v, ok := envInt("MAX_RETRY_COUNT"); ok {
		cfg.MaxRetryCount = v
	}
	if v, ok := envInt("RETRY_ATTEMPTS"); ok {
		cfg.RetryAttempts = v
	}
	if v, ok := envInt("WARM_MAX_CONCURRENT"); ok {
		cfg.WarmMaxConcurrent = v
	}
	if v, ok := envFloat("MEMORY_WARN_PCT"); ok {
		cfg.MemoryWarnPct = v
	}
	if v, ok := envFloat("MEMORY_CRITICAL_PCT"); ok {
		cfg.MemoryCriticalPct = v
	}
	applyThresholdEnv(&cfg.Thresholds)
}

// validate performs post-load sanity checks on configuration values.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.L1MaxSize <= 0 {
		return fmt.Errorf("cache.l1_max_size must be positive")
	}
	if cfg.MaxRetryCount < 0 {
		return fmt.Errorf("pipeline.max_retry_count must not be negative")
	}
	switch cfg.LLMProvider {
	case "openai", "gemini", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai, gemini or anthropic, got %q", cfg.LLMProvider)
	}
	if cfg.MemoryWarnPct >= cfg.MemoryCriticalPct {
		return fmt.Errorf("memory.warn_pct must be below memory.critical_pct")
	}
	return nil
}
