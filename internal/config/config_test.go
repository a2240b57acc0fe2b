package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, dir, body string) {
	t.Helper()
	t.Setenv("ENV_NAME", "dev")
	if err := os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.MaxRetryCount != 5 {
		t.Errorf("MaxRetryCount = %d", cfg.MaxRetryCount)
	}
	if cfg.Thresholds.HeatstrokeMinC != 34 {
		t.Errorf("HeatstrokeMinC = %v", cfg.Thresholds.HeatstrokeMinC)
	}
	if len(cfg.Lexicons.WarningWords) == 0 {
		t.Error("default lexicons missing warning words")
	}
}

func TestTemperatureBand(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		temp float64
		want string
	}{
		{38, "very_hot"},
		{37, "very_hot"},
		{36.9, "hot"},
		{34, "hot"},
		{33.9, "moderate_warm"},
		{25, "moderate_warm"},
		{24.9, "mild"},
		{12, "mild"},
		{11.9, "cold"},
		{0, "cold"},
		{-0.1, "very_cold"},
	}
	for _, tt := range tests {
		if got := th.TemperatureBand(tt.temp); got != tt.want {
			t.Errorf("TemperatureBand(%v) = %q, want %q", tt.temp, got, tt.want)
		}
	}
}

func TestLoadDirMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.LLMProvider != "openai" {
		t.Errorf("defaults not applied: port=%q provider=%q", cfg.ServerPort, cfg.LLMProvider)
	}
}

func TestLoadDirAppliesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
server:
  port: "9090"
llm:
  provider: gemini
  timeout: 45s
cache:
  l1_max_size: 50
  l1_ttl: 10m
pipeline:
  max_retry_count: 2
  request_budget: 90s
warmer:
  locations:
    - name: 東京
      lat: 35.6762
      lon: 139.6503
    - name: 大阪
      lat: 34.6937
      lon: 135.5023
thresholds:
  heavy_rain_mm: 12.5
  continuous_rain_hours: 3
`)
	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.LLMProvider != "gemini" || cfg.LLMTimeout != 45*time.Second {
		t.Errorf("llm = %q/%v", cfg.LLMProvider, cfg.LLMTimeout)
	}
	if cfg.L1MaxSize != 50 || cfg.L1TTL != 10*time.Minute {
		t.Errorf("cache = %d/%v", cfg.L1MaxSize, cfg.L1TTL)
	}
	if cfg.MaxRetryCount != 2 || cfg.RequestBudget != 90*time.Second {
		t.Errorf("pipeline = %d/%v", cfg.MaxRetryCount, cfg.RequestBudget)
	}
	if len(cfg.WarmLocations) != 2 || cfg.WarmLocations[0].Name != "東京" {
		t.Errorf("warm locations = %+v", cfg.WarmLocations)
	}
	if cfg.Thresholds.HeavyRainMM != 12.5 {
		t.Errorf("HeavyRainMM = %v", cfg.Thresholds.HeavyRainMM)
	}
	if cfg.Thresholds.ContinuousRainHours != 3 {
		t.Errorf("ContinuousRainHours = %d", cfg.Thresholds.ContinuousRainHours)
	}
	// Unmentioned values keep their defaults.
	if cfg.Thresholds.HeatstrokeMinC != 34 {
		t.Errorf("HeatstrokeMinC = %v, want default", cfg.Thresholds.HeatstrokeMinC)
	}
}

func TestLoadDirThresholdEnvOverride(t *testing.T) {
	t.Setenv("SORATEXT_HEAVY_RAIN_MM", "15")
	t.Setenv("SORATEXT_COMMENT_WARN_RUNES", "40")

	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.Thresholds.HeavyRainMM != 15 {
		t.Errorf("HeavyRainMM = %v, want env override 15", cfg.Thresholds.HeavyRainMM)
	}
	if cfg.Thresholds.CommentWarnRunes != 40 {
		t.Errorf("CommentWarnRunes = %d, want env override 40", cfg.Thresholds.CommentWarnRunes)
	}
}

func TestLoadDirCacheEnvOverride(t *testing.T) {
	t.Setenv("SORATEXT_L1_MAX_SIZE", "250")
	t.Setenv("SORATEXT_L1_TTL_SECONDS", "120")

	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.L1MaxSize != 250 {
		t.Errorf("L1MaxSize = %d", cfg.L1MaxSize)
	}
	if cfg.L1TTL != 2*time.Minute {
		t.Errorf("L1TTL = %v", cfg.L1TTL)
	}
}

func TestLoadDirRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "llm:\n  provider: cohere\n")

	if _, err := LoadDir(dir); err == nil {
		t.Error("unknown llm provider accepted")
	}
}

func TestLoadDirRejectsBadMemoryBounds(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "memory:\n  warn_pct: 95\n  critical_pct: 90\n")

	if _, err := LoadDir(dir); err == nil {
		t.Error("warn_pct above critical_pct accepted")
	}
}

func TestLexiconOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := "warning_words:\n  - 厳重警戒\nsea_words:\n  - 高潮\n"
	if err := os.WriteFile(filepath.Join(dir, "validator_words.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(cfg.Lexicons.WarningWords) != 1 || cfg.Lexicons.WarningWords[0] != "厳重警戒" {
		t.Errorf("WarningWords = %v, want wholesale replacement", cfg.Lexicons.WarningWords)
	}
	if len(cfg.Lexicons.SeaWords) != 1 || cfg.Lexicons.SeaWords[0] != "高潮" {
		t.Errorf("SeaWords = %v", cfg.Lexicons.SeaWords)
	}
	// Lists the overlay does not mention keep their defaults.
	if len(cfg.Lexicons.PollenWords) == 0 {
		t.Error("unmentioned lexicon list lost its defaults")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		def  time.Duration
		want time.Duration
	}{
		{"30s", time.Second, 30 * time.Second},
		{"", time.Second, time.Second},
		{"garbage", time.Second, time.Second},
		{"-5s", time.Second, time.Second},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, tt.def); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
