package cache

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

// diskColumns is the 12-column persisted row format.
var diskColumns = []string{
	"location_name", "forecast_datetime", "cached_at",
	"temperature", "max_temperature", "min_temperature",
	"weather_condition", "weather_description",
	"precipitation", "humidity", "wind_speed", "metadata",
}

// minDiskColumns is the minimum column count a row must have to be readable.
const minDiskColumns = 6

var (
	unsafeNameRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	collapseNameRe = regexp.MustCompile(`[-\s]+`)
)

// SafeName sanitizes a location name for use in a cache filename.
func SafeName(location string) string {
	s := unsafeNameRe.ReplaceAllString(location, "")
	s = collapseNameRe.ReplaceAllString(s, "-")
	return s
}

// DiskLog is the L3 layer: one append-only CSV file per location. Appends are
// line-granular; compaction rewrites the file dropping entries past retention.
// Every IO failure is advisory; callers log and continue.
type DiskLog struct {
	dir            string
	toleranceHours int
	daysRange      int
	retentionDays  int
	logger         *zap.Logger

	now func() time.Time
}

// NewDiskLog builds the on-disk layer rooted at dir (created on demand).
func NewDiskLog(dir string, toleranceHours, daysRange, retentionDays int, logger *zap.Logger) *DiskLog {
	return &DiskLog{
		dir:            dir,
		toleranceHours: toleranceHours,
		daysRange:      daysRange,
		retentionDays:  retentionDays,
		logger:         logger,
		now:            time.Now,
	}
}

func (d *DiskLog) fileFor(location string) string {
	return filepath.Join(d.dir, fmt.Sprintf("forecast_cache_%s.csv", SafeName(location)))
}

// Append writes one entry row, creating the file with a header first if
// needed.
func (d *DiskLog) Append(entry models.ForecastCacheEntry) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	path := d.fileFor(entry.Forecast.LocationName)
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(diskColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(entryRow(entry)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Read returns the entry nearest target within the tolerance window. Rows
// beyond ±daysRange around target are ignored; ties on time delta go to the
// newest cached_at.
func (d *DiskLog) Read(location string, target time.Time) (models.ForecastCacheEntry, bool, error) {
	entries, err := d.readAll(location)
	if err != nil {
		return models.ForecastCacheEntry{}, false, err
	}

	window := time.Duration(d.daysRange) * 24 * time.Hour
	tolerance := time.Duration(d.toleranceHours) * time.Hour

	var best models.ForecastCacheEntry
	var bestDelta time.Duration
	found := false
	for _, e := range entries {
		delta := e.Forecast.Timestamp.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		if delta > window {
			continue
		}
		if !found || delta < bestDelta ||
			(delta == bestDelta && e.CachedAt.After(best.CachedAt)) {
			best, bestDelta, found = e, delta, true
		}
	}
	if !found || bestDelta > tolerance {
		return models.ForecastCacheEntry{}, false, nil
	}
	return best, true, nil
}

// Compact rewrites the location's file keeping only entries whose cached_at is
// within the retention window. Runs after each save.
func (d *DiskLog) Compact(location string) error {
	entries, err := d.readAll(location)
	if err != nil {
		return err
	}
	cutoff := d.now().Add(-time.Duration(d.retentionDays) * 24 * time.Hour)
	kept := entries[:0]
	for _, e := range entries {
		if !e.CachedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}

	path := d.fileFor(location)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(diskColumns); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range kept {
		if err := w.Write(entryRow(e)); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Get adapts Read to the Store contract.
func (d *DiskLog) Get(ctx context.Context, location string, at time.Time) (models.ForecastCacheEntry, bool, error) {
	ent, ok, err := d.Read(location, at)
	if ok {
		observability.ForecastCacheHitsTotal.WithLabelValues("l3").Inc()
	}
	return ent, ok, err
}

// Set adapts Append+Compact to the Store contract.
func (d *DiskLog) Set(ctx context.Context, entry models.ForecastCacheEntry) error {
	if err := d.Append(entry); err != nil {
		return err
	}
	return d.Compact(entry.Forecast.LocationName)
}

// readAll scans the location's file. Rows with fewer than minDiskColumns
// columns or unparseable timestamps are skipped, not fatal.
func (d *DiskLog) readAll(location string) ([]models.ForecastCacheEntry, error) {
	path := d.fileFor(location)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var out []models.ForecastCacheEntry
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "location_name" {
			continue
		}
		if len(row) < minDiskColumns {
			continue
		}
		ent, err := parseRow(row)
		if err != nil {
			if d.logger != nil {
				d.logger.Warn("skipping malformed cache row",
					zap.String("location", location), zap.Int("row", i), zap.Error(err))
			}
			continue
		}
		out = append(out, ent)
	}
	return out, nil
}

func entryRow(e models.ForecastCacheEntry) []string {
	f := e.Forecast
	maxT := e.Metadata["max_temperature"]
	minT := e.Metadata["min_temperature"]
	meta := ""
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			meta = string(raw)
		}
	}
	return []string{
		f.LocationName,
		f.Timestamp.In(models.JST).Format(time.RFC3339),
		e.CachedAt.In(models.JST).Format(time.RFC3339),
		formatFloat(f.Temperature),
		maxT,
		minT,
		string(f.Condition),
		f.Description,
		formatFloat(f.Precipitation),
		formatFloat(f.Humidity),
		formatFloat(f.WindSpeed),
		meta,
	}
}

func parseRow(row []string) (models.ForecastCacheEntry, error) {
	ts, err := time.Parse(time.RFC3339, row[1])
	if err != nil {
		return models.ForecastCacheEntry{}, fmt.Errorf("parse forecast_datetime: %w", err)
	}
	cachedAt, err := time.Parse(time.RFC3339, row[2])
	if err != nil {
		return models.ForecastCacheEntry{}, fmt.Errorf("parse cached_at: %w", err)
	}
	temp, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return models.ForecastCacheEntry{}, fmt.Errorf("parse temperature: %w", err)
	}

	ent := models.ForecastCacheEntry{
		Forecast: models.Forecast{
			LocationName: row[0],
			Timestamp:    ts.In(models.JST),
			Temperature:  temp,
		},
		CachedAt: cachedAt.In(models.JST),
	}
	if len(row) > 6 {
		ent.Forecast.Condition = models.WeatherCondition(row[6])
	}
	if len(row) > 7 {
		ent.Forecast.Description = row[7]
	}
	if len(row) > 8 {
		ent.Forecast.Precipitation, _ = strconv.ParseFloat(row[8], 64)
	}
	if len(row) > 9 {
		ent.Forecast.Humidity, _ = strconv.ParseFloat(row[9], 64)
	}
	if len(row) > 10 {
		ent.Forecast.WindSpeed, _ = strconv.ParseFloat(row[10], 64)
	}
	if len(row) > 11 && row[11] != "" {
		var meta map[string]string
		if err := json.Unmarshal([]byte(row[11]), &meta); err == nil {
			ent.Metadata = meta
		}
	}
	if (len(row) > 4 && row[4] != "") || (len(row) > 5 && row[5] != "") {
		if ent.Metadata == nil {
			ent.Metadata = make(map[string]string)
		}
		if len(row) > 4 && row[4] != "" {
			ent.Metadata["max_temperature"] = row[4]
		}
		if len(row) > 5 && row[5] != "" {
			ent.Metadata["min_temperature"] = row[5]
		}
	}
	return ent, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
