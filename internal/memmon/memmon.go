// Package memmon samples process memory via /proc and flags usage against
// the configured warn and critical levels. On systems without procfs the
// monitor degrades to a no-op.
package memmon

import (
	"fmt"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/observability"
)

// Level classifies the sampled usage.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarn     Level = "warn"
	LevelCritical Level = "critical"
	LevelUnknown  Level = "unknown"
)

// MemoryInfo is one sample of process memory.
type MemoryInfo struct {
	RSSMB    float64
	VMSMB    float64
	UsagePct float64
}

// Monitor samples the current process. Zero value is unusable; use New.
type Monitor struct {
	warnPct     float64
	criticalPct float64
	logger      *zap.Logger

	disabled bool
}

// New builds a monitor. When /proc is unavailable the monitor disables
// itself and every CheckUsage returns LevelUnknown.
func New(warnPct, criticalPct float64, logger *zap.Logger) *Monitor {
	m := &Monitor{warnPct: warnPct, criticalPct: criticalPct, logger: logger}
	if _, err := procfs.NewDefaultFS(); err != nil {
		m.disabled = true
		if logger != nil {
			logger.Info("memory monitoring disabled, procfs unavailable", zap.Error(err))
		}
	}
	return m
}

// Disabled reports whether procfs was unavailable at construction.
func (m *Monitor) Disabled() bool { return m.disabled }

// Info returns the current process memory sample.
func (m *Monitor) Info() (MemoryInfo, error) {
	if m.disabled {
		return MemoryInfo{}, fmt.Errorf("memory monitoring disabled")
	}
	proc, err := procfs.Self()
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("open /proc/self: %w", err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("read proc stat: %w", err)
	}

	const mb = 1024 * 1024
	info := MemoryInfo{
		RSSMB: float64(stat.ResidentMemory()) / mb,
		VMSMB: float64(stat.VirtualMemory()) / mb,
	}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return info, nil
	}
	mi, err := fs.Meminfo()
	if err != nil || mi.MemTotal == nil || *mi.MemTotal == 0 {
		return info, nil
	}
	totalMB := float64(*mi.MemTotal) / 1024
	info.UsagePct = info.RSSMB / totalMB * 100
	return info, nil
}

// CheckUsage samples memory, updates the gauge and logs threshold breaches.
func (m *Monitor) CheckUsage() Level {
	info, err := m.Info()
	if err != nil {
		return LevelUnknown
	}
	observability.MemoryUsagePct.Set(info.UsagePct)

	switch {
	case info.UsagePct >= m.criticalPct:
		if m.logger != nil {
			m.logger.Error("memory usage critical",
				zap.Float64("usage_pct", info.UsagePct),
				zap.Float64("rss_mb", info.RSSMB))
		}
		return LevelCritical
	case info.UsagePct >= m.warnPct:
		if m.logger != nil {
			m.logger.Warn("memory usage high",
				zap.Float64("usage_pct", info.UsagePct),
				zap.Float64("rss_mb", info.RSSMB))
		}
		return LevelWarn
	}
	return LevelOK
}

// EstimateCacheMemory is a coarse sizing aid for the in-memory caches: entry
// counts times an assumed average entry size, reported per cache in MB plus a
// "total" key. avgKB at or below zero defaults to 2.
func EstimateCacheMemory(sizes map[string]int, avgKB float64) map[string]float64 {
	if avgKB <= 0 {
		avgKB = 2
	}
	out := make(map[string]float64, len(sizes)+1)
	total := 0.0
	for name, entries := range sizes {
		mb := float64(entries) * avgKB / 1024
		out[name] = mb
		total += mb
	}
	out["total"] = total
	return out
}
