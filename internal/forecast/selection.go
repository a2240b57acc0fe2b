// Package forecast extracts the canonical report-hour forecasts and decides
// which one drives the day's commentary.
package forecast

import (
	"time"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/models"
)

// ReportHours are the canonical JST hours forecasts are extracted for.
var ReportHours = []int{9, 12, 15, 18}

// Trend is the direction of the weather over the report window.
type Trend string

const (
	TrendImproving     Trend = "improving"
	TrendDeteriorating Trend = "deteriorating"
	TrendStable        Trend = "stable"
)

// TargetDate applies the morning-edition rule: before 06 JST the commentary
// targets today, from 06 JST on it targets tomorrow.
func TargetDate(now time.Time) time.Time {
	now = now.In(models.JST)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, models.JST)
	if now.Hour() < 6 {
		return day
	}
	return day.AddDate(0, 0, 1)
}

// ExtractReportHours picks, for each report hour of the target date, the
// forecast closest in time. There is no tolerance limit; the closest entry
// wins. The result holds at most len(ReportHours) forecasts.
func ExtractReportHours(coll models.ForecastCollection, targetDate time.Time) []models.Forecast {
	targetDate = targetDate.In(models.JST)
	var out []models.Forecast
	for _, hour := range ReportHours {
		target := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), hour, 0, 0, 0, models.JST)
		if f, ok := coll.ClosestTo(target); ok {
			out = append(out, f)
		}
	}
	return out
}

// SelectPriority chooses the forecast that drives comment generation.
// Editorial policy privileges safety warnings over pleasant-weather framing:
// storm-class conditions beat heavy rain, heavy rain beats any rain, and any
// rain beats extreme heat.
func SelectPriority(forecasts []models.Forecast, th config.Thresholds) (models.Forecast, bool) {
	if len(forecasts) == 0 {
		return models.Forecast{}, false
	}

	// 1. Storm-class conditions, highest condition rank first.
	if f, ok := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		switch f.Condition {
		case models.ConditionThunder, models.ConditionFog, models.ConditionStorm, models.ConditionSevereStorm:
			return float64(f.Condition.Priority()), true
		}
		return 0, false
	}); ok {
		return f, true
	}

	// 2. Heavy rain by precipitation.
	if f, ok := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		if f.Precipitation >= th.HeavyRainMM {
			return f.Precipitation, true
		}
		return 0, false
	}); ok {
		return f, true
	}

	// 3. Any rain beats heat.
	if f, ok := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		if f.Precipitation > 0 {
			return f.Precipitation, true
		}
		return 0, false
	}); ok {
		return f, true
	}

	// 4. Extreme heat.
	if f, ok := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		if f.Temperature >= th.ExtremeHeatC {
			return f.Temperature, true
		}
		return 0, false
	}); ok {
		return f, true
	}

	// 5. Residual severe conditions, highest precipitation.
	if f, ok := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		if f.Condition.IsSevere() || f.Precipitation > th.HeavyRainMM {
			return f.Precipitation, true
		}
		return 0, false
	}); ok {
		return f, true
	}

	// 6. Any non-clear forecast, highest condition rank.
	if f, ok := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		if f.Condition != models.ConditionClear && f.Condition != models.ConditionUnknown {
			return float64(f.Condition.Priority()), true
		}
		return 0, false
	}); ok {
		return f, true
	}

	// 7. All clear: highest temperature.
	f, _ := maxBy(forecasts, func(f models.Forecast) (float64, bool) {
		return f.Temperature, true
	})
	return f, true
}

// AnalyzeTrend compares condition ranks over the report window. Requires at
// least two forecasts; with fewer the trend is stable.
func AnalyzeTrend(forecasts []models.Forecast) Trend {
	if len(forecasts) < 2 {
		return TrendStable
	}
	first := forecasts[0].Condition.Priority()
	last := forecasts[len(forecasts)-1].Condition.Priority()
	switch {
	case last > first:
		return TrendDeteriorating
	case last < first:
		return TrendImproving
	default:
		return TrendStable
	}
}

// ContinuousRain reports whether every report-hour forecast shows rain,
// either by precipitation at or above rainyMM or by a rainy description.
// minHours is the configured continuous-rain threshold.
func ContinuousRain(forecasts []models.Forecast, rainyMM float64, minHours int) bool {
	rainy := 0
	for _, f := range forecasts {
		if f.Precipitation >= rainyMM || f.Condition.IsRainy() || containsRune(f.Description, '雨') {
			rainy++
		}
	}
	return rainy >= minHours
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// maxBy returns the forecast with the highest score among those the score
// function admits.
func maxBy(forecasts []models.Forecast, score func(models.Forecast) (float64, bool)) (models.Forecast, bool) {
	var best models.Forecast
	var bestScore float64
	found := false
	for _, f := range forecasts {
		s, ok := score(f)
		if !ok {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = f, s, true
		}
	}
	return best, found
}
