package models

import (
	"fmt"
	"sort"
	"time"
)

// JST is the canonical timezone for every timestamp in the system.
var JST = time.FixedZone("JST", 9*60*60)

// WeatherCondition classifies a forecast into one of the editorial categories.
type WeatherCondition string

const (
	ConditionClear         WeatherCondition = "clear"
	ConditionPartlyCloudy  WeatherCondition = "partly_cloudy"
	ConditionCloudy        WeatherCondition = "cloudy"
	ConditionFog           WeatherCondition = "fog"
	ConditionRain          WeatherCondition = "rain"
	ConditionHeavyRain     WeatherCondition = "heavy_rain"
	ConditionThunder       WeatherCondition = "thunder"
	ConditionSnow          WeatherCondition = "snow"
	ConditionHeavySnow     WeatherCondition = "heavy_snow"
	ConditionStorm         WeatherCondition = "storm"
	ConditionSevereStorm   WeatherCondition = "severe_storm"
	ConditionExtremeHeat   WeatherCondition = "extreme_heat"
	ConditionUnknown       WeatherCondition = "unknown"
)

// conditionPriority ranks conditions for priority selection. Higher wins.
var conditionPriority = map[WeatherCondition]int{
	ConditionSevereStorm:  12,
	ConditionStorm:        11,
	ConditionThunder:      10,
	ConditionFog:          9,
	ConditionHeavySnow:    8,
	ConditionHeavyRain:    7,
	ConditionSnow:         6,
	ConditionRain:         5,
	ConditionExtremeHeat:  4,
	ConditionCloudy:       3,
	ConditionPartlyCloudy: 2,
	ConditionClear:        1,
	ConditionUnknown:      0,
}

// Priority returns the numeric rank used when comparing conditions.
func (c WeatherCondition) Priority() int {
	return conditionPriority[c]
}

// IsSevere reports whether the condition alone warrants warning copy.
func (c WeatherCondition) IsSevere() bool {
	switch c {
	case ConditionHeavyRain, ConditionStorm, ConditionSevereStorm, ConditionThunder, ConditionHeavySnow, ConditionFog:
		return true
	}
	return false
}

// IsSunny reports whether the condition belongs to the sunny category.
func (c WeatherCondition) IsSunny() bool {
	return c == ConditionClear || c == ConditionExtremeHeat
}

// IsCloudy reports whether the condition belongs to the cloudy category.
func (c WeatherCondition) IsCloudy() bool {
	return c == ConditionCloudy || c == ConditionPartlyCloudy
}

// IsRainy reports whether the condition implies precipitation.
func (c WeatherCondition) IsRainy() bool {
	switch c {
	case ConditionRain, ConditionHeavyRain, ConditionThunder, ConditionStorm, ConditionSevereStorm:
		return true
	}
	return false
}

// WindDirection is the 8-way compass direction reported by the upstream API.
type WindDirection string

const (
	WindCalm      WindDirection = "calm"
	WindNorth     WindDirection = "n"
	WindNortheast WindDirection = "ne"
	WindEast      WindDirection = "e"
	WindSoutheast WindDirection = "se"
	WindSouth     WindDirection = "s"
	WindSouthwest WindDirection = "sw"
	WindWest      WindDirection = "w"
	WindNorthwest WindDirection = "nw"
	WindUnknown   WindDirection = "unknown"
)

// Forecast is one hour (or day) of weather for a location. Immutable once built.
type Forecast struct {
	LocationName  string           `json:"location"`
	Timestamp     time.Time        `json:"datetime"`
	Temperature   float64          `json:"temperature"`
	WeatherCode   string           `json:"weather_code"`
	Condition     WeatherCondition `json:"weather_condition"`
	Description   string           `json:"weather_description"`
	Precipitation float64          `json:"precipitation"`
	Humidity      float64          `json:"humidity"`
	WindSpeed     float64          `json:"wind_speed"`
	WindDirection WindDirection    `json:"wind_direction"`
	WindDegrees   int              `json:"wind_degrees"`
}

// Validate checks the physical ranges a forecast must satisfy before it enters
// the pipeline. Out-of-range forecasts are dropped by the client, not repaired.
func (f Forecast) Validate() error {
	if f.Temperature < -50 || f.Temperature > 60 {
		return fmt.Errorf("temperature %.1f out of range [-50, 60]", f.Temperature)
	}
	if f.Humidity < 0 || f.Humidity > 100 {
		return fmt.Errorf("humidity %.1f out of range [0, 100]", f.Humidity)
	}
	if f.Precipitation < 0 || f.Precipitation > 500 {
		return fmt.Errorf("precipitation %.1f out of range [0, 500]", f.Precipitation)
	}
	if f.WindSpeed < 0 || f.WindSpeed > 200 {
		return fmt.Errorf("wind speed %.1f out of range [0, 200]", f.WindSpeed)
	}
	return nil
}

// Equal reports forecast identity: same location at the same instant.
func (f Forecast) Equal(other Forecast) bool {
	return f.LocationName == other.LocationName && f.Timestamp.Equal(other.Timestamp)
}

// ForecastCollection is an ordered sequence of forecasts for one location,
// sorted ascending by time.
type ForecastCollection struct {
	LocationName string     `json:"location"`
	Forecasts    []Forecast `json:"forecasts"`
}

// Sort orders the collection ascending by timestamp.
func (c *ForecastCollection) Sort() {
	sort.Slice(c.Forecasts, func(i, j int) bool {
		return c.Forecasts[i].Timestamp.Before(c.Forecasts[j].Timestamp)
	})
}

// ClosestTo returns the forecast minimizing the absolute time delta to target.
// The second return is false when the collection is empty.
func (c *ForecastCollection) ClosestTo(target time.Time) (Forecast, bool) {
	if len(c.Forecasts) == 0 {
		return Forecast{}, false
	}
	best := c.Forecasts[0]
	bestDelta := absDuration(best.Timestamp.Sub(target))
	for _, f := range c.Forecasts[1:] {
		if d := absDuration(f.Timestamp.Sub(target)); d < bestDelta {
			best, bestDelta = f, d
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ForecastCacheEntry is a forecast augmented with the instant it was cached and
// opaque metadata. This is the unit persisted by the disk cache layer.
type ForecastCacheEntry struct {
	Forecast Forecast          `json:"forecast"`
	CachedAt time.Time         `json:"cached_at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LocationCoordinate names a point the spatial cache can measure distances from.
type LocationCoordinate struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
