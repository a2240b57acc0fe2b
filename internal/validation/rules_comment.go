package validation

import (
	"github.com/soratext/soratext/internal/models"
)

// Rule tags carried on failed results. Stable strings; they feed metrics
// labels and retry diagnostics.
const (
	RuleWeatherWords    = "weather_words"
	RuleTemperatureBand = "temperature_band"
	RuleHumidity        = "humidity"
	RuleRegional        = "regional"
	RulePollen          = "pollen"
	RuleRequiredWarning = "required_warning"
)

// weatherCategory maps the forecast onto the forbidden-word categories.
// Heavy rain is reached either by condition or by precipitation amount.
func (e *Engine) weatherCategory(f models.Forecast) string {
	switch {
	case f.Condition == models.ConditionHeavyRain,
		f.Condition == models.ConditionStorm,
		f.Condition == models.ConditionSevereStorm,
		f.Precipitation >= e.th.HeavyRainMM:
		return "heavy_rain"
	case f.Condition.IsRainy(), f.Precipitation >= e.th.RainyPrecipMM:
		return "rain"
	case f.Condition.IsCloudy():
		return "cloudy"
	case f.Condition.IsSunny():
		return "sunny"
	}
	return ""
}

func (e *Engine) checkWeatherWords(c models.PastComment, ctx Context) models.ValidationResult {
	cat := e.weatherCategory(ctx.Weather)
	if cat == "" {
		return models.Valid()
	}
	if word, ok := containsAny(c.Text, e.lex.WeatherForbidden[cat]); ok {
		return models.Invalid(RuleWeatherWords, "%q conflicts with %s forecast", word, cat)
	}
	return models.Valid()
}

func (e *Engine) checkTemperatureBand(c models.PastComment, ctx Context) models.ValidationResult {
	band := e.th.TemperatureBand(ctx.Weather.Temperature)
	if word, ok := containsAny(c.Text, e.lex.TemperatureForbidden[band]); ok {
		return models.Invalid(RuleTemperatureBand, "%q not allowed at %.1f°C (band %s)",
			word, ctx.Weather.Temperature, band)
	}
	return models.Valid()
}

// checkHumidity rejects drying advice in humid air and dehumidifying advice
// in dry air. The high bound is inclusive: exactly 80% already counts humid.
func (e *Engine) checkHumidity(c models.PastComment, ctx Context) models.ValidationResult {
	h := ctx.Weather.Humidity
	if h >= e.th.HighHumidityPct {
		if word, ok := containsAny(c.Text, e.lex.DryingWords); ok {
			return models.Invalid(RuleHumidity, "%q at humidity %.1f%%", word, h)
		}
	}
	if h < e.th.LowHumidityPct {
		if word, ok := containsAny(c.Text, e.lex.DehumidifyWords); ok {
			return models.Invalid(RuleHumidity, "%q at humidity %.1f%%", word, h)
		}
	}
	return models.Valid()
}

// checkRegional applies location-specific vocabulary bans: no snow copy for
// Okinawa, no extreme-heat copy for Hokkaido, no sea copy inland.
func (e *Engine) checkRegional(c models.PastComment, ctx Context) models.ValidationResult {
	if nameMatches(ctx.Location, e.lex.OkinawaNames) {
		if word, ok := containsAny(c.Text, e.lex.OkinawaForbidden); ok {
			return models.Invalid(RuleRegional, "%q not applicable in Okinawa region", word)
		}
	}
	if nameMatches(ctx.Location, e.lex.HokkaidoNames) {
		if word, ok := containsAny(c.Text, e.lex.HokkaidoForbidden); ok {
			return models.Invalid(RuleRegional, "%q not applicable in Hokkaido region", word)
		}
	}
	if !e.isCoastal(ctx) {
		if word, ok := containsAny(c.Text, e.lex.SeaWords); ok {
			return models.Invalid(RuleRegional, "%q not applicable inland", word)
		}
	}
	return models.Valid()
}

// isCoastal prefers the geodetic distance to the coastline when a coordinate
// is available, and falls back to the configured name list.
func (e *Engine) isCoastal(ctx Context) bool {
	if ctx.Coord != nil {
		return coastDistanceKM(ctx.Coord.Latitude, ctx.Coord.Longitude) <= e.th.CoastDistanceKM
	}
	return nameMatches(ctx.Location, e.lex.CoastalNames)
}

// pollenMonths returns the months pollen copy is plausible for the location.
// The empty slice means never (Okinawa has no cedar pollen season).
func (e *Engine) pollenMonths(location string) []int {
	switch {
	case nameMatches(location, e.lex.OkinawaNames):
		return nil
	case nameMatches(location, e.lex.HokkaidoNames):
		return []int{4, 5, 6}
	case nameMatches(location, e.lex.KyushuNames):
		return []int{1, 2, 3, 4}
	default:
		return []int{2, 3, 4, 5}
	}
}

func (e *Engine) checkPollen(c models.PastComment, ctx Context) models.ValidationResult {
	word, ok := containsAny(c.Text, e.lex.PollenWords)
	if !ok {
		return models.Valid()
	}

	month := int(ctx.Target.In(models.JST).Month())
	allowed := false
	for _, m := range e.pollenMonths(ctx.Location) {
		if m == month {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.Invalid(RulePollen, "%q out of pollen season in month %d", word, month)
	}

	// Rain washes pollen out; saturated air and storm winds do the same to
	// the advice's credibility.
	w := ctx.Weather
	switch {
	case w.Precipitation > 0:
		return models.Invalid(RulePollen, "%q during precipitation %.1fmm", word, w.Precipitation)
	case w.Humidity >= e.th.PollenHumidityPct:
		return models.Invalid(RulePollen, "%q at humidity %.1f%%", word, w.Humidity)
	case w.WindSpeed > e.th.PollenWindMS:
		return models.Invalid(RulePollen, "%q at wind %.1fm/s", word, w.WindSpeed)
	}
	return models.Valid()
}

// checkRequiredWarning demands warning vocabulary in the weather half when
// the forecast is heavy rain or storm class.
func (e *Engine) checkRequiredWarning(c models.PastComment, ctx Context) models.ValidationResult {
	if c.Type != models.CommentTypeWeather {
		return models.Valid()
	}
	w := ctx.Weather
	severe := w.Condition == models.ConditionHeavyRain ||
		w.Condition == models.ConditionStorm ||
		w.Condition == models.ConditionSevereStorm ||
		w.Precipitation >= e.th.HeavyRainMM
	if !severe {
		return models.Valid()
	}
	if _, ok := containsAny(c.Text, e.lex.WarningWords); !ok {
		return models.Invalid(RuleRequiredWarning, "no warning wording for %s forecast", w.Condition)
	}
	return models.Valid()
}
