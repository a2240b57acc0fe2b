package config

// Thresholds collects every numeric knob the validation engine, the forecast
// selector and the rewriter consult. Each field is overridable via
// SORATEXT_<NAME> (see thresholdEnvNames) and via the thresholds: map in the
// config file.
type Thresholds struct {
	// Precipitation, mm/h.
	HeavyRainMM   float64
	RainyPrecipMM float64
	UmbrellaMinMM float64

	// Temperature, Celsius.
	ExtremeHeatC       float64
	HeatstrokeMinC     float64
	VeryHotMinC        float64
	HotMinC            float64
	WarmMinC           float64
	MildMinC           float64
	FreezingMaxC       float64
	ShiverMaxC         float64
	ColdContradictionC float64
	HotContradictionC  float64
	HeatstrokeRewriteC float64

	// Humidity, percent.
	HighHumidityPct   float64
	LowHumidityPct    float64
	PollenHumidityPct float64

	// Wind, m/s.
	PollenWindMS float64

	// Durations and counts.
	ContinuousRainHours int
	CoastDistanceKM     float64
	DuplicateOverlap    float64
	CommentWarnRunes    int
}

// TemperatureBand classifies a temperature into the named band the word
// lists are keyed by. Bounds are inclusive at the lower edge, so 34.0 is
// hot and 33.9 is not.
func (t Thresholds) TemperatureBand(c float64) string {
	switch {
	case c >= t.VeryHotMinC:
		return "very_hot"
	case c >= t.HotMinC:
		return "hot"
	case c >= t.WarmMinC:
		return "moderate_warm"
	case c >= t.MildMinC:
		return "mild"
	case c < t.FreezingMaxC:
		return "very_cold"
	default:
		return "cold"
	}
}

// DefaultThresholds returns the shipped threshold values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeavyRainMM:   10,
		RainyPrecipMM: 0.1,
		UmbrellaMinMM: 0.1,

		ExtremeHeatC:       35,
		HeatstrokeMinC:     34,
		VeryHotMinC:        37,
		HotMinC:            34,
		WarmMinC:           25,
		MildMinC:           12,
		FreezingMaxC:       0,
		ShiverMaxC:         5,
		ColdContradictionC: 10,
		HotContradictionC:  30,
		HeatstrokeRewriteC: 30,

		HighHumidityPct:   80,
		LowHumidityPct:    30,
		PollenHumidityPct: 85,

		PollenWindMS: 15,

		ContinuousRainHours: 4,
		CoastDistanceKM:     15,
		DuplicateOverlap:    0.7,
		CommentWarnRunes:    50,
	}
}

// thresholdFields maps the external name of each threshold (used both as the
// YAML key and, upper-cased, the env variable suffix) to its field.
func thresholdFields(t *Thresholds) map[string]any {
	return map[string]any{
		"heavy_rain_mm":         &t.HeavyRainMM,
		"rainy_precip_mm":       &t.RainyPrecipMM,
		"umbrella_min_mm":       &t.UmbrellaMinMM,
		"extreme_heat_c":        &t.ExtremeHeatC,
		"heatstroke_min_c":      &t.HeatstrokeMinC,
		"very_hot_min_c":        &t.VeryHotMinC,
		"hot_min_c":             &t.HotMinC,
		"warm_min_c":            &t.WarmMinC,
		"mild_min_c":            &t.MildMinC,
		"freezing_max_c":        &t.FreezingMaxC,
		"shiver_max_c":          &t.ShiverMaxC,
		"cold_contradiction_c":  &t.ColdContradictionC,
		"hot_contradiction_c":   &t.HotContradictionC,
		"heatstroke_rewrite_c":  &t.HeatstrokeRewriteC,
		"high_humidity_pct":     &t.HighHumidityPct,
		"low_humidity_pct":      &t.LowHumidityPct,
		"pollen_humidity_pct":   &t.PollenHumidityPct,
		"pollen_wind_ms":        &t.PollenWindMS,
		"continuous_rain_hours": &t.ContinuousRainHours,
		"coast_distance_km":     &t.CoastDistanceKM,
		"duplicate_overlap":     &t.DuplicateOverlap,
		"comment_warn_runes":    &t.CommentWarnRunes,
	}
}

func setThreshold(dst any, v float64) {
	switch p := dst.(type) {
	case *float64:
		*p = v
	case *int:
		*p = int(v)
	}
}

func applyThresholdMap(t *Thresholds, m map[string]float64) {
	if len(m) == 0 {
		return
	}
	fields := thresholdFields(t)
	for name, v := range m {
		if dst, ok := fields[name]; ok {
			setThreshold(dst, v)
		}
	}
}

func applyThresholdEnv(t *Thresholds) {
	for name, dst := range thresholdFields(t) {
		if v, ok := envFloat(upperSnake(name)); ok {
			setThreshold(dst, v)
		}
	}
}

func upperSnake(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
