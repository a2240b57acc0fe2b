package validation

import (
	"strings"
	"unicode"

	"github.com/soratext/soratext/internal/forecast"
	"github.com/soratext/soratext/internal/models"
)

const (
	RuleContradiction  = "pair_contradiction"
	RuleTempSymptom    = "temp_symptom"
	RuleDuplication    = "duplication"
	RuleTone           = "tone"
	RuleUmbrella       = "umbrella"
	RuleTimeBand       = "time_band"
	RuleContinuousRain = "continuous_rain"
	RuleSeasonal       = "seasonal"
)

// checkContradiction rejects weather copy that contradicts the forecast
// reality: sunny wording under rain, rain wording under clear skies, heat
// wording in the cold and cold wording in the heat.
func (e *Engine) checkContradiction(w, _ string, ctx Context) models.ValidationResult {
	f := ctx.Weather
	raining := f.Condition.IsRainy() || f.Precipitation >= e.th.RainyPrecipMM

	if raining {
		if word, ok := containsAny(w, e.lex.SunnyWords); ok {
			return models.Invalid(RuleContradiction, "%q while raining (%.1fmm)", word, f.Precipitation)
		}
	}
	if f.Condition.IsSunny() && !raining {
		if word, ok := containsAny(w, e.lex.RainyWords); ok {
			return models.Invalid(RuleContradiction, "%q under %s skies", word, f.Condition)
		}
	}
	if f.Temperature < e.th.ColdContradictionC {
		if word, ok := containsAny(w, e.lex.HotWords); ok {
			return models.Invalid(RuleContradiction, "%q at %.1f°C", word, f.Temperature)
		}
	}
	if f.Temperature > e.th.HotContradictionC {
		if word, ok := containsAny(w, e.lex.ColdWords); ok {
			return models.Invalid(RuleContradiction, "%q at %.1f°C", word, f.Temperature)
		}
	}
	return models.Valid()
}

// checkTemperatureSymptom enforces the symptom boundaries on either half:
// heatstroke copy needs 34.0°C or above, shivering copy needs 5°C or below.
func (e *Engine) checkTemperatureSymptom(w, a string, ctx Context) models.ValidationResult {
	t := ctx.Weather.Temperature
	for _, text := range []string{w, a} {
		if strings.Contains(text, "熱中症") && t < e.th.HeatstrokeMinC {
			return models.Invalid(RuleTempSymptom, "heatstroke copy at %.1f°C (needs >= %.1f)", t, e.th.HeatstrokeMinC)
		}
		if strings.Contains(text, "凍える") && t > e.th.ShiverMaxC {
			return models.Invalid(RuleTempSymptom, "shivering copy at %.1f°C (needs <= %.1f)", t, e.th.ShiverMaxC)
		}
	}
	return models.Valid()
}

// checkDuplication rejects pairs that say the same thing twice: exact or
// punctuation-insensitive equality, a shared critical keyword, or a high
// character overlap.
func (e *Engine) checkDuplication(w, a string, _ Context) models.ValidationResult {
	if w == a {
		return models.Invalid(RuleDuplication, "identical texts")
	}
	if stripPunct(w) == stripPunct(a) {
		return models.Invalid(RuleDuplication, "texts differ only in punctuation")
	}
	for _, kw := range e.lex.CriticalKeywords {
		if kw != "" && strings.Contains(w, kw) && strings.Contains(a, kw) {
			return models.Invalid(RuleDuplication, "both halves mention %q", kw)
		}
	}
	if overlap := models.TextSimilarity(w, a); overlap > e.th.DuplicateOverlap {
		return models.Invalid(RuleDuplication, "character overlap %.2f", overlap)
	}
	return models.Valid()
}

// checkTone rejects a positive weather half paired with a negative advice
// half (and the inverse), unless the advice softens it with encouragement.
func (e *Engine) checkTone(w, a string, _ Context) models.ValidationResult {
	wPos := nameMatches(w, e.lex.PositiveWords)
	wNeg := nameMatches(w, e.lex.NegativeWords)
	aPos := nameMatches(a, e.lex.PositiveWords)
	aNeg := nameMatches(a, e.lex.NegativeWords)

	if (wPos && aNeg) || (wNeg && aPos) {
		if nameMatches(a, e.lex.EncouragingWords) {
			return models.Valid()
		}
		return models.Invalid(RuleTone, "mixed tone between halves")
	}
	return models.Valid()
}

// checkUmbrella rejects umbrella copy in both halves at once, and any
// umbrella copy when the forecast gives it no purpose.
func (e *Engine) checkUmbrella(w, a string, ctx Context) models.ValidationResult {
	wWord, wHas := containsAny(w, e.lex.UmbrellaWords)
	aWord, aHas := containsAny(a, e.lex.UmbrellaWords)
	if wHas && aHas {
		return models.Invalid(RuleUmbrella, "umbrella in both halves (%q, %q)", wWord, aWord)
	}
	f := ctx.Weather
	if (wHas || aHas) && f.Condition.IsSunny() && f.Precipitation < e.th.UmbrellaMinMM {
		return models.Invalid(RuleUmbrella, "umbrella copy with %.1fmm under %s", f.Precipitation, f.Condition)
	}
	return models.Valid()
}

// checkTimeBand forbids daylight expressions in night editions (20-05 JST)
// and night expressions in midday editions (10-15 JST).
func (e *Engine) checkTimeBand(w, a string, ctx Context) models.ValidationResult {
	hour := ctx.Target.In(models.JST).Hour()
	var window string
	switch {
	case hour >= 20 || hour <= 5:
		window = "night"
	case hour >= 10 && hour <= 15:
		window = "day"
	default:
		return models.Valid()
	}
	for _, text := range []string{w, a} {
		if word, ok := containsAny(text, e.lex.TimeForbidden[window]); ok {
			return models.Invalid(RuleTimeBand, "%q in %s window (hour %d)", word, window, hour)
		}
	}
	return models.Valid()
}

// checkContinuousRain forbids shower wording when the report window shows
// sustained rain rather than passing showers.
func (e *Engine) checkContinuousRain(w, a string, ctx Context) models.ValidationResult {
	if !forecast.ContinuousRain(ctx.Period, e.th.RainyPrecipMM, e.th.ContinuousRainHours) {
		return models.Valid()
	}
	for _, text := range []string{w, a} {
		if word, ok := containsAny(text, e.lex.ShowerRainWords); ok {
			return models.Invalid(RuleContinuousRain, "%q during sustained rain", word)
		}
	}
	return models.Valid()
}

// checkSeasonal enforces the month windows of season-bound expressions.
func (e *Engine) checkSeasonal(w, a string, ctx Context) models.ValidationResult {
	month := int(ctx.Target.In(models.JST).Month())
	for _, rule := range e.lex.SeasonalRules {
		allowed := false
		for _, m := range rule.Months {
			if m == month {
				allowed = true
				break
			}
		}
		if allowed {
			continue
		}
		for _, text := range []string{w, a} {
			if word, ok := containsAny(text, rule.Words); ok {
				return models.Invalid(RuleSeasonal, "%q out of season in month %d", word, month)
			}
		}
	}
	return models.Valid()
}

// stripPunct drops punctuation and whitespace for near-duplicate detection.
func stripPunct(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
