// Package validation runs the rule batteries that decide whether a past
// comment, or a selected pair, may be published for a given forecast.
package validation

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/models"
)

// Context carries everything the rules need beyond the comment text itself.
type Context struct {
	// Weather is the priority forecast driving the commentary.
	Weather models.Forecast

	// Target is the datetime the commentary is written for, in JST.
	Target time.Time

	// Location is the display name of the target location.
	Location string

	// Coord is the location's coordinate when known. Coastal checks fall
	// back to the name list when nil.
	Coord *models.LocationCoordinate

	// Period holds the report-window forecasts for continuity checks.
	Period []models.Forecast
}

// Engine evaluates comments against the configured thresholds and lexicons.
// Zero-value Engine is unusable; build one with NewEngine.
type Engine struct {
	th     config.Thresholds
	lex    config.Lexicons
	logger *zap.Logger
}

// NewEngine builds a validation engine. logger may be nil.
func NewEngine(th config.Thresholds, lex config.Lexicons, logger *zap.Logger) *Engine {
	return &Engine{th: th, lex: lex, logger: logger}
}

// ValidateComment runs the per-comment batteries in order and stops at the
// first failure. Overlong comments log a warning but stay valid.
func (e *Engine) ValidateComment(c models.PastComment, ctx Context) models.ValidationResult {
	checks := []func(models.PastComment, Context) models.ValidationResult{
		e.checkWeatherWords,
		e.checkTemperatureBand,
		e.checkHumidity,
		e.checkRegional,
		e.checkPollen,
		e.checkRequiredWarning,
	}
	for _, check := range checks {
		if res := check(c, ctx); !res.IsValid {
			return res
		}
	}
	if e.th.CommentWarnRunes > 0 && c.Length() > e.th.CommentWarnRunes && e.logger != nil {
		e.logger.Warn("comment exceeds length guideline",
			zap.String("text", c.Text),
			zap.Int("runes", c.Length()),
			zap.Int("limit", e.th.CommentWarnRunes))
	}
	return models.Valid()
}

// ValidatePair validates each half, then runs the pair-level batteries.
// Returns the first failure encountered.
func (e *Engine) ValidatePair(pair models.CommentPair, ctx Context) models.ValidationResult {
	if res := e.ValidateComment(pair.WeatherComment, ctx); !res.IsValid {
		return res
	}
	if res := e.ValidateComment(pair.AdviceComment, ctx); !res.IsValid {
		return res
	}

	w, a := pair.WeatherComment.Text, pair.AdviceComment.Text
	checks := []func(w, a string, ctx Context) models.ValidationResult{
		e.checkContradiction,
		e.checkTemperatureSymptom,
		e.checkDuplication,
		e.checkTone,
		e.checkUmbrella,
		e.checkTimeBand,
		e.checkContinuousRain,
		e.checkSeasonal,
	}
	for _, check := range checks {
		if res := check(w, a, ctx); !res.IsValid {
			return res
		}
	}
	return models.Valid()
}

// containsAny returns the first word of words contained in s.
func containsAny(s string, words []string) (string, bool) {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}

// nameMatches reports whether the location name contains any of the names.
func nameMatches(location string, names []string) bool {
	_, ok := containsAny(location, names)
	return ok
}
