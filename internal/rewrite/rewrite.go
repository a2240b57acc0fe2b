// Package rewrite applies last-resort substitutions to a selected pair so
// that copy surviving validation still cannot mislead about rain, glare or
// heatstroke risk. Rewriting never fails; it only replaces text.
package rewrite

import (
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/forecast"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

// Rewriter holds the thresholds and replacement pools.
type Rewriter struct {
	th     config.Thresholds
	lex    config.Lexicons
	logger *zap.Logger
}

// New builds a rewriter. logger may be nil.
func New(th config.Thresholds, lex config.Lexicons, logger *zap.Logger) *Rewriter {
	return &Rewriter{th: th, lex: lex, logger: logger}
}

// Rewrite returns the pair with unsafe copy replaced. f is the forecast the
// pair was selected against and period the surrounding report hours, used to
// detect long stretches of rain. candidates supplies ranked replacement
// weather comments; the embedded pools cover the rest. The result is stable:
// rewriting an already-rewritten pair changes nothing.
func (r *Rewriter) Rewrite(pair models.CommentPair, f models.Forecast, period []models.Forecast, target time.Time, candidates []models.PastComment) models.CommentPair {
	raining := f.Condition.IsRainy() || f.Precipitation >= r.th.RainyPrecipMM
	wetDay := raining || forecast.ContinuousRain(period, r.th.RainyPrecipMM, r.th.ContinuousRainHours)

	// Promising a changeable sky on a clear day reads as a forecast error.
	if f.Condition.IsSunny() {
		if word, ok := containsAny(pair.WeatherComment.Text, r.lex.ChangeableWords); ok {
			pair.WeatherComment = r.replaceChangeable(pair.WeatherComment, f.Temperature, candidates, word)
		}
	}

	if wetDay {
		if word, ok := containsAny(pair.WeatherComment.Text, r.lex.PleasantWords); ok {
			pair.WeatherComment = r.replaceWithRainCopy(pair.WeatherComment, candidates, word)
		}
		if word, ok := containsAny(pair.AdviceComment.Text, r.lex.PleasantWords); ok {
			old := pair.AdviceComment.Text
			pair.AdviceComment.Text = pick(r.lex.RainAdvice, old)
			r.record("pleasant_in_rain", word, old, pair.AdviceComment.Text)
		}
	}

	if f.Condition.IsCloudy() {
		if word, ok := containsAny(pair.WeatherComment.Text, r.lex.GlareWords); ok {
			old := pair.WeatherComment.Text
			pair.WeatherComment.Text = pick(r.lex.CloudyComments, old)
			r.record("glare_in_cloud", word, old, pair.WeatherComment.Text)
		}
	}

	// 残暑 is early-autumn vocabulary; inside summer it reads as a mistake.
	month := int(target.In(models.JST).Month())
	if month >= 6 && month <= 8 {
		for _, c := range []*models.PastComment{&pair.WeatherComment, &pair.AdviceComment} {
			if strings.Contains(c.Text, "残暑") {
				old := c.Text
				c.Text = strings.ReplaceAll(c.Text, "残暑", "暑さ")
				r.record("lingering_heat", "残暑", old, c.Text)
			}
		}
	}

	if strings.Contains(pair.AdviceComment.Text, "熱中症") &&
		f.Temperature < r.th.HeatstrokeRewriteC && raining {
		old := pair.AdviceComment.Text
		pair.AdviceComment.Text = pick(r.lex.RainAdvice, old)
		r.record("heatstroke_in_rain", "熱中症", old, pair.AdviceComment.Text)
	}

	return pair
}

// replaceChangeable swaps a changeable-sky comment for the highest-ranked
// candidate that lacks the pattern and matches the forecast's temperature
// band. With no suitable candidate the original stays and a warning is
// logged; inventing sunny copy is worse than keeping a hedge.
func (r *Rewriter) replaceChangeable(c models.PastComment, temp float64, candidates []models.PastComment, word string) models.PastComment {
	band := r.th.TemperatureBand(temp)
	for _, cand := range candidates {
		if cand.Text == c.Text {
			continue
		}
		if _, hit := containsAny(cand.Text, r.lex.ChangeableWords); hit {
			continue
		}
		if cand.HasTemperature && r.th.TemperatureBand(cand.Temperature) != band {
			continue
		}
		r.record("changeable_sky", word, c.Text, cand.Text)
		return cand
	}
	if r.logger != nil {
		r.logger.Warn("no replacement for changeable-sky comment",
			zap.String("trigger", word),
			zap.String("text", c.Text),
			zap.String("band", band))
	}
	return c
}

// replaceWithRainCopy swaps the weather comment for a rain-appropriate
// candidate, falling back to the embedded rain pool. The replacement must
// not itself carry pleasant words, or a second pass would rewrite again.
func (r *Rewriter) replaceWithRainCopy(c models.PastComment, candidates []models.PastComment, word string) models.PastComment {
	old := c.Text
	for _, cand := range candidates {
		if cand.Text == old || !strings.Contains(cand.Text, "雨") {
			continue
		}
		if _, hit := containsAny(cand.Text, r.lex.PleasantWords); hit {
			continue
		}
		c = cand
		r.record("pleasant_in_rain", word, old, c.Text)
		return c
	}
	c.Text = pick(r.lex.RainComments, old)
	r.record("pleasant_in_rain", word, old, c.Text)
	return c
}

func (r *Rewriter) record(rule, word, old, replacement string) {
	observability.RewriteTotal.WithLabelValues(rule).Inc()
	if r.logger != nil {
		r.logger.Info("safety rewrite",
			zap.String("rule", rule),
			zap.String("trigger", word),
			zap.String("from", old),
			zap.String("to", replacement))
	}
}

// pick selects a pool entry deterministically from the replaced text, so the
// same input always rewrites to the same output.
func pick(pool []string, seed string) string {
	if len(pool) == 0 {
		return seed
	}
	return pool[xxhash.Sum64String(seed)%uint64(len(pool))]
}

func containsAny(s string, words []string) (string, bool) {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}
