// Package selector asks the configured language model to pick a weather and
// advice comment pair from ranked candidates, re-checking its answers
// against the validation engine before accepting them.
package selector

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/llm"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
	"github.com/soratext/soratext/internal/validation"
)

const (
	maxWeatherCandidates = 100
	maxAdviceCandidates  = 50
	maxAlternatives      = 10
)

// Selector runs the LLM-assisted pair selection.
type Selector struct {
	provider llm.Provider
	engine   *validation.Engine
	th       config.Thresholds
	lex      config.Lexicons
	logger   *zap.Logger
}

// New builds a selector. logger may be nil.
func New(provider llm.Provider, engine *validation.Engine, th config.Thresholds, lex config.Lexicons, logger *zap.Logger) *Selector {
	return &Selector{provider: provider, engine: engine, th: th, lex: lex, logger: logger}
}

// SelectPair picks one valid pair, or nil when no acceptable pair exists.
// The excluded set holds pair keys rejected in earlier pipeline retries.
func (s *Selector) SelectPair(ctx context.Context, weatherCands, adviceCands []models.PastComment, vctx validation.Context, excluded map[string]bool) (*models.CommentPair, error) {
	weather := s.prepare(weatherCands, vctx, maxWeatherCandidates)
	advice := s.prepare(adviceCands, vctx, maxAdviceCandidates)
	if len(weather) == 0 || len(advice) == 0 {
		return nil, nil
	}

	wIdx := s.choose(ctx, "天気コメント", weather, vctx)
	aIdx := s.choose(ctx, "アドバイス", advice, vctx)

	// Walk alternative combinations around the model's choice until one
	// passes the pair battery and the contradiction re-check.
	for attempt := 0; attempt < maxAlternatives; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			observability.SelectionRetriesTotal.Inc()
		}

		pair := models.CommentPair{
			WeatherComment:  weather[(wIdx+attempt/2)%len(weather)],
			AdviceComment:   advice[(aIdx+(attempt+1)/2)%len(advice)],
			SelectionReason: s.provider.Name(),
		}
		pair.SimilarityScore = models.TextSimilarity(pair.WeatherComment.Text, pair.AdviceComment.Text)
		if excluded[pair.Key()] {
			continue
		}
		if res := s.engine.ValidatePair(pair, vctx); !res.IsValid {
			if s.logger != nil {
				s.logger.Debug("pair rejected",
					zap.String("rule", res.Rule),
					zap.String("reason", res.Reason))
			}
			continue
		}
		if s.contradicts(ctx, pair, vctx.Weather) {
			continue
		}
		return &pair, nil
	}

	// Alternatives exhausted: scavenge a keyword-matched fallback pair,
	// accepted only when the pair battery passes.
	fb := llm.FallbackPair(vctx.Weather, s.th, weather, advice)
	if !excluded[fb.Key()] {
		if res := s.engine.ValidatePair(fb, vctx); res.IsValid {
			return &fb, nil
		}
	}
	return nil, nil
}

// prepare drops per-comment-invalid candidates, ranks the rest and caps the
// list length.
func (s *Selector) prepare(candidates []models.PastComment, vctx validation.Context, limit int) []models.PastComment {
	var valid []models.PastComment
	for _, c := range candidates {
		if res := s.engine.ValidateComment(c, vctx); res.IsValid {
			valid = append(valid, c)
		}
	}
	ranked := s.rank(valid, vctx.Weather)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// rank orders candidates into three tiers: warning copy when the forecast is
// severe, candidates whose recorded condition matches the forecast
// description, then everything else. Order within a tier is preserved.
func (s *Selector) rank(candidates []models.PastComment, f models.Forecast) []models.PastComment {
	severe := f.Condition.IsSevere() || f.Precipitation >= s.th.HeavyRainMM

	var first, second, rest []models.PastComment
	for _, c := range candidates {
		switch {
		case severe && containsAnyWord(c.Text, s.lex.WarningWords):
			first = append(first, c)
		case c.WeatherCondition != "" && descriptionMatches(c.WeatherCondition, f.Description):
			second = append(second, c)
		default:
			rest = append(rest, c)
		}
	}
	out := make([]models.PastComment, 0, len(candidates))
	out = append(out, first...)
	out = append(out, second...)
	out = append(out, rest...)
	return out
}

// choose asks the model for a 1-based candidate number and returns the
// 0-based index. Any failure degrades to the top-ranked candidate.
func (s *Selector) choose(ctx context.Context, kind string, candidates []models.PastComment, vctx validation.Context) int {
	reply, err := s.provider.Generate(ctx, buildChoicePrompt(kind, candidates, vctx.Weather, vctx.Period))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("llm choice failed, using top ranked", zap.String("kind", kind), zap.Error(err))
		}
		return 0
	}
	n, ok := parseChoice(reply, len(candidates))
	if !ok {
		if s.logger != nil {
			s.logger.Warn("unparseable llm choice, using top ranked",
				zap.String("kind", kind), zap.String("reply", reply))
		}
		return 0
	}
	return n - 1
}

// contradicts runs the yes/no re-check. LLM failures do not veto the pair.
func (s *Selector) contradicts(ctx context.Context, pair models.CommentPair, f models.Forecast) bool {
	reply, err := s.provider.Generate(ctx, buildContradictionPrompt(pair, f))
	if err != nil {
		return false
	}
	return parseYesNo(reply)
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func descriptionMatches(condition, description string) bool {
	if condition == "" || description == "" {
		return false
	}
	return strings.Contains(condition, description) || strings.Contains(description, condition)
}
