package llm

import (
	"strings"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/models"
)

// Hard default texts used when even the candidate lists are empty.
const (
	fallbackWeatherText = "本日の天気情報です"
	fallbackAdviceText  = "安全にお過ごしください"
)

// FallbackPair builds a pair without the LLM when selection is impossible.
// Rain forecasts prefer rain copy, extreme heat prefers heat copy, otherwise
// the first candidate wins. Empty candidate lists fall back to fixed texts.
func FallbackPair(f models.Forecast, th config.Thresholds, weather, advice []models.PastComment) models.CommentPair {
	var keywords []string
	switch {
	case f.Condition.IsRainy() || f.Precipitation >= th.RainyPrecipMM:
		keywords = []string{"雨", "傘"}
	case f.Temperature >= th.ExtremeHeatC:
		keywords = []string{"暑", "熱中症"}
	}

	pair := models.CommentPair{
		WeatherComment:  pickFallback(weather, keywords, models.CommentTypeWeather, fallbackWeatherText),
		AdviceComment:   pickFallback(advice, keywords, models.CommentTypeAdvice, fallbackAdviceText),
		SelectionReason: "fallback",
	}
	pair.SimilarityScore = models.TextSimilarity(pair.WeatherComment.Text, pair.AdviceComment.Text)
	return pair
}

func pickFallback(candidates []models.PastComment, keywords []string, typ models.CommentType, hardDefault string) models.PastComment {
	for _, kw := range keywords {
		for _, c := range candidates {
			if strings.Contains(c.Text, kw) {
				return c
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return models.PastComment{Text: hardDefault, Type: typ}
}
