package rewrite

import (
	"strings"
	"testing"
	"time"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/models"
)

func newTestRewriter() *Rewriter {
	return New(config.DefaultThresholds(), config.DefaultLexicons(), nil)
}

func jst(month time.Month, hour int) time.Time {
	return time.Date(2024, month, 15, hour, 0, 0, 0, models.JST)
}

func pairOf(w, a string) models.CommentPair {
	return models.CommentPair{
		WeatherComment: models.PastComment{Text: w, Type: models.CommentTypeWeather},
		AdviceComment:  models.PastComment{Text: a, Type: models.CommentTypeAdvice},
	}
}

func rainyPeriod(hours int) []models.Forecast {
	day := time.Date(2024, 6, 15, 9, 0, 0, 0, models.JST)
	out := make([]models.Forecast, hours)
	for i := range out {
		out[i] = models.Forecast{
			Timestamp:     day.Add(time.Duration(i) * time.Hour),
			Condition:     models.ConditionRain,
			Description:   "雨",
			Precipitation: 2,
		}
	}
	return out
}

func TestChangeableSkyOnClearDay(t *testing.T) {
	r := newTestRewriter()
	sunny := models.Forecast{Condition: models.ConditionClear, Description: "晴れ", Temperature: 28}
	pair := pairOf("変わりやすい空になりそうです", "日焼け対策を忘れずに")

	candidates := []models.PastComment{
		{Text: "変わりやすい天気でしょう", Type: models.CommentTypeWeather},
		{Text: "青空が広がるでしょう", Type: models.CommentTypeWeather},
	}
	got := r.Rewrite(pair, sunny, nil, jst(time.June, 9), candidates)
	if got.WeatherComment.Text != "青空が広がるでしょう" {
		t.Errorf("weather = %q, want the first candidate without changeable copy", got.WeatherComment.Text)
	}
	if strings.Contains(got.WeatherComment.Text, "変わりやすい") {
		t.Errorf("changeable copy survived a clear forecast: %q", got.WeatherComment.Text)
	}
	if got.AdviceComment.Text != pair.AdviceComment.Text {
		t.Error("advice changed without cause")
	}
}

func TestChangeableSkyRespectsTemperatureBand(t *testing.T) {
	r := newTestRewriter()
	// 28°C sits in the moderate_warm band; a candidate annotated 38°C
	// belongs to very_hot and must be skipped.
	sunny := models.Forecast{Condition: models.ConditionClear, Temperature: 28}
	pair := pairOf("不安定な空になりそうです", "水分補給を心がけて")

	candidates := []models.PastComment{
		{Text: "猛烈な暑さの一日です", Type: models.CommentTypeWeather, Temperature: 38, HasTemperature: true},
		{Text: "過ごしやすい陽気でしょう", Type: models.CommentTypeWeather, Temperature: 27, HasTemperature: true},
	}
	got := r.Rewrite(pair, sunny, nil, jst(time.June, 9), candidates)
	if got.WeatherComment.Text != "過ごしやすい陽気でしょう" {
		t.Errorf("weather = %q, want the band-matched candidate", got.WeatherComment.Text)
	}
}

func TestChangeableSkyKeptWithoutReplacement(t *testing.T) {
	r := newTestRewriter()
	sunny := models.Forecast{Condition: models.ConditionClear, Temperature: 28}
	pair := pairOf("変わりやすい天気でしょう", "日焼け対策を忘れずに")

	// Every candidate is itself changeable copy, so nothing qualifies and
	// the original survives.
	candidates := []models.PastComment{
		{Text: "変わりやすい空になりそうです", Type: models.CommentTypeWeather},
	}
	got := r.Rewrite(pair, sunny, nil, jst(time.June, 9), candidates)
	if got.WeatherComment.Text != pair.WeatherComment.Text {
		t.Errorf("weather = %q, want the original kept when no candidate fits", got.WeatherComment.Text)
	}
}

func TestChangeableSkyNotTouchedUnderRain(t *testing.T) {
	r := newTestRewriter()
	rain := models.Forecast{Condition: models.ConditionRain, Precipitation: 3, Temperature: 20}
	pair := pairOf("変わりやすい空になりそうです", "足元にお気をつけください")

	got := r.Rewrite(pair, rain, nil, jst(time.June, 9), nil)
	if got.WeatherComment.Text != pair.WeatherComment.Text {
		t.Errorf("weather = %q; changeable copy is honest under rain", got.WeatherComment.Text)
	}
}

func TestPleasantCopyUnderRain(t *testing.T) {
	r := newTestRewriter()
	rain := models.Forecast{Condition: models.ConditionRain, Precipitation: 5, Temperature: 18}
	pair := pairOf("お出かけ日和になりそうです", "傘をお忘れなく")

	got := r.Rewrite(pair, rain, nil, jst(time.June, 9), nil)
	if strings.Contains(got.WeatherComment.Text, "お出かけ日和") {
		t.Errorf("pleasant copy survived under rain: %q", got.WeatherComment.Text)
	}
	pool := config.DefaultLexicons().RainComments
	found := false
	for _, p := range pool {
		if got.WeatherComment.Text == p {
			found = true
		}
	}
	if !found {
		t.Errorf("replacement %q not drawn from the rain pool", got.WeatherComment.Text)
	}
}

func TestPleasantCopyPrefersRainCandidate(t *testing.T) {
	r := newTestRewriter()
	rain := models.Forecast{Condition: models.ConditionRain, Precipitation: 5, Temperature: 18}
	pair := pairOf("穏やかな一日になりそうです", "傘をお忘れなく")

	candidates := []models.PastComment{
		{Text: "青空が広がるでしょう", Type: models.CommentTypeWeather},
		{Text: "雨の降りやすい空です", Type: models.CommentTypeWeather},
	}
	got := r.Rewrite(pair, rain, nil, jst(time.June, 9), candidates)
	if got.WeatherComment.Text != "雨の降りやすい空です" {
		t.Errorf("weather = %q, want the rain-appropriate candidate", got.WeatherComment.Text)
	}
}

func TestPleasantAdviceUnderRain(t *testing.T) {
	r := newTestRewriter()
	rain := models.Forecast{Condition: models.ConditionRain, Precipitation: 5, Temperature: 18}
	pair := pairOf("雨の降りやすい一日です", "お出かけ日和を楽しんで")

	got := r.Rewrite(pair, rain, nil, jst(time.June, 9), nil)
	if strings.Contains(got.AdviceComment.Text, "お出かけ日和") {
		t.Errorf("pleasant advice survived under rain: %q", got.AdviceComment.Text)
	}
	pool := config.DefaultLexicons().RainAdvice
	found := false
	for _, p := range pool {
		if got.AdviceComment.Text == p {
			found = true
		}
	}
	if !found {
		t.Errorf("advice replacement %q not drawn from the rain advice pool", got.AdviceComment.Text)
	}
}

func TestPleasantCopyUnderContinuousRain(t *testing.T) {
	r := newTestRewriter()
	// The selected hour itself is dry, but four of the surrounding report
	// hours are rain: the day still is not pleasant.
	cloudy := models.Forecast{Condition: models.ConditionCloudy, Temperature: 21}
	pair := pairOf("穏やかな一日になりそうです", "のんびりお過ごしください")

	got := r.Rewrite(pair, cloudy, rainyPeriod(4), jst(time.June, 9), nil)
	if strings.Contains(got.WeatherComment.Text, "穏やか") {
		t.Errorf("pleasant copy survived a rain-soaked period: %q", got.WeatherComment.Text)
	}
	if strings.Contains(got.AdviceComment.Text, "のんびり") {
		t.Errorf("pleasant advice survived a rain-soaked period: %q", got.AdviceComment.Text)
	}

	// Three rainy hours fall short of the threshold.
	kept := r.Rewrite(pair, cloudy, rainyPeriod(3), jst(time.June, 9), nil)
	if kept.WeatherComment.Text != pair.WeatherComment.Text {
		t.Errorf("pleasant copy rewritten below the continuous-rain threshold: %q", kept.WeatherComment.Text)
	}
}

func TestGlareCopyUnderCloud(t *testing.T) {
	r := newTestRewriter()
	cloudy := models.Forecast{Condition: models.ConditionCloudy, Temperature: 22}
	pair := pairOf("強い日差しに注意です", "帽子があると安心です")

	got := r.Rewrite(pair, cloudy, nil, jst(time.May, 9), nil)
	if strings.Contains(got.WeatherComment.Text, "日差し") {
		t.Errorf("glare copy survived under cloud: %q", got.WeatherComment.Text)
	}
}

func TestLingeringHeatInSummer(t *testing.T) {
	r := newTestRewriter()
	clear := models.Forecast{Condition: models.ConditionClear, Temperature: 33}
	pair := pairOf("残暑が厳しいでしょう", "残暑対策を忘れずに")

	got := r.Rewrite(pair, clear, nil, jst(time.July, 9), nil)
	if got.WeatherComment.Text != "暑さが厳しいでしょう" {
		t.Errorf("weather = %q, want 残暑 replaced with 暑さ", got.WeatherComment.Text)
	}
	if got.AdviceComment.Text != "暑さ対策を忘れずに" {
		t.Errorf("advice = %q, want 残暑 replaced in both halves", got.AdviceComment.Text)
	}

	// In September 残暑 is legitimate vocabulary.
	sept := r.Rewrite(pair, clear, nil, jst(time.September, 9), nil)
	if sept.WeatherComment.Text != pair.WeatherComment.Text {
		t.Errorf("September rewrite changed %q", sept.WeatherComment.Text)
	}
}

func TestHeatstrokeAdviceInCoolRain(t *testing.T) {
	r := newTestRewriter()
	coolRain := models.Forecast{Condition: models.ConditionRain, Precipitation: 4, Temperature: 22}
	pair := pairOf("雨の降りやすい一日です", "熱中症に気をつけてください")

	got := r.Rewrite(pair, coolRain, nil, jst(time.June, 9), nil)
	if strings.Contains(got.AdviceComment.Text, "熱中症") {
		t.Errorf("heatstroke advice survived cool rain: %q", got.AdviceComment.Text)
	}

	// Hot rain keeps the advice; heatstroke is still plausible.
	hotRain := coolRain
	hotRain.Temperature = 32
	kept := r.Rewrite(pair, hotRain, nil, jst(time.June, 9), nil)
	if kept.AdviceComment.Text != pair.AdviceComment.Text {
		t.Errorf("heatstroke advice dropped at 32°C: %q", kept.AdviceComment.Text)
	}
}

func TestRewriteIdempotent(t *testing.T) {
	r := newTestRewriter()
	tests := []struct {
		name   string
		f      models.Forecast
		period []models.Forecast
		pair   models.CommentPair
	}{
		{
			name: "rain with pleasant and heatstroke copy",
			f:    models.Forecast{Condition: models.ConditionRain, Precipitation: 3, Temperature: 20},
			pair: pairOf("お出かけ日和になりそうです", "熱中症に気をつけてください"),
		},
		{
			name: "clear with changeable copy",
			f:    models.Forecast{Condition: models.ConditionClear, Temperature: 28},
			pair: pairOf("変わりやすい空になりそうです", "日焼け対策を忘れずに"),
		},
		{
			name:   "continuous rain with pleasant advice",
			f:      models.Forecast{Condition: models.ConditionCloudy, Temperature: 21},
			period: rainyPeriod(4),
			pair:   pairOf("穏やかな一日になりそうです", "のんびりお過ごしください"),
		},
	}
	candidates := []models.PastComment{
		{Text: "青空が広がるでしょう", Type: models.CommentTypeWeather},
		{Text: "雨の降りやすい空です", Type: models.CommentTypeWeather},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := r.Rewrite(tt.pair, tt.f, tt.period, jst(time.July, 9), candidates)
			twice := r.Rewrite(once, tt.f, tt.period, jst(time.July, 9), candidates)
			if once != twice {
				t.Errorf("rewrite not stable:\nonce:  %+v\ntwice: %+v", once, twice)
			}
		})
	}
}

func TestRewriteLeavesCleanPairAlone(t *testing.T) {
	r := newTestRewriter()
	rain := models.Forecast{Condition: models.ConditionRain, Precipitation: 3, Temperature: 20}
	pair := pairOf("雨の降りやすい一日です", "傘をお忘れなく")

	got := r.Rewrite(pair, rain, nil, jst(time.June, 9), nil)
	if got != pair {
		t.Errorf("clean pair modified: %+v", got)
	}
}

func TestPickDeterministic(t *testing.T) {
	pool := []string{"a", "b", "c"}
	if pick(pool, "seed") != pick(pool, "seed") {
		t.Error("pick not deterministic for equal seeds")
	}
	if got := pick(nil, "seed"); got != "seed" {
		t.Errorf("empty pool pick = %q, want the seed back", got)
	}
}
