package selector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soratext/soratext/internal/config"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/validation"
)

// scriptedProvider returns canned replies in order, then keeps repeating the
// last one. err short-circuits every call.
type scriptedProvider struct {
	replies []string
	err     error
	calls   int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "1", nil
	}
	i := p.calls - 1
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	return p.replies[i], nil
}

func newTestSelector(p *scriptedProvider) *Selector {
	th := config.DefaultThresholds()
	lex := config.DefaultLexicons()
	engine := validation.NewEngine(th, lex, nil)
	return New(p, engine, th, lex, nil)
}

func testVCtx() validation.Context {
	target := time.Date(2024, 7, 5, 9, 0, 0, 0, models.JST)
	return validation.Context{
		Weather: models.Forecast{
			Condition:   models.ConditionClear,
			Description: "晴れ",
			Temperature: 26,
			Humidity:    55,
			Timestamp:   target,
		},
		Target:   target,
		Location: "東京",
	}
}

func weatherCands() []models.PastComment {
	return []models.PastComment{
		{Text: "日中は青空が広がるでしょう", Type: models.CommentTypeWeather, WeatherCondition: "晴れ"},
		{Text: "過ごしやすい陽気になりそうです", Type: models.CommentTypeWeather, WeatherCondition: "晴れ"},
		{Text: "夕方まで安定した空です", Type: models.CommentTypeWeather, WeatherCondition: "曇り"},
	}
}

func adviceCands() []models.PastComment {
	return []models.PastComment{
		{Text: "水分補給を心がけてください", Type: models.CommentTypeAdvice},
		{Text: "帽子があると安心です", Type: models.CommentTypeAdvice},
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		reply  string
		max    int
		want   int
		wantOK bool
	}{
		{"3", 5, 3, true},
		{"  2  ", 5, 2, true},
		{"4です", 5, 4, true},
		{"答え: 3", 5, 3, true},
		{"答え：5", 5, 5, true},
		{"選択 2", 5, 2, true},
		{"回答:1", 5, 1, true},
		{"おすすめは2番です", 5, 2, true},
		{"候補の中では 3 が最適です", 5, 3, true},
		{"0", 5, 0, false},
		{"6", 5, 0, false},
		{"わかりません", 5, 0, false},
		{"", 5, 0, false},
		{"100から2を選びます", 5, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, ok := parseChoice(tt.reply, tt.max)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("parseChoice(%q, %d) = (%d, %v), want (%d, %v)",
					tt.reply, tt.max, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBuildChoicePromptNumbersCandidates(t *testing.T) {
	cands := []models.PastComment{
		{Text: "日中は青空が広がるでしょう", UsageCount: 12},
		{Text: "過ごしやすい陽気になりそうです", UsageCount: 3},
	}
	f := testVCtx().Weather
	day := f.Timestamp
	period := []models.Forecast{
		{Timestamp: day, Description: "晴れ", Temperature: 26, Condition: models.ConditionClear},
		{Timestamp: day.Add(3 * time.Hour), Description: "晴れ", Temperature: 28, Condition: models.ConditionClear},
	}
	prompt := buildChoicePrompt("天気コメント", cands, f, period)

	for _, want := range []string{
		"1. 日中は青空が広がるでしょう（使用回数: 12）",
		"2. 過ごしやすい陽気になりそうです（使用回数: 3）",
		"晴れ",
		"気温26.0℃",
		"9時 晴れ 26.0℃ / 12時 晴れ 28.0℃",
		"天気傾向: 安定",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// A single-hour period carries no trend information and is omitted.
	short := buildChoicePrompt("天気コメント", cands, f, period[:1])
	if strings.Contains(short, "天気傾向") {
		t.Error("trend line rendered for a single-hour period")
	}
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"はい", true},
		{"Yes, they conflict.", true},
		{"矛盾しています", true},
		{"明らかに矛盾があると思います", true},
		{"いいえ", false},
		{"no", false},
		{"判断できません", false},
	}
	for _, tt := range tests {
		if got := parseYesNo(tt.reply); got != tt.want {
			t.Errorf("parseYesNo(%q) = %v, want %v", tt.reply, got, tt.want)
		}
	}
}

func TestSelectPairUsesModelChoice(t *testing.T) {
	// Weather choice 2, advice choice 1, contradiction check answers no.
	p := &scriptedProvider{replies: []string{"2", "1", "いいえ"}}
	s := newTestSelector(p)

	pair, err := s.SelectPair(context.Background(), weatherCands(), adviceCands(), testVCtx(), nil)
	if err != nil {
		t.Fatalf("SelectPair: %v", err)
	}
	if pair == nil {
		t.Fatal("SelectPair returned nil pair")
	}
	if pair.WeatherComment.Text != "過ごしやすい陽気になりそうです" {
		t.Errorf("weather = %q, want the model's second choice", pair.WeatherComment.Text)
	}
	if pair.AdviceComment.Text != "水分補給を心がけてください" {
		t.Errorf("advice = %q, want the model's first choice", pair.AdviceComment.Text)
	}
	if pair.SelectionReason != "scripted" {
		t.Errorf("selection reason = %q, want provider name", pair.SelectionReason)
	}
}

func TestSelectPairDegradesOnProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("model unavailable")}
	s := newTestSelector(p)

	pair, err := s.SelectPair(context.Background(), weatherCands(), adviceCands(), testVCtx(), nil)
	if err != nil {
		t.Fatalf("SelectPair: %v", err)
	}
	if pair == nil {
		t.Fatal("provider failure must degrade to top-ranked, not nil")
	}
	if pair.WeatherComment.Text != "日中は青空が広がるでしょう" {
		t.Errorf("weather = %q, want the top-ranked candidate", pair.WeatherComment.Text)
	}
}

func TestSelectPairSkipsExcluded(t *testing.T) {
	p := &scriptedProvider{replies: []string{"1", "1", "いいえ"}}
	s := newTestSelector(p)

	first := models.CommentPair{
		WeatherComment: weatherCands()[0],
		AdviceComment:  adviceCands()[0],
	}
	excluded := map[string]bool{first.Key(): true}

	pair, err := s.SelectPair(context.Background(), weatherCands(), adviceCands(), testVCtx(), excluded)
	if err != nil {
		t.Fatalf("SelectPair: %v", err)
	}
	if pair == nil {
		t.Fatal("SelectPair returned nil despite available alternatives")
	}
	if pair.Key() == first.Key() {
		t.Error("excluded pair was selected again")
	}
}

func TestSelectPairEmptyCandidates(t *testing.T) {
	p := &scriptedProvider{}
	s := newTestSelector(p)

	pair, err := s.SelectPair(context.Background(), nil, adviceCands(), testVCtx(), nil)
	if err != nil || pair != nil {
		t.Errorf("SelectPair with no weather candidates = (%v, %v), want (nil, nil)", pair, err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times with empty candidates", p.calls)
	}
}

func TestSelectPairFiltersInvalidCandidates(t *testing.T) {
	p := &scriptedProvider{replies: []string{"1", "1", "いいえ"}}
	s := newTestSelector(p)

	// The first weather candidate contradicts the clear forecast and must be
	// dropped before ranking, making the clean one the top choice.
	cands := []models.PastComment{
		{Text: "にわか雨がありそうです", Type: models.CommentTypeWeather},
		{Text: "穏やかな空が続くでしょう", Type: models.CommentTypeWeather, WeatherCondition: "晴れ"},
	}
	pair, err := s.SelectPair(context.Background(), cands, adviceCands(), testVCtx(), nil)
	if err != nil || pair == nil {
		t.Fatalf("SelectPair = (%v, %v)", pair, err)
	}
	if pair.WeatherComment.Text != "穏やかな空が続くでしょう" {
		t.Errorf("weather = %q, invalid candidate survived filtering", pair.WeatherComment.Text)
	}
}

func TestSelectPairDeterministicWithFrozenReplies(t *testing.T) {
	run := func() *models.CommentPair {
		t.Helper()
		p := &scriptedProvider{replies: []string{"2", "1", "いいえ"}}
		s := newTestSelector(p)
		pair, err := s.SelectPair(context.Background(), weatherCands(), adviceCands(), testVCtx(), nil)
		if err != nil || pair == nil {
			t.Fatalf("SelectPair = (%v, %v)", pair, err)
		}
		return pair
	}
	a, b := run(), run()
	if a.Key() != b.Key() {
		t.Errorf("same inputs, same replies: %q vs %q", a.Key(), b.Key())
	}
}

func TestRankPrefersWarningCopyWhenSevere(t *testing.T) {
	s := newTestSelector(&scriptedProvider{})
	f := models.Forecast{Condition: models.ConditionHeavyRain, Description: "大雨", Precipitation: 20}

	cands := []models.PastComment{
		{Text: "雨の一日です", WeatherCondition: "雨"},
		{Text: "激しい雨に警戒してください", WeatherCondition: "大雨"},
	}
	ranked := s.rank(cands, f)
	if ranked[0].Text != "激しい雨に警戒してください" {
		t.Errorf("top ranked = %q, want the warning copy", ranked[0].Text)
	}
}

func TestRankPrefersMatchingDescription(t *testing.T) {
	s := newTestSelector(&scriptedProvider{})
	f := models.Forecast{Condition: models.ConditionCloudy, Description: "曇り"}

	cands := []models.PastComment{
		{Text: "a", WeatherCondition: "晴れ"},
		{Text: "b", WeatherCondition: "曇り"},
	}
	ranked := s.rank(cands, f)
	if ranked[0].Text != "b" {
		t.Errorf("top ranked = %q, want the condition match", ranked[0].Text)
	}
}

func TestContradictionRecheckFallsBack(t *testing.T) {
	// The model picks 1/1 but then flags every combination as contradictory,
	// exhausting the alternatives. The fallback finder supplies the pair
	// without a further contradiction check.
	p := &scriptedProvider{replies: []string{"1", "1", "はい"}}
	s := newTestSelector(p)

	pair, err := s.SelectPair(context.Background(), weatherCands(), adviceCands(), testVCtx(), nil)
	if err != nil {
		t.Fatalf("SelectPair: %v", err)
	}
	if pair == nil {
		t.Fatal("exhausted alternatives must yield the fallback pair, not nil")
	}
	if pair.SelectionReason != "fallback" {
		t.Errorf("selection reason = %q, want fallback", pair.SelectionReason)
	}
}

func TestSelectPairNilWhenEvenFallbackInvalid(t *testing.T) {
	// One rain candidate on each side with identical text: every combination
	// and the fallback pair trip the duplication rule, so nothing remains.
	target := time.Date(2024, 6, 10, 9, 0, 0, 0, models.JST)
	vctx := validation.Context{
		Weather: models.Forecast{
			Condition:     models.ConditionRain,
			Description:   "雨",
			Temperature:   20,
			Humidity:      70,
			Precipitation: 5,
			Timestamp:     target,
		},
		Target:   target,
		Location: "東京",
	}
	w := []models.PastComment{{Text: "雨が降り続くでしょう", Type: models.CommentTypeWeather}}
	a := []models.PastComment{{Text: "雨が降り続くでしょう", Type: models.CommentTypeAdvice}}

	p := &scriptedProvider{replies: []string{"1", "1"}}
	s := newTestSelector(p)

	pair, err := s.SelectPair(context.Background(), w, a, vctx, nil)
	if err != nil {
		t.Fatalf("SelectPair: %v", err)
	}
	if pair != nil {
		t.Errorf("got pair %q, want nil when even the fallback is invalid", pair.Key())
	}
}
