package selector

import (
	"fmt"
	"strings"

	"github.com/soratext/soratext/internal/forecast"
	"github.com/soratext/soratext/internal/models"
)

// buildChoicePrompt renders the numbered candidate list with the forecast
// context and asks for one number back.
func buildChoicePrompt(kind string, candidates []models.PastComment, f models.Forecast, period []models.Forecast) string {
	var b strings.Builder
	fmt.Fprintf(&b, "あなたは天気コメントの編集者です。以下の予報に最も合う%sを1つ選んでください。\n\n", kind)
	fmt.Fprintf(&b, "予報: %s、気温%.1f℃、降水量%.1fmm/h、湿度%.0f%%、風速%.1fm/s\n",
		f.Description, f.Temperature, f.Precipitation, f.Humidity, f.WindSpeed)
	fmt.Fprintf(&b, "対象時刻: %s\n", f.Timestamp.In(models.JST).Format("1月2日15時"))
	if len(period) >= 2 {
		parts := make([]string, 0, len(period))
		for _, p := range period {
			parts = append(parts, fmt.Sprintf("%d時 %s %.1f℃",
				p.Timestamp.In(models.JST).Hour(), p.Description, p.Temperature))
		}
		fmt.Fprintf(&b, "時間帯別: %s\n", strings.Join(parts, " / "))
		fmt.Fprintf(&b, "天気傾向: %s\n", trendLabel(forecast.AnalyzeTrend(period)))
	}
	b.WriteString("\n候補:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s（使用回数: %d）\n", i+1, c.Text, c.UsageCount)
	}
	b.WriteString("\n番号のみを答えてください。\n")
	return b.String()
}

func trendLabel(t forecast.Trend) string {
	switch t {
	case forecast.TrendImproving:
		return "回復傾向"
	case forecast.TrendDeteriorating:
		return "下り坂"
	default:
		return "安定"
	}
}

// buildContradictionPrompt asks whether the selected pair contradicts the
// forecast. The expected reply is はい or いいえ.
func buildContradictionPrompt(pair models.CommentPair, f models.Forecast) string {
	var b strings.Builder
	fmt.Fprintf(&b, "予報: %s、気温%.1f℃、降水量%.1fmm/h\n", f.Description, f.Temperature, f.Precipitation)
	fmt.Fprintf(&b, "天気コメント: %s\nアドバイス: %s\n\n", pair.WeatherComment.Text, pair.AdviceComment.Text)
	b.WriteString("このコメントの組み合わせは予報と矛盾していますか。はい/いいえのみで答えてください。\n")
	return b.String()
}
