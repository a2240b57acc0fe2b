package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SeasonalRule bans a word group outside the months it may appear in.
type SeasonalRule struct {
	Words  []string `yaml:"words"`
	Months []int    `yaml:"months"`
}

// Lexicons holds every word list the validation engine, the pair rules and the
// safety rewriter consult. Lists ship as defaults and are replaced wholesale by
// config/validator_words.yaml and config/weather_forbidden_words.yaml when
// present.
type Lexicons struct {
	// Forbidden substrings per weather category (sunny / cloudy / rain /
	// heavy_rain). From weather_forbidden_words.yaml.
	WeatherForbidden map[string][]string `yaml:"weather_forbidden"`

	// Forbidden substrings per temperature band.
	TemperatureForbidden map[string][]string `yaml:"temperature_forbidden"`

	DryingWords     []string `yaml:"drying_words"`
	DehumidifyWords []string `yaml:"dehumidify_words"`

	OkinawaForbidden  []string `yaml:"okinawa_forbidden"`
	HokkaidoForbidden []string `yaml:"hokkaido_forbidden"`
	OkinawaNames      []string `yaml:"okinawa_names"`
	HokkaidoNames     []string `yaml:"hokkaido_names"`
	KyushuNames       []string `yaml:"kyushu_names"`
	CoastalNames      []string `yaml:"coastal_names"`

	PollenWords  []string `yaml:"pollen_words"`
	WarningWords []string `yaml:"warning_words"`

	PositiveWords    []string `yaml:"positive_words"`
	NegativeWords    []string `yaml:"negative_words"`
	EncouragingWords []string `yaml:"encouraging_words"`

	UmbrellaWords    []string `yaml:"umbrella_words"`
	CriticalKeywords []string `yaml:"critical_keywords"`

	SunnyWords []string `yaml:"sunny_words"`
	RainyWords []string `yaml:"rainy_words"`
	HotWords   []string `yaml:"hot_words"`
	ColdWords  []string `yaml:"cold_words"`

	SeaWords []string `yaml:"sea_words"`

	ChangeableWords []string `yaml:"changeable_words"`
	ShowerRainWords []string `yaml:"shower_rain_words"`
	PleasantWords   []string `yaml:"pleasant_words"`
	GlareWords      []string `yaml:"glare_words"`

	// Forbidden expressions per time window ("night": 20-05, "day": 10-15).
	TimeForbidden map[string][]string `yaml:"time_forbidden"`

	SeasonalRules []SeasonalRule `yaml:"seasonal_rules"`

	// Rewriter replacement pools.
	RainComments   []string `yaml:"rain_comments"`
	CloudyComments []string `yaml:"cloudy_comments"`
	RainAdvice     []string `yaml:"rain_advice"`
}

// DefaultLexicons returns the embedded word lists used when the YAML files are
// absent.
func DefaultLexicons() Lexicons {
	return Lexicons{
		WeatherForbidden: map[string][]string{
			"sunny":      {"変わりやすい空", "にわか雨", "傘の出番", "雨具", "ぐずつく", "すっきりしない天気"},
			"cloudy":     {"青空が広がる", "強い日差し", "ギラギラ", "日焼け対策", "快晴"},
			"rain":       {"青空", "快晴", "日差したっぷり", "お出かけ日和", "洗濯日和", "行楽日和", "星空"},
			"heavy_rain": {"青空", "快晴", "穏やか", "のんびり", "お出かけ日和", "散歩日和", "快適"},
		},
		TemperatureForbidden: map[string][]string{
			"very_hot":      {"肌寒い", "冷え込み", "凍える", "防寒"},
			"hot":           {"肌寒い", "冷え込み", "凍える", "防寒", "ひんやり"},
			"moderate_warm": {"猛暑", "酷暑", "凍える", "厳しい寒さ"},
			"mild":          {"熱中症", "猛暑", "酷暑", "凍える", "厳しい寒さ"},
			"cold":          {"熱中症", "猛暑", "酷暑", "蒸し暑い", "汗ばむ"},
			"very_cold":     {"熱中症", "猛暑", "酷暑", "蒸し暑い", "汗ばむ", "暖かい陽気"},
		},
		DryingWords:     []string{"乾燥", "うるおい補給", "保湿", "加湿"},
		DehumidifyWords: []string{"除湿", "ジメジメ", "湿気対策"},

		OkinawaForbidden:  []string{"雪", "積雪", "吹雪", "路面凍結", "厳しい冷え込み", "防寒"},
		HokkaidoForbidden: []string{"猛暑", "酷暑", "熱帯夜", "猛烈な暑さ"},
		OkinawaNames:      []string{"沖縄", "那覇", "石垣", "宮古島", "名護", "糸満", "うるま", "沖永良部"},
		HokkaidoNames:     []string{"北海道", "札幌", "旭川", "函館", "釧路", "帯広", "北見", "稚内", "室蘭"},
		KyushuNames:       []string{"九州", "福岡", "北九州", "熊本", "鹿児島", "宮崎", "大分", "長崎", "佐賀"},
		CoastalNames:      []string{"横浜", "神戸", "千葉", "新潟", "金沢", "静岡", "高知", "銚子", "境"},

		PollenWords:  []string{"花粉", "花粉症", "スギ花粉", "ヒノキ花粉", "花粉対策"},
		WarningWords: []string{"注意", "警戒", "危険", "気をつけ", "お気をつけ", "ご注意", "控え", "避け"},

		PositiveWords:    []string{"快適", "爽やか", "心地よい", "気持ちいい", "穏やか", "お出かけ日和", "絶好"},
		NegativeWords:    []string{"注意", "警戒", "危険", "荒れる", "大荒れ", "崩れる", "心配"},
		EncouragingWords: []string{"楽しみ", "備えて安心", "気をつけて楽しんで", "無理せず"},

		UmbrellaWords:    []string{"傘", "雨具", "レインコート", "カッパ"},
		CriticalKeywords: []string{"雷", "熱中症", "傘", "気温差", "乾燥", "花粉", "紫外線", "強風"},

		SunnyWords: []string{"青空", "快晴", "日差し", "晴れ", "太陽", "陽射し"},
		RainyWords: []string{"雨", "降水", "傘", "濡れ", "土砂降り", "にわか雨"},
		HotWords:   []string{"暑い", "暑さ", "猛暑", "熱中症", "蒸し暑い", "汗ばむ"},
		ColdWords:  []string{"寒い", "寒さ", "冷え", "凍える", "防寒", "肌寒い"},

		SeaWords: []string{"高波", "波浪", "潮風", "海辺", "しけ"},

		ChangeableWords: []string{"変わりやすい空", "変わりやすい天気", "不安定な空"},
		ShowerRainWords: []string{"にわか雨", "一時的な雨", "急な雨"},
		PleasantWords:   []string{"穏やか", "快適", "お出かけ日和", "晴れ間", "のんびり", "散歩日和"},
		GlareWords:      []string{"強い日差し", "ギラギラ"},

		TimeForbidden: map[string][]string{
			"night": {"日差し", "紫外線対策", "日焼け", "太陽がまぶしい"},
			"day":   {"星空", "月明かり", "夜空", "夜風"},
		},

		SeasonalRules: []SeasonalRule{
			{Words: []string{"残暑"}, Months: []int{9, 10, 11}},
			{Words: []string{"初雪"}, Months: []int{1, 2, 3, 10, 11, 12}},
			{Words: []string{"木枯らし"}, Months: []int{10, 11, 12}},
			{Words: []string{"初霜"}, Months: []int{1, 2, 10, 11, 12}},
			{Words: []string{"桜", "お花見"}, Months: []int{3, 4, 5}},
			{Words: []string{"梅雨入り", "梅雨明け"}, Months: []int{5, 6, 7}},
		},

		RainComments: []string{
			"雨が降りやすいでしょう",
			"傘が手放せない一日です",
			"雨の降る時間が長そうです",
			"本降りの雨に注意です",
		},
		CloudyComments: []string{
			"雲の多い空になりそうです",
			"曇り空の一日でしょう",
			"スッキリしない空模様です",
		},
		RainAdvice: []string{
			"傘をお忘れなく",
			"足元にお気をつけください",
			"雨具の準備を",
		},
	}
}

// loadLexicons overlays the YAML lexicon files onto lex. Missing files are
// fine; the embedded defaults stay in place.
func loadLexicons(lex *Lexicons, dir string) error {
	if err := overlayYAML(filepath.Join(dir, "weather_forbidden_words.yaml"), lex); err != nil {
		return err
	}
	if err := overlayYAML(filepath.Join(dir, "validator_words.yaml"), lex); err != nil {
		return err
	}
	return nil
}

func overlayYAML(path string, lex *Lexicons) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read lexicon file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, lex); err != nil {
		return fmt.Errorf("parse lexicon file %s: %w", path, err)
	}
	return nil
}
