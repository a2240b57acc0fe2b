package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// CommentType distinguishes the two halves of an emitted pair.
type CommentType string

const (
	CommentTypeWeather CommentType = "weather_comment"
	CommentTypeAdvice  CommentType = "advice"
)

// PastComment is one previously authored commentary from the seasonal corpus.
// Text length is counted in runes throughout the engine.
type PastComment struct {
	Location         string      `json:"location"`
	Datetime         time.Time   `json:"datetime"`
	WeatherCondition string      `json:"weather_condition"`
	Text             string      `json:"comment_text"`
	Type             CommentType `json:"comment_type"`
	Temperature      float64     `json:"temperature"`
	HasTemperature   bool        `json:"has_temperature"`
	UsageCount       int         `json:"usage_count"`
	Season           string      `json:"season,omitempty"`
}

// pastCommentColumns is the canonical serialized column order.
var pastCommentColumns = []string{
	"location", "datetime", "weather_condition", "comment_text",
	"comment_type", "temperature", "usage_count", "season",
}

// PastCommentColumns returns the canonical CSV header for serialized comments.
func PastCommentColumns() []string {
	out := make([]string, len(pastCommentColumns))
	copy(out, pastCommentColumns)
	return out
}

// Row serializes the comment in the canonical column order.
func (c PastComment) Row() []string {
	temp := ""
	if c.HasTemperature {
		temp = strconv.FormatFloat(c.Temperature, 'f', -1, 64)
	}
	dt := ""
	if !c.Datetime.IsZero() {
		dt = c.Datetime.In(JST).Format(time.RFC3339)
	}
	return []string{
		c.Location, dt, c.WeatherCondition, c.Text,
		string(c.Type), temp, strconv.Itoa(c.UsageCount), c.Season,
	}
}

// ParsePastCommentRow parses a canonical row back into a PastComment.
// Inverse of Row for every valid comment.
func ParsePastCommentRow(row []string) (PastComment, error) {
	if len(row) < len(pastCommentColumns) {
		return PastComment{}, fmt.Errorf("past comment row has %d columns, want %d", len(row), len(pastCommentColumns))
	}
	c := PastComment{
		Location:         row[0],
		WeatherCondition: row[2],
		Text:             row[3],
		Type:             CommentType(row[4]),
		Season:           row[7],
	}
	if strings.TrimSpace(row[1]) != "" {
		dt, err := time.Parse(time.RFC3339, row[1])
		if err != nil {
			return PastComment{}, fmt.Errorf("parse datetime %q: %w", row[1], err)
		}
		c.Datetime = dt.In(JST)
	}
	if strings.TrimSpace(row[5]) != "" {
		t, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return PastComment{}, fmt.Errorf("parse temperature %q: %w", row[5], err)
		}
		c.Temperature = t
		c.HasTemperature = true
	}
	if strings.TrimSpace(row[6]) != "" {
		n, err := strconv.Atoi(row[6])
		if err != nil {
			return PastComment{}, fmt.Errorf("parse usage_count %q: %w", row[6], err)
		}
		c.UsageCount = n
	}
	return c, nil
}

// Length returns the comment length in runes.
func (c PastComment) Length() int {
	return utf8.RuneCountInString(c.Text)
}

// TextSimilarity is the Jaccard similarity of the rune sets of two texts,
// in [0, 1]. It scores pair halves and feeds the duplication rule.
func TextSimilarity(a, b string) float64 {
	as := make(map[rune]struct{})
	for _, r := range a {
		as[r] = struct{}{}
	}
	bs := make(map[rune]struct{})
	for _, r := range b {
		bs[r] = struct{}{}
	}
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	inter := 0
	for r := range as {
		if _, ok := bs[r]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(union)
}

// CommentPair is the atomic selection output: one weather comment plus one
// advice comment.
type CommentPair struct {
	WeatherComment  PastComment `json:"weather_comment"`
	AdviceComment   PastComment `json:"advice_comment"`
	SimilarityScore float64     `json:"similarity_score"`
	SelectionReason string      `json:"selection_reason"`
}

// Key identifies a pair for exclusion-set membership across retries.
func (p CommentPair) Key() string {
	return p.WeatherComment.Text + "\x00" + p.AdviceComment.Text
}

// ValidationResult is the outcome of one rule battery run.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

// Valid is the success result shared by every battery.
func Valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

// Invalid builds a failure result carrying the rule tag and a debug reason.
func Invalid(rule, format string, args ...any) ValidationResult {
	return ValidationResult{IsValid: false, Rule: rule, Reason: fmt.Sprintf(format, args...)}
}
