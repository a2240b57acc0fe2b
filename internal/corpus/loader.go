// Package corpus loads the seasonal past-comment CSV files, indexes them with
// content-hash freshness, and serves queries through a multi-level cache.
package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/soratext/soratext/internal/models"
)

// Seasons is the fixed season set of the corpus.
var Seasons = []string{"春", "夏", "秋", "冬", "梅雨", "台風"}

// CommentTypes is the fixed type set of the corpus.
var CommentTypes = []models.CommentType{models.CommentTypeWeather, models.CommentTypeAdvice}

// SeasonsForMonth returns the corpus seasons applicable to a calendar month.
// 梅雨 and 台風 overlap the summer months.
func SeasonsForMonth(month int) []string {
	var out []string
	switch {
	case month >= 3 && month <= 5:
		out = append(out, "春")
	case month >= 6 && month <= 8:
		out = append(out, "夏")
	case month >= 9 && month <= 11:
		out = append(out, "秋")
	default:
		out = append(out, "冬")
	}
	if month == 6 || month == 7 {
		out = append(out, "梅雨")
	}
	if month >= 8 && month <= 10 {
		out = append(out, "台風")
	}
	return out
}

// FileName builds the corpus filename for one (season, type) bucket.
func FileName(season string, typ models.CommentType) string {
	return fmt.Sprintf("%s_%s_enhanced100.csv", season, typ)
}

// loadCSV parses one corpus file. The file is UTF-8 with an optional BOM and a
// header row; rows missing the text column are skipped. A missing file returns
// (nil, os.ErrNotExist) so callers can downgrade it to a warning.
func loadCSV(path, season string, typ models.CommentType) ([]models.PastComment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimPrefix(string(data), "﻿")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := headerIndex(rows[0])
	textCol, ok := cols[string(typ)]
	if !ok {
		// Some corpus exports name the column after the other type.
		if textCol, ok = cols["weather_comment"]; !ok {
			if textCol, ok = cols["advice"]; !ok {
				return nil, fmt.Errorf("%s: no comment text column", path)
			}
		}
	}

	var out []models.PastComment
	for _, row := range rows[1:] {
		if textCol >= len(row) {
			continue
		}
		body := strings.TrimSpace(row[textCol])
		if body == "" {
			continue
		}
		c := models.PastComment{
			Text:   body,
			Type:   typ,
			Season: season,
		}
		if i, ok := cols["weather_condition"]; ok && i < len(row) {
			c.WeatherCondition = strings.TrimSpace(row[i])
		}
		if i, ok := cols["temperature"]; ok && i < len(row) {
			if t, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64); err == nil {
				c.Temperature = t
				c.HasTemperature = true
			}
		}
		count := 0
		if i, ok := cols["usage_count"]; ok && i < len(row) {
			count, _ = strconv.Atoi(strings.TrimSpace(row[i]))
		} else if i, ok := cols["count"]; ok && i < len(row) {
			count, _ = strconv.Atoi(strings.TrimSpace(row[i]))
		}
		c.UsageCount = count
		out = append(out, c)
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		out[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return out
}
