package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateLocationEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t", "　　"} {
		if _, err := ValidateLocation(input, 1, 64); !errors.Is(err, ErrLocationEmpty) {
			t.Errorf("ValidateLocation(%q) err = %v, want ErrLocationEmpty", input, err)
		}
	}
}

func TestValidateLocationBounds(t *testing.T) {
	if _, err := ValidateLocation("x", 2, 64); !errors.Is(err, ErrLocationTooShort) {
		t.Errorf("below min: err = %v, want ErrLocationTooShort", err)
	}

	max := strings.Repeat("あ", 64)
	if got, err := ValidateLocation(max, 1, 64); err != nil || got != max {
		t.Errorf("at max: got %q err %v", got, err)
	}
	if _, err := ValidateLocation(max+"あ", 1, 64); !errors.Is(err, ErrLocationTooLong) {
		t.Errorf("over max: err = %v, want ErrLocationTooLong", err)
	}
}

func TestValidateLocationInvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"slash", "東京/渋谷"},
		{"hash", "東京#1"},
		{"control", "東京\x00"},
		{"percent", "90%"},
		{"brackets", "東京(都)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateLocation(tc.input, 1, 64); !errors.Is(err, ErrLocationInvalidChars) {
				t.Errorf("err = %v, want ErrLocationInvalidChars", err)
			}
		})
	}
}

func TestValidateLocationValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"kanji", "東京", "東京"},
		{"trimmed ascii space", "  大阪  ", "大阪"},
		{"trimmed ideographic space", "　札幌　", "札幌"},
		{"middle dot", "みなとみらい・桜木町", "みなとみらい・桜木町"},
		{"katakana long vowel", "ニセコ", "ニセコ"},
		{"romaji with hyphen", "Chiba-shi", "Chiba-shi"},
		{"digits", "港区1", "港区1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateLocation(tc.input, 1, 64)
			if err != nil {
				t.Fatalf("ValidateLocation(%q) err = %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("normalized = %q, want %q", got, tc.want)
			}
		})
	}
}
