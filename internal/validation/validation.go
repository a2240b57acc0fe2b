package validation

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrLocationEmpty        = errors.New("location is required")
	ErrLocationTooShort     = errors.New("location too short")
	ErrLocationTooLong      = errors.New("location too long")
	ErrLocationInvalidChars = errors.New("location contains invalid characters")
)

// ValidateLocation normalizes a requested location name before lookup.
// Leading and trailing whitespace, including the full-width space, is
// trimmed; length bounds are in runes so kanji names count per character.
// Allowed characters are Unicode letters and digits plus the separators
// that occur in Japanese place names (middle dot, ASCII space, comma,
// hyphen). Returns the trimmed name or an error mapped to
// INVALID_LOCATION by the HTTP layer.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.Trim(input, " \t\r\n　")
	runes := []rune(s)
	switch n := len(runes); {
	case n == 0:
		return "", ErrLocationEmpty
	case minLen > 0 && n < minLen:
		return "", ErrLocationTooShort
	case maxLen > 0 && n > maxLen:
		return "", ErrLocationTooLong
	}
	for _, r := range runes {
		if !allowedLocationRune(r) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

func allowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '・':
		return true
	}
	return false
}
