package selector

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingIntRe = regexp.MustCompile(`^\s*(\d+)`)
	labeledRe    = regexp.MustCompile(`(?:答え|選択|回答)\s*[:：]?\s*(\d+)`)
	numberedRe   = regexp.MustCompile(`(\d+)\s*番`)
	anyIntRe     = regexp.MustCompile(`\d+`)
)

// parseChoice extracts a 1-based candidate number from a model reply. The
// ladder goes from strict to permissive: an exact integer, a leading integer,
// a labeled answer ("答え: 3", "選択: 3", "3番"), and finally the first
// number that fits the candidate range.
func parseChoice(reply string, max int) (int, bool) {
	reply = strings.TrimSpace(reply)

	if n, err := strconv.Atoi(reply); err == nil {
		return n, inRange(n, max)
	}
	if m := leadingIntRe.FindStringSubmatch(reply); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && inRange(n, max) {
			return n, true
		}
	}
	for _, re := range []*regexp.Regexp{labeledRe, numberedRe} {
		if m := re.FindStringSubmatch(reply); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && inRange(n, max) {
				return n, true
			}
		}
	}
	for _, m := range anyIntRe.FindAllString(reply, -1) {
		if n, err := strconv.Atoi(m); err == nil && inRange(n, max) {
			return n, true
		}
	}
	return 0, false
}

func inRange(n, max int) bool {
	return n >= 1 && n <= max
}

// parseYesNo interprets a contradiction-check reply. Unparseable replies
// count as "no contradiction" so a confused model cannot veto every pair.
func parseYesNo(reply string) bool {
	reply = strings.ToLower(strings.TrimSpace(reply))
	switch {
	case strings.HasPrefix(reply, "yes"), strings.HasPrefix(reply, "はい"),
		strings.Contains(reply, "矛盾しています"), strings.Contains(reply, "矛盾がある"):
		return true
	}
	return false
}
