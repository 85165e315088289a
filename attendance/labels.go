package attendance

import (
	"regexp"
	"strings"
)

var (
	trailingParen = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeLabel canonicalizes a free-text member or group label so that
// hand-maintained spreadsheet cells, roster entries, and mapping entries
// compare equal despite punctuation and whitespace drift.
//
// Steps, in order: trim, strip one trailing parenthesized group
// ("Jordan (Ricky)" -> "Jordan"), drop periods, collapse whitespace runs,
// uppercase. Total and idempotent.
func NormalizeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	s = trailingParen.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// SplitRoster splits a comma-separated roster cell into normalized member
// labels. Blank entries are dropped; a blank cell yields an empty roster.
func SplitRoster(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, NormalizeLabel(part))
	}
	return out
}
