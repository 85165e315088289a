package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Header cells that can share a row with date columns but are never dates
// themselves. Compared case-insensitively after trimming.
var nonDateHeaders = map[string]struct{}{
	"groups":            {},
	"dates":             {},
	"current streak 🔥": {},
	"longest streak":    {},
	"false":             {},
	"finished":          {},
}

// Layouts accepted when a header cell is not an exact candidate rendering.
// Go's reference-time parsing accepts both padded and non-padded components
// for these, so they cover 1/5/25, 01/05/25, 1/5/2025 and 01/05/2025.
var headerDateLayouts = []string{"1/2/06", "1/2/2006"}

// DateColumnNotFoundError reports that no header cell resolved to the target
// date, naming the renderings that were tried.
type DateColumnNotFoundError struct {
	Date    time.Time
	Formats []string
}

func (e *DateColumnNotFoundError) Error() string {
	return fmt.Sprintf("date column not found for %s (tried %s)",
		e.Date.Format("2006-01-02"), strings.Join(e.Formats, ", "))
}

// dateCandidates returns every textual rendering of target accepted as an
// exact header match: ISO, and month/day/year with 2- and 4-digit years in
// both padded and non-padded form. Sorted for stable error messages.
func dateCandidates(target time.Time) []string {
	set := map[string]struct{}{
		target.Format("2006-01-02"): {},
		target.Format("1/2/06"):     {},
		target.Format("01/02/06"):   {},
		target.Format("1/2/2006"):   {},
		target.Format("01/02/2006"): {},
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FindDateColumn resolves target to a 1-based column index in header, scanning
// left to right from startCol (1-based). Empty cells and known non-date labels
// are skipped; non-breaking spaces are normalized before comparison. A cell
// matches if its trimmed text is an accepted rendering of target, or parses as
// a month/day/year date equal to target. First match wins.
func FindDateColumn(header []string, target time.Time, startCol int) (int, error) {
	if startCol < 1 {
		startCol = 1
	}
	candidates := dateCandidates(target)
	candidateSet := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		candidateSet[c] = struct{}{}
	}

	for i := startCol - 1; i < len(header); i++ {
		text := strings.TrimSpace(strings.ReplaceAll(header[i], " ", " "))
		if text == "" {
			continue
		}
		if _, skip := nonDateHeaders[strings.ToLower(text)]; skip {
			continue
		}
		if _, ok := candidateSet[text]; ok {
			return i + 1, nil
		}
		for _, layout := range headerDateLayouts {
			d, err := time.Parse(layout, text)
			if err != nil {
				continue
			}
			if d.Year() == target.Year() && d.Month() == target.Month() && d.Day() == target.Day() {
				return i + 1, nil
			}
		}
	}
	return 0, &DateColumnNotFoundError{Date: target, Formats: candidates}
}

// CountTrue counts cells equal to TRUE (case-insensitively, trimmed) in a
// column slice, starting at startRow (1-based). Used for the summary's
// "marked today / yesterday" counts.
func CountTrue(column []string, startRow int) int {
	if startRow < 1 {
		startRow = 1
	}
	n := 0
	for i := startRow - 1; i < len(column); i++ {
		if strings.EqualFold(strings.TrimSpace(column[i]), cellTrue) {
			n++
		}
	}
	return n
}
