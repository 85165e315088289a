// Package recap builds the weekly attendance digest: hard counts from the
// Individuals grid plus a short model-written narrative.
package recap

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/groups-logger/attendance"
)

var headerDateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

// MemberStats is one member's trailing-window attendance.
type MemberStats struct {
	Label  string
	Marked int
	// Streak counts consecutive marked days ending at the newest day in
	// the window.
	Streak int
}

// WeekStats is the trailing window of the Individuals grid, one entry per
// dated column found, oldest first.
type WeekStats struct {
	Days      []time.Time
	DayTotals []int
	Members   []MemberStats
}

// BuildStats reads the Individuals grid once and reduces its last `days`
// dated columns to per-member counts and streaks. Header cells that do not
// parse as dates are skipped; member rows with a blank label are skipped.
func BuildStats(ctx context.Context, grid attendance.Grid, tables attendance.Tables, layout attendance.GridLayout, days int) (WeekStats, error) {
	if days <= 0 {
		return WeekStats{}, fmt.Errorf("recap window must be positive, got %d", days)
	}
	rows, err := grid.ReadAllRows(ctx, tables.Individuals)
	if err != nil {
		return WeekStats{}, fmt.Errorf("read %s: %w", tables.Individuals, err)
	}
	if len(rows) < layout.IndividualsHeaderRow {
		return WeekStats{}, fmt.Errorf("%s: no header row %d", tables.Individuals, layout.IndividualsHeaderRow)
	}
	header := rows[layout.IndividualsHeaderRow-1]

	type datedCol struct {
		col  int // 1-based
		date time.Time
	}
	var cols []datedCol
	for i := layout.IndividualsDateCol - 1; i < len(header); i++ {
		if d, ok := parseHeaderDate(header[i]); ok {
			cols = append(cols, datedCol{col: i + 1, date: d})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].date.Before(cols[j].date) })
	if len(cols) > days {
		cols = cols[len(cols)-days:]
	}
	if len(cols) == 0 {
		return WeekStats{}, fmt.Errorf("%s: no dated columns from column %d", tables.Individuals, layout.IndividualsDateCol)
	}

	stats := WeekStats{DayTotals: make([]int, len(cols))}
	for _, c := range cols {
		stats.Days = append(stats.Days, c.date)
	}
	for rowIdx := layout.IndividualsHeaderRow; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		label := ""
		if len(row) >= layout.IndividualsLabelCol {
			label = strings.TrimSpace(row[layout.IndividualsLabelCol-1])
		}
		if label == "" {
			continue
		}
		m := MemberStats{Label: label}
		streak := 0
		for i, c := range cols {
			marked := c.col <= len(row) && cellMarked(row[c.col-1])
			if marked {
				m.Marked++
				stats.DayTotals[i]++
				streak++
			} else {
				streak = 0
			}
		}
		m.Streak = streak
		stats.Members = append(stats.Members, m)
	}
	return stats, nil
}

func parseHeaderDate(cell string) (time.Time, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(cell, " ", " "))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range headerDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func cellMarked(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), attendance.FormatBool(true))
}

// Lines renders the digest for the status channel: counts first, then the
// narrative when one was generated.
func Lines(stats WeekStats, n Narrative) []string {
	out := []string{"📋 Weekly attendance recap"}
	if len(stats.Days) > 0 {
		out = append(out, fmt.Sprintf("• Window: %s → %s (%d days)",
			stats.Days[0].Format("2006-01-02"),
			stats.Days[len(stats.Days)-1].Format("2006-01-02"),
			len(stats.Days)))
	}
	total := 0
	for _, t := range stats.DayTotals {
		total += t
	}
	out = append(out, fmt.Sprintf("• Check-ins: %d across %d members", total, len(stats.Members)))
	if best, ok := longestStreak(stats.Members); ok && best.Streak > 1 {
		out = append(out, fmt.Sprintf("• Longest active streak: %s (%d days)", best.Label, best.Streak))
	}
	if n.Headline != "" {
		out = append(out, "", n.Headline)
	}
	if n.Summary != "" {
		out = append(out, n.Summary)
	}
	for _, s := range n.Shoutouts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, "• "+s)
		}
	}
	return out
}

func longestStreak(members []MemberStats) (MemberStats, bool) {
	var best MemberStats
	found := false
	for _, m := range members {
		if !found || m.Streak > best.Streak {
			best = m
			found = true
		}
	}
	return best, found
}
