package attendance

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Tables names the three worksheets a deployment uses.
type Tables struct {
	Mapping     string
	Individuals string
	Groups      string
}

// GridLayout captures where each grid keeps its header row, its first date
// column, and its label/roster columns. All indices are 1-based. The defaults
// match the sheet as it is maintained by hand: Individuals dates start at
// column C with the header on row 1; Groups dates start at column E with the
// header on row 2.
type GridLayout struct {
	IndividualsHeaderRow int
	IndividualsDateCol   int
	IndividualsLabelCol  int
	GroupsHeaderRow      int
	GroupsDateCol        int
	GroupsLabelCol       int
	GroupsRosterCol      int
}

// DefaultGridLayout returns the layout of the production spreadsheet.
func DefaultGridLayout() GridLayout {
	return GridLayout{
		IndividualsHeaderRow: 1,
		IndividualsDateCol:   3,
		IndividualsLabelCol:  1,
		GroupsHeaderRow:      2,
		GroupsDateCol:        5,
		GroupsLabelCol:       1,
		GroupsRosterCol:      2,
	}
}

// Group is one row of the Groups grid: its stable row position, display
// label, and normalized roster. An empty roster can never be complete.
type Group struct {
	Row     int
	Label   string
	Members []string
}

// Report carries the structured counts from one reconciliation pass.
type Report struct {
	Date               time.Time
	ReactorsFound      int
	IndividualsUpdated int
	GroupsUpdated      int
	UnmappedReactors   int
	MissingRows        int
	TodayMarked        int
	YesterdayMarked    *int
	Elapsed            time.Duration
	DryRun             bool
}

// Reconciler runs one LOAD -> LOCATE -> RECONCILE-INDIVIDUALS ->
// RECONCILE-GROUPS -> SUMMARIZE pass against the grids. Mapping and roster
// state is re-read on every pass; nothing is cached across passes.
type Reconciler struct {
	Grid     Grid
	Tables   Tables
	Layout   GridLayout
	Location *time.Location
	DryRun   bool

	// Logf receives warnings and dry-run write intents. Defaults to stderr.
	Logf func(format string, args ...any)

	// now is overridable in tests.
	now func() time.Time
}

func (r *Reconciler) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func (r *Reconciler) timeNow() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Reconciler) location() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.UTC
}

// Run reconciles one calendar date given the set of reactor identities
// collected for that date's post. Writes are staged and flushed as one batch
// per grid; dry-run mode logs the intended writes instead.
func (r *Reconciler) Run(ctx context.Context, target time.Time, reactors map[int64]struct{}) (Report, error) {
	start := r.timeNow()
	rep := Report{Date: target, ReactorsFound: len(reactors), DryRun: r.DryRun}

	// LOAD
	mappings, err := r.loadMappings(ctx)
	if err != nil {
		return rep, err
	}
	groups, err := r.loadGroups(ctx)
	if err != nil {
		return rep, err
	}

	// LOCATE
	indHeader, err := r.Grid.ReadRow(ctx, r.Tables.Individuals, r.Layout.IndividualsHeaderRow)
	if err != nil {
		return rep, fmt.Errorf("read %s header: %w", r.Tables.Individuals, err)
	}
	indCol, err := FindDateColumn(indHeader, target, r.Layout.IndividualsDateCol)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", r.Tables.Individuals, err)
	}
	grpHeader, err := r.Grid.ReadRow(ctx, r.Tables.Groups, r.Layout.GroupsHeaderRow)
	if err != nil {
		return rep, fmt.Errorf("read %s header: %w", r.Tables.Groups, err)
	}
	grpCol, err := FindDateColumn(grpHeader, target, r.Layout.GroupsDateCol)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", r.Tables.Groups, err)
	}
	labelCol, err := r.Grid.ReadColumn(ctx, r.Tables.Individuals, r.Layout.IndividualsLabelCol)
	if err != nil {
		return rep, fmt.Errorf("read %s labels: %w", r.Tables.Individuals, err)
	}
	rows := BuildRowMap(labelCol)
	if rows.Len() == 0 {
		r.logf("warn: no member rows found in %s column %d", r.Tables.Individuals, r.Layout.IndividualsLabelCol)
	}

	// RECONCILE-INDIVIDUALS
	reactedLabels := make(map[string]struct{})
	var indWrites []CellWrite
	for _, userID := range sortedIDs(mappings) {
		label := mappings[userID]
		_, hasReacted := reactors[userID]
		row, ok := rows.Lookup(label)
		if !ok {
			rep.MissingRows++
			continue
		}
		indWrites = append(indWrites, CellWrite{Row: row, Col: indCol, Value: FormatBool(hasReacted)})
		rep.IndividualsUpdated++
		if hasReacted {
			reactedLabels[label] = struct{}{}
		}
	}
	for userID := range reactors {
		if _, ok := mappings[userID]; !ok {
			rep.UnmappedReactors++
		}
	}

	// RECONCILE-GROUPS
	var grpWrites []CellWrite
	for _, g := range groups {
		grpWrites = append(grpWrites, CellWrite{Row: g.Row, Col: grpCol, Value: FormatBool(groupComplete(g, reactedLabels))})
		rep.GroupsUpdated++
	}

	if err := r.flush(ctx, r.Tables.Individuals, indWrites); err != nil {
		return rep, err
	}
	if err := r.flush(ctx, r.Tables.Groups, grpWrites); err != nil {
		return rep, err
	}

	// SUMMARIZE
	todayCol, err := r.Grid.ReadColumn(ctx, r.Tables.Individuals, indCol)
	if err != nil {
		return rep, fmt.Errorf("read %s today column: %w", r.Tables.Individuals, err)
	}
	rep.TodayMarked = CountTrue(todayCol, r.Layout.IndividualsHeaderRow+1)
	if yCol, yErr := FindDateColumn(indHeader, target.AddDate(0, 0, -1), r.Layout.IndividualsDateCol); yErr == nil {
		if vals, vErr := r.Grid.ReadColumn(ctx, r.Tables.Individuals, yCol); vErr == nil {
			n := CountTrue(vals, r.Layout.IndividualsHeaderRow+1)
			rep.YesterdayMarked = &n
		}
	}

	rep.Elapsed = r.timeNow().Sub(start)
	return rep, nil
}

// groupComplete is a pure conjunction over the roster: every normalized
// member must be in the reacted set, and an empty roster is never complete.
func groupComplete(g Group, reactedLabels map[string]struct{}) bool {
	if len(g.Members) == 0 {
		return false
	}
	for _, m := range g.Members {
		if _, ok := reactedLabels[m]; !ok {
			return false
		}
	}
	return true
}

func (r *Reconciler) flush(ctx context.Context, sheet string, writes []CellWrite) error {
	if len(writes) == 0 {
		return nil
	}
	if r.DryRun {
		for _, w := range writes {
			r.logf("[dry-run] set %s R%dC%d = %s", sheet, w.Row, w.Col, w.Value)
		}
		return nil
	}
	if err := r.Grid.WriteCellsBatch(ctx, sheet, writes); err != nil {
		return fmt.Errorf("batch write %s: %w", sheet, err)
	}
	return nil
}

// loadMappings reads the mapping table fresh: column A holds the messaging
// user identity, column B the display label. The header row is ignored, blank
// pairs are skipped silently, and a non-integer identity is skipped with a
// warning rather than aborting the pass.
func (r *Reconciler) loadMappings(ctx context.Context) (map[int64]string, error) {
	rows, err := r.Grid.ReadAllRows(ctx, r.Tables.Mapping)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Tables.Mapping, err)
	}
	out := make(map[int64]string)
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		idRaw := strings.TrimSpace(row[0])
		label := strings.TrimSpace(row[1])
		if idRaw == "" || label == "" {
			continue
		}
		id, err := strconv.ParseInt(idRaw, 10, 64)
		if err != nil {
			r.logf("warn: skipping mapping with non-integer user id %q", idRaw)
			continue
		}
		out[id] = NormalizeLabel(label)
	}
	return out, nil
}

// loadGroups reads the Groups grid below its header row. Row positions are
// captured once here and reused for the write, so they stay stable within
// the pass.
func (r *Reconciler) loadGroups(ctx context.Context) ([]Group, error) {
	rows, err := r.Grid.ReadAllRows(ctx, r.Tables.Groups)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Tables.Groups, err)
	}
	var out []Group
	for i, row := range rows {
		rowNum := i + 1
		if rowNum <= r.Layout.GroupsHeaderRow {
			continue
		}
		label := ""
		if len(row) >= r.Layout.GroupsLabelCol {
			label = strings.TrimSpace(row[r.Layout.GroupsLabelCol-1])
		}
		if label == "" {
			continue
		}
		roster := ""
		if len(row) >= r.Layout.GroupsRosterCol {
			roster = row[r.Layout.GroupsRosterCol-1]
		}
		out = append(out, Group{Row: rowNum, Label: label, Members: SplitRoster(roster)})
	}
	return out, nil
}

func sortedIDs(m map[int64]string) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
