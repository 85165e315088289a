package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeGrid is an in-memory Grid backed by a ragged [][]string per sheet.
type fakeGrid struct {
	sheets       map[string][][]string
	batchCalls   int
	writeCalls   int
	failNextRead bool
}

func newFakeGrid() *fakeGrid {
	return &fakeGrid{sheets: make(map[string][][]string)}
}

func (g *fakeGrid) setSheet(name string, rows [][]string) {
	g.sheets[name] = rows
}

func (g *fakeGrid) cell(sheet string, row, col int) string {
	rows := g.sheets[sheet]
	if row > len(rows) {
		return ""
	}
	r := rows[row-1]
	if col > len(r) {
		return ""
	}
	return r[col-1]
}

func (g *fakeGrid) ReadRow(_ context.Context, sheet string, row int) ([]string, error) {
	if g.failNextRead {
		g.failNextRead = false
		return nil, fmt.Errorf("backend unavailable")
	}
	rows := g.sheets[sheet]
	if row > len(rows) {
		return nil, nil
	}
	return append([]string(nil), rows[row-1]...), nil
}

func (g *fakeGrid) ReadColumn(_ context.Context, sheet string, col int) ([]string, error) {
	rows := g.sheets[sheet]
	out := make([]string, len(rows))
	for i, r := range rows {
		if col <= len(r) {
			out[i] = r[col-1]
		}
	}
	return out, nil
}

func (g *fakeGrid) ReadAllRows(_ context.Context, sheet string) ([][]string, error) {
	out := make([][]string, len(g.sheets[sheet]))
	for i, r := range g.sheets[sheet] {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (g *fakeGrid) WriteCell(_ context.Context, sheet string, row, col int, value string) error {
	g.writeCalls++
	g.set(sheet, row, col, value)
	return nil
}

func (g *fakeGrid) WriteCellsBatch(_ context.Context, sheet string, writes []CellWrite) error {
	g.batchCalls++
	for _, w := range writes {
		g.set(sheet, w.Row, w.Col, w.Value)
	}
	return nil
}

func (g *fakeGrid) set(sheet string, row, col int, value string) {
	rows := g.sheets[sheet]
	for len(rows) < row {
		rows = append(rows, nil)
	}
	for len(rows[row-1]) < col {
		rows[row-1] = append(rows[row-1], "")
	}
	rows[row-1][col-1] = value
	g.sheets[sheet] = rows
}

var testTables = Tables{Mapping: "Member Mapping", Individuals: "Individuals", Groups: "Groups"}

// testLayout keeps the fixtures small: Individuals dates start at column C on
// row 1, Groups dates at column C on row 1.
func testLayout() GridLayout {
	return GridLayout{
		IndividualsHeaderRow: 1,
		IndividualsDateCol:   3,
		IndividualsLabelCol:  1,
		GroupsHeaderRow:      1,
		GroupsDateCol:        3,
		GroupsLabelCol:       1,
		GroupsRosterCol:      2,
	}
}

func seedGrid(t *testing.T) *fakeGrid {
	t.Helper()
	g := newFakeGrid()
	g.setSheet("Member Mapping", [][]string{
		{"USER_ID", "NAME"},
		{"111", "Alice"},
		{"222", "Bob"},
	})
	g.setSheet("Individuals", [][]string{
		{"Name", "Dates", "1/5/25", "1/6/25"},
		{"Alice", "", "", ""},
		{"Bob", "", "", ""},
	})
	g.setSheet("Groups", [][]string{
		{"Group", "Roster", "1/5/25", "1/6/25"},
		{"Group1", "Alice, Bob", "", ""},
	})
	return g
}

func testReconciler(g *fakeGrid) *Reconciler {
	return &Reconciler{
		Grid:     g,
		Tables:   testTables,
		Layout:   testLayout(),
		Location: time.UTC,
		Logf:     func(string, ...any) {},
	}
}

func jan(day int) time.Time {
	return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestReconcilerRun_EndToEnd(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	r := testReconciler(g)

	rep, err := r.Run(context.Background(), jan(5), map[int64]struct{}{111: {}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := g.cell("Individuals", 2, 3); got != "TRUE" {
		t.Fatalf("Alice cell=%q, want TRUE", got)
	}
	if got := g.cell("Individuals", 3, 3); got != "FALSE" {
		t.Fatalf("Bob cell=%q, want FALSE", got)
	}
	if got := g.cell("Groups", 2, 3); got != "FALSE" {
		t.Fatalf("Group1 cell=%q, want FALSE", got)
	}
	if rep.IndividualsUpdated != 2 || rep.GroupsUpdated != 1 {
		t.Fatalf("updated individuals=%d groups=%d, want 2 and 1", rep.IndividualsUpdated, rep.GroupsUpdated)
	}
	if rep.TodayMarked != 1 {
		t.Fatalf("TodayMarked=%d, want 1", rep.TodayMarked)
	}

	// Bob reacts too: group flips TRUE on re-run.
	rep, err = r.Run(context.Background(), jan(5), map[int64]struct{}{111: {}, 222: {}})
	if err != nil {
		t.Fatalf("Run (second): %v", err)
	}
	if got := g.cell("Groups", 2, 3); got != "TRUE" {
		t.Fatalf("Group1 cell=%q after Bob reacted, want TRUE", got)
	}
	if rep.TodayMarked != 2 {
		t.Fatalf("TodayMarked=%d, want 2", rep.TodayMarked)
	}
}

func TestReconcilerRun_Idempotent(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	r := testReconciler(g)
	reactors := map[int64]struct{}{111: {}}

	if _, err := r.Run(context.Background(), jan(5), reactors); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := [][]string{
		append([]string(nil), g.sheets["Individuals"][1]...),
		append([]string(nil), g.sheets["Individuals"][2]...),
		append([]string(nil), g.sheets["Groups"][1]...),
	}
	if _, err := r.Run(context.Background(), jan(5), reactors); err != nil {
		t.Fatalf("Run (second): %v", err)
	}
	second := [][]string{g.sheets["Individuals"][1], g.sheets["Individuals"][2], g.sheets["Groups"][1]}
	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("pass not idempotent: row %d col %d %q != %q", i, j, first[i][j], second[i][j])
			}
		}
	}
}

func TestReconcilerRun_WarnsOnEmptyLabelColumn(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	// No label cells at all: every mapped member is a missing row.
	g.setSheet("Individuals", [][]string{
		{"", "Dates", "1/5/25", "1/6/25"},
	})

	var logged []string
	r := testReconciler(g)
	r.Logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	rep, err := r.Run(context.Background(), jan(5), map[int64]struct{}{111: {}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.MissingRows != 2 || rep.IndividualsUpdated != 0 {
		t.Fatalf("missing=%d updated=%d, want 2 and 0", rep.MissingRows, rep.IndividualsUpdated)
	}

	found := false
	for _, l := range logged {
		if l == "warn: no member rows found in Individuals column 1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing empty-label-column warning in %q", logged)
	}
}

func TestReconcilerRun_UnmappedAndMissingRows(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	// Carol is mapped but has no Individuals row.
	g.sheets["Member Mapping"] = append(g.sheets["Member Mapping"], []string{"333", "Carol"})
	r := testReconciler(g)

	// 999 reacted but is not mapped.
	rep, err := r.Run(context.Background(), jan(5), map[int64]struct{}{111: {}, 999: {}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.UnmappedReactors != 1 {
		t.Fatalf("UnmappedReactors=%d, want 1", rep.UnmappedReactors)
	}
	if rep.MissingRows != 1 {
		t.Fatalf("MissingRows=%d, want 1", rep.MissingRows)
	}
	if rep.IndividualsUpdated != 2 {
		t.Fatalf("IndividualsUpdated=%d, want 2", rep.IndividualsUpdated)
	}
}

func TestReconcilerRun_SkipsMalformedMappingRows(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	g.sheets["Member Mapping"] = append(g.sheets["Member Mapping"],
		[]string{"not-a-number", "Dave"},
		[]string{"", "Erin"},
		[]string{"444", ""},
	)
	var warned bool
	r := testReconciler(g)
	r.Logf = func(format string, args ...any) { warned = true }

	rep, err := r.Run(context.Background(), jan(5), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !warned {
		t.Fatalf("expected a warning for the non-integer user id")
	}
	if rep.IndividualsUpdated != 2 {
		t.Fatalf("IndividualsUpdated=%d, want 2 (malformed rows skipped)", rep.IndividualsUpdated)
	}
}

func TestReconcilerRun_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	r := testReconciler(g)
	r.DryRun = true
	var intents int
	r.Logf = func(format string, args ...any) { intents++ }

	rep, err := r.Run(context.Background(), jan(5), map[int64]struct{}{111: {}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.batchCalls != 0 || g.writeCalls != 0 {
		t.Fatalf("dry run performed writes: batch=%d single=%d", g.batchCalls, g.writeCalls)
	}
	if intents != 3 {
		t.Fatalf("logged intents=%d, want 3 (2 individuals + 1 group)", intents)
	}
	if !rep.DryRun {
		t.Fatalf("Report.DryRun=false, want true")
	}
	if got := g.cell("Individuals", 2, 3); got != "" {
		t.Fatalf("Alice cell=%q, want untouched", got)
	}
}

func TestReconcilerRun_BatchedWrites(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	r := testReconciler(g)
	if _, err := r.Run(context.Background(), jan(5), map[int64]struct{}{111: {}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.batchCalls != 2 {
		t.Fatalf("batchCalls=%d, want 2 (one per grid)", g.batchCalls)
	}
	if g.writeCalls != 0 {
		t.Fatalf("writeCalls=%d, want 0 (pull model batches everything)", g.writeCalls)
	}
}

func TestReconcilerRun_YesterdayCount(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	g.set("Individuals", 2, 3, "TRUE") // Alice on 1/5
	r := testReconciler(g)

	rep, err := r.Run(context.Background(), jan(6), map[int64]struct{}{222: {}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.YesterdayMarked == nil || *rep.YesterdayMarked != 1 {
		t.Fatalf("YesterdayMarked=%v, want 1", rep.YesterdayMarked)
	}

	// No column for the prior date: best-effort N/A, not an error.
	g2 := seedGrid(t)
	rep2, err := testReconciler(g2).Run(context.Background(), jan(5), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep2.YesterdayMarked != nil {
		t.Fatalf("YesterdayMarked=%v, want nil when 1/4 has no column", rep2.YesterdayMarked)
	}
}

func TestReconcilerRun_DateColumnMissing(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	r := testReconciler(g)
	_, err := r.Run(context.Background(), jan(7), nil)
	if err == nil {
		t.Fatalf("expected error for missing 1/7 column")
	}
	var notFound *DateColumnNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v, want DateColumnNotFoundError", err)
	}
}

func TestGroupComplete(t *testing.T) {
	t.Parallel()

	roster := Group{Row: 2, Label: "G", Members: []string{"A", "B", "C"}}
	if groupComplete(roster, setOf("A", "B")) {
		t.Fatalf("incomplete roster reported complete")
	}
	if !groupComplete(roster, setOf("A", "B", "C", "D")) {
		t.Fatalf("complete roster (with extraneous reactor) reported incomplete")
	}
	empty := Group{Row: 3, Label: "E"}
	if groupComplete(empty, setOf("A", "B", "C")) {
		t.Fatalf("empty roster must never be complete")
	}
}

func setOf(labels ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		out[l] = struct{}{}
	}
	return out
}
