package attendance

import "testing"

func TestRowMapLookup(t *testing.T) {
	t.Parallel()

	m := BuildRowMap([]string{"Name", "Alice", "Bob (Robert)", "", "  C. D.  "})

	cases := []struct {
		label string
		want  int
	}{
		{"Alice", 2},
		{"ALICE", 2},
		{"alice", 2}, // normalized form
		{"Bob (Robert)", 3},
		{"BOB", 3},
		{"C. D.", 5},
		{"C D", 5},
	}
	for _, c := range cases {
		row, ok := m.Lookup(c.label)
		if !ok {
			t.Fatalf("Lookup(%q): not found", c.label)
		}
		if row != c.want {
			t.Fatalf("Lookup(%q)=%d, want %d", c.label, row, c.want)
		}
	}

	if _, ok := m.Lookup("Nobody"); ok {
		t.Fatalf("Lookup(Nobody) unexpectedly found")
	}
}

func TestRowMapLen(t *testing.T) {
	t.Parallel()

	if got := BuildRowMap(nil).Len(); got != 0 {
		t.Fatalf("empty Len()=%d, want 0", got)
	}
	// "Alice" indexes both its raw and normalized forms; "Name" only raw
	// (its normalized form is "NAME").
	if got := BuildRowMap([]string{"Name", "Alice", ""}).Len(); got != 4 {
		t.Fatalf("Len()=%d, want 4", got)
	}
}

func TestRowMap_RawPrecedesNormalized(t *testing.T) {
	t.Parallel()

	// Row 1 normalizes to "J SMITH"; row 2 is the raw cell "J. Smith" which
	// normalizes to the same key. The raw key must win even though the
	// normalized collision appears earlier in the column.
	m := BuildRowMap([]string{"J Smith", "J. Smith"})

	row, ok := m.Lookup("J. Smith")
	if !ok || row != 2 {
		t.Fatalf("Lookup(raw)=%d,%v, want 2,true", row, ok)
	}
	// The shared normalized key points at the first occurrence.
	row, ok = m.Lookup("j smith")
	if !ok || row != 1 {
		t.Fatalf("Lookup(normalized)=%d,%v, want 1,true", row, ok)
	}
}

func TestRowMap_FirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	m := BuildRowMap([]string{"Dup", "Dup", "dup"})
	if row, _ := m.Lookup("Dup"); row != 1 {
		t.Fatalf("Lookup(Dup)=%d, want 1 (first occurrence)", row)
	}
	// Raw "dup" is its own key and still resolves to its own row.
	if row, _ := m.Lookup("dup"); row != 3 {
		t.Fatalf("Lookup(dup)=%d, want 3", row)
	}
}
