package attendance

import "strings"

// RowMap resolves a member label to its 1-based row in a grid's leading
// column. Each non-blank cell is keyed by both its raw trimmed text and its
// normalized form; raw keys are inserted first and take precedence on
// collision, and within each form the first occurrence (by scan order) wins.
//
// Known sharp edge, kept on purpose: when two differently-written rows
// normalize to the same key, the earlier row silently shadows the later one.
type RowMap struct {
	byKey map[string]int
}

// BuildRowMap indexes the label column of a grid. labels[0] is row 1.
func BuildRowMap(labels []string) RowMap {
	byKey := make(map[string]int, 2*len(labels))
	for i, cell := range labels {
		raw := strings.TrimSpace(cell)
		if raw == "" {
			continue
		}
		if _, ok := byKey[raw]; !ok {
			byKey[raw] = i + 1
		}
	}
	for i, cell := range labels {
		raw := strings.TrimSpace(cell)
		if raw == "" {
			continue
		}
		norm := NormalizeLabel(raw)
		if norm == "" {
			continue
		}
		if _, ok := byKey[norm]; !ok {
			byKey[norm] = i + 1
		}
	}
	return RowMap{byKey: byKey}
}

// Lookup tries the raw trimmed label first, then its normalized form. A miss
// is a skippable condition for callers, not an error.
func (m RowMap) Lookup(label string) (int, bool) {
	if row, ok := m.byKey[strings.TrimSpace(label)]; ok {
		return row, true
	}
	row, ok := m.byKey[NormalizeLabel(label)]
	return row, ok
}

// Len reports how many distinct keys are indexed.
func (m RowMap) Len() int {
	return len(m.byKey)
}
