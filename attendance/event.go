package attendance

import (
	"context"
	"fmt"
	"strings"
)

// ReactionEvent is one reaction-added notification from the messaging
// transport.
type ReactionEvent struct {
	ChannelID string
	MessageID string
	UserID    int64
	UserBot   bool
	Emoji     string
}

// Dedupe ignores repeat reaction notifications within one logical day. Keys
// include the local date; entries from prior dates are evicted whenever a
// newer date is seen, so the set holds at most one day of traffic plus
// stragglers.
type Dedupe struct {
	day  string
	seen map[string]struct{}
}

// NewDedupe returns an empty guard.
func NewDedupe() *Dedupe {
	return &Dedupe{seen: make(map[string]struct{})}
}

// Seen records (event, day) and reports whether it was already present.
// day is the local calendar date in YYYY-MM-DD form.
func (d *Dedupe) Seen(ev ReactionEvent, day string) bool {
	if day > d.day {
		d.day = day
		d.seen = make(map[string]struct{})
	}
	key := fmt.Sprintf("%s|%d|%s|%s", ev.MessageID, ev.UserID, ev.Emoji, day)
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// EventResult describes what one reaction notification changed.
type EventResult struct {
	Applied       bool
	SkippedReason string
	Label         string
	GroupsUpdated int
}

// EventHandler is the push-model driver core: each reaction-added
// notification is verified against the daily-post predicate, de-duplicated,
// and applied as a single-member reconciliation. It is driven from a
// single-threaded event loop; no internal locking.
type EventHandler struct {
	Reconciler *Reconciler
	Source     MessageFetcher
	Criteria   PostCriteria // Date is derived from the event's local day
	Dedupe     *Dedupe
}

// HandleReaction applies one reaction-added notification: the event message
// is fetched and verified against the daily-post predicate first, and only a
// verified event is recorded in the de-dupe guard. Group completion is
// recomputed only for groups containing the reacting member, re-reading the
// other roster members' current cells rather than rebuilding the reactor set.
func (h *EventHandler) HandleReaction(ctx context.Context, ev ReactionEvent) (EventResult, error) {
	r := h.Reconciler
	if ev.UserBot {
		return EventResult{SkippedReason: "bot user"}, nil
	}
	if ev.Emoji != h.Criteria.TrackedEmoji {
		return EventResult{SkippedReason: "untracked emoji"}, nil
	}

	today := LocalDate(r.timeNow(), r.location())

	msg, err := h.Source.Message(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		return EventResult{}, fmt.Errorf("fetch message %s: %w", ev.MessageID, err)
	}
	crit := h.Criteria
	crit.Date = today
	if !MatchesDailyPost(msg, crit) {
		return EventResult{SkippedReason: "not the daily post"}, nil
	}

	// Recorded only after the message is verified, so a notification that
	// failed on a transient fetch error can be redelivered and still land.
	day := today.Format("2006-01-02")
	if h.Dedupe != nil && h.Dedupe.Seen(ev, day) {
		return EventResult{SkippedReason: "duplicate notification"}, nil
	}

	mappings, err := r.loadMappings(ctx)
	if err != nil {
		return EventResult{}, err
	}
	label, ok := mappings[ev.UserID]
	if !ok {
		return EventResult{SkippedReason: "unmapped reactor"}, nil
	}

	indHeader, err := r.Grid.ReadRow(ctx, r.Tables.Individuals, r.Layout.IndividualsHeaderRow)
	if err != nil {
		return EventResult{}, fmt.Errorf("read %s header: %w", r.Tables.Individuals, err)
	}
	indCol, err := FindDateColumn(indHeader, today, r.Layout.IndividualsDateCol)
	if err != nil {
		return EventResult{}, fmt.Errorf("%s: %w", r.Tables.Individuals, err)
	}
	labelCol, err := r.Grid.ReadColumn(ctx, r.Tables.Individuals, r.Layout.IndividualsLabelCol)
	if err != nil {
		return EventResult{}, fmt.Errorf("read %s labels: %w", r.Tables.Individuals, err)
	}
	rows := BuildRowMap(labelCol)
	row, ok := rows.Lookup(label)
	if !ok {
		return EventResult{SkippedReason: "no row for " + label, Label: label}, nil
	}
	if err := h.writeCell(ctx, r.Tables.Individuals, row, indCol, true); err != nil {
		return EventResult{}, err
	}

	res := EventResult{Applied: true, Label: label}

	groups, err := r.loadGroups(ctx)
	if err != nil {
		return res, err
	}
	mine := groupsContaining(groups, label)
	if len(mine) == 0 {
		return res, nil
	}

	grpHeader, err := r.Grid.ReadRow(ctx, r.Tables.Groups, r.Layout.GroupsHeaderRow)
	if err != nil {
		return res, fmt.Errorf("read %s header: %w", r.Tables.Groups, err)
	}
	grpCol, err := FindDateColumn(grpHeader, today, r.Layout.GroupsDateCol)
	if err != nil {
		return res, fmt.Errorf("%s: %w", r.Tables.Groups, err)
	}
	// Current cell state for the other roster members, including the write
	// just applied.
	dayCells, err := r.Grid.ReadColumn(ctx, r.Tables.Individuals, indCol)
	if err != nil {
		return res, fmt.Errorf("read %s day column: %w", r.Tables.Individuals, err)
	}

	for _, g := range mine {
		complete := rosterMarked(g, rows, dayCells)
		if err := h.writeCell(ctx, r.Tables.Groups, g.Row, grpCol, complete); err != nil {
			return res, err
		}
		res.GroupsUpdated++
	}
	return res, nil
}

func (h *EventHandler) writeCell(ctx context.Context, sheet string, row, col int, v bool) error {
	r := h.Reconciler
	if r.DryRun {
		r.logf("[dry-run] set %s R%dC%d = %s", sheet, row, col, FormatBool(v))
		return nil
	}
	if err := r.Grid.WriteCell(ctx, sheet, row, col, FormatBool(v)); err != nil {
		return fmt.Errorf("write %s R%dC%d: %w", sheet, row, col, err)
	}
	return nil
}

func groupsContaining(groups []Group, label string) []Group {
	var out []Group
	for _, g := range groups {
		for _, m := range g.Members {
			if m == label {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// rosterMarked reports whether every roster member's cell in the day column
// reads TRUE. A member with no row counts as unmarked; empty rosters are
// never complete.
func rosterMarked(g Group, rows RowMap, dayCells []string) bool {
	if len(g.Members) == 0 {
		return false
	}
	for _, m := range g.Members {
		row, ok := rows.Lookup(m)
		if !ok || row > len(dayCells) {
			return false
		}
		if !strings.EqualFold(strings.TrimSpace(dayCells[row-1]), cellTrue) {
			return false
		}
	}
	return true
}
