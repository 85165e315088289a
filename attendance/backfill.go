package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BackfillReport aggregates a historical range run.
type BackfillReport struct {
	From         time.Time
	To           time.Time
	DaysTried    int
	DaysUpdated  int
	DaysSkipped  int
	SkippedDates []string
	Reports      []Report
}

// Backfiller replays the daily pass over a historical date range. One channel
// history fetch covers the whole range; each date then selects its own post
// from that window. Dates run oldest first so individual cells are always in
// place before later groups are recomputed.
type Backfiller struct {
	Source     MessageSource
	Reconciler *Reconciler
	ChannelID  string
	Criteria   PostCriteria
	Lookback   int
}

// Run reconciles every date from from to to inclusive. A date with no
// qualifying post, or no date column in the grids, is recorded and skipped;
// any other failure aborts the range.
func (b *Backfiller) Run(ctx context.Context, from, to time.Time) (BackfillReport, error) {
	rep := BackfillReport{From: from, To: to}
	if to.Before(from) {
		return rep, errors.New("backfill: to precedes from")
	}

	msgs, err := b.Source.RecentMessages(ctx, b.ChannelID, b.Lookback)
	if err != nil {
		return rep, fmt.Errorf("fetch channel history: %w", err)
	}

	loc := b.Reconciler.location()
	for d := LocalDate(from, loc); !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.DaysTried++

		crit := b.Criteria
		crit.Date = d
		post, err := SelectDailyPost(msgs, crit)
		if err != nil {
			rep.DaysSkipped++
			rep.SkippedDates = append(rep.SkippedDates, d.Format("2006-01-02"))
			continue
		}
		reactors, err := CollectReactors(ctx, b.Source, post, b.Criteria.TrackedEmoji)
		if err != nil {
			return rep, err
		}
		dayRep, err := b.Reconciler.Run(ctx, d, reactors)
		if err != nil {
			var notFound *DateColumnNotFoundError
			if errors.As(err, &notFound) {
				rep.DaysSkipped++
				rep.SkippedDates = append(rep.SkippedDates, d.Format("2006-01-02"))
				continue
			}
			return rep, err
		}
		rep.DaysUpdated++
		rep.Reports = append(rep.Reports, dayRep)
	}
	return rep, nil
}
