package attendance

import (
	"context"
	"fmt"
	"time"
)

// Checker is the pull-model driver core: scan recent channel history for the
// daily post, collect its reactors, and hand them to the Reconciler.
type Checker struct {
	Source     MessageSource
	Reconciler *Reconciler
	ChannelID  string
	Criteria   PostCriteria // Date is supplied per run
	Lookback   int
}

// RunOnce performs one end-to-end pass for the target calendar date.
// ErrPostNotFound is returned (wrapped) when no qualifying post exists; the
// caller reports it and skips the date.
func (c *Checker) RunOnce(ctx context.Context, target time.Time) (Report, error) {
	msgs, err := c.Source.RecentMessages(ctx, c.ChannelID, c.Lookback)
	if err != nil {
		return Report{}, fmt.Errorf("fetch channel history: %w", err)
	}
	crit := c.Criteria
	crit.Date = target
	post, err := SelectDailyPost(msgs, crit)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", target.Format("2006-01-02"), err)
	}
	reactors, err := CollectReactors(ctx, c.Source, post, c.Criteria.TrackedEmoji)
	if err != nil {
		return Report{}, err
	}
	return c.Reconciler.Run(ctx, target, reactors)
}
