package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeFetcher serves a single message, optionally failing the first few
// fetches.
type fakeFetcher struct {
	msg      Message
	failures int
}

func (f *fakeFetcher) Message(_ context.Context, _, _ string) (Message, error) {
	if f.failures > 0 {
		f.failures--
		return Message{}, errors.New("gateway timeout")
	}
	return f.msg, nil
}

func eventHandler(g *fakeGrid, post Message) *EventHandler {
	r := testReconciler(g)
	r.now = func() time.Time { return jan(5).Add(10 * time.Hour) }
	return &EventHandler{
		Reconciler: r,
		Source:     &fakeFetcher{msg: post},
		Criteria: PostCriteria{
			AuthorID:     authorID,
			Location:     time.UTC,
			TitleMatch:   "daily reading",
			TrackedEmoji: "✅",
		},
		Dedupe: NewDedupe(),
	}
}

func dailyPostFor(day time.Time) Message {
	return Message{
		ID:        "post-1",
		ChannelID: "chan",
		AuthorID:  authorID,
		CreatedAt: day.Add(9 * time.Hour),
		Embeds:    []Embed{{Title: "Daily Reading"}},
	}
}

func reactionFrom(user int64) ReactionEvent {
	return ReactionEvent{ChannelID: "chan", MessageID: "post-1", UserID: user, Emoji: "✅"}
}

func TestHandleReaction_SingleMemberAndGroup(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	h := eventHandler(g, dailyPostFor(jan(5)))

	res, err := h.HandleReaction(context.Background(), reactionFrom(111))
	if err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}
	if !res.Applied || res.Label != "ALICE" {
		t.Fatalf("result=%+v, want applied for ALICE", res)
	}
	if got := g.cell("Individuals", 2, 3); got != "TRUE" {
		t.Fatalf("Alice cell=%q, want TRUE", got)
	}
	// Bob has not reacted: the shared group stays FALSE.
	if got := g.cell("Groups", 2, 3); got != "FALSE" {
		t.Fatalf("Group1 cell=%q, want FALSE", got)
	}
	if res.GroupsUpdated != 1 {
		t.Fatalf("GroupsUpdated=%d, want 1", res.GroupsUpdated)
	}

	// Bob's reaction completes the roster; group recompute re-reads Alice's
	// just-written cell rather than any in-memory reactor set.
	res, err = h.HandleReaction(context.Background(), reactionFrom(222))
	if err != nil {
		t.Fatalf("HandleReaction (Bob): %v", err)
	}
	if !res.Applied {
		t.Fatalf("result=%+v, want applied", res)
	}
	if got := g.cell("Groups", 2, 3); got != "TRUE" {
		t.Fatalf("Group1 cell=%q, want TRUE", got)
	}
}

func TestHandleReaction_Skips(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	h := eventHandler(g, dailyPostFor(jan(5)))

	// Untracked emoji.
	ev := reactionFrom(111)
	ev.Emoji = "🔥"
	res, err := h.HandleReaction(context.Background(), ev)
	if err != nil || res.Applied {
		t.Fatalf("result=%+v err=%v, want untracked-emoji skip", res, err)
	}

	// Bot reactor.
	ev = reactionFrom(111)
	ev.UserBot = true
	res, err = h.HandleReaction(context.Background(), ev)
	if err != nil || res.Applied {
		t.Fatalf("result=%+v err=%v, want bot skip", res, err)
	}

	// Unmapped reactor: counted as informational skip, no write.
	res, err = h.HandleReaction(context.Background(), reactionFrom(999))
	if err != nil || res.Applied {
		t.Fatalf("result=%+v err=%v, want unmapped skip", res, err)
	}
	if got := g.cell("Individuals", 2, 3); got != "" {
		t.Fatalf("cell=%q, want untouched", got)
	}
}

func TestHandleReaction_NotTheDailyPost(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	offTopic := dailyPostFor(jan(5))
	offTopic.Embeds = []Embed{{Title: "announcements"}}
	h := eventHandler(g, offTopic)

	res, err := h.HandleReaction(context.Background(), reactionFrom(111))
	if err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}
	if res.Applied || res.SkippedReason == "" {
		t.Fatalf("result=%+v, want predicate skip", res)
	}
}

func TestHandleReaction_Duplicate(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	h := eventHandler(g, dailyPostFor(jan(5)))

	if _, err := h.HandleReaction(context.Background(), reactionFrom(111)); err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}
	writesBefore := g.writeCalls
	res, err := h.HandleReaction(context.Background(), reactionFrom(111))
	if err != nil {
		t.Fatalf("HandleReaction (repeat): %v", err)
	}
	if res.Applied {
		t.Fatalf("repeat notification applied, want de-dupe skip")
	}
	if g.writeCalls != writesBefore {
		t.Fatalf("repeat notification caused writes")
	}
}

func TestHandleReaction_RetryAfterFetchError(t *testing.T) {
	t.Parallel()

	g := seedGrid(t)
	h := eventHandler(g, dailyPostFor(jan(5)))
	h.Source.(*fakeFetcher).failures = 1

	ev := reactionFrom(111)
	if _, err := h.HandleReaction(context.Background(), ev); err == nil {
		t.Fatalf("want error from failed message fetch")
	}
	if got := g.cell("Individuals", 2, 3); got != "" {
		t.Fatalf("cell=%q, want untouched after failed fetch", got)
	}

	// A redelivery of the same notification must not be treated as a
	// duplicate: the failed attempt never verified the message.
	res, err := h.HandleReaction(context.Background(), ev)
	if err != nil {
		t.Fatalf("HandleReaction (redelivery): %v", err)
	}
	if !res.Applied {
		t.Fatalf("result=%+v, want redelivery applied", res)
	}
	if got := g.cell("Individuals", 2, 3); got != "TRUE" {
		t.Fatalf("cell=%q, want TRUE after redelivery", got)
	}
}

func TestDedupe_EvictsPriorDays(t *testing.T) {
	t.Parallel()

	d := NewDedupe()
	ev := reactionFrom(111)

	if d.Seen(ev, "2025-01-05") {
		t.Fatalf("first sighting reported as seen")
	}
	if !d.Seen(ev, "2025-01-05") {
		t.Fatalf("repeat sighting not reported as seen")
	}
	// A new day clears the prior day's keys; the same triple counts again.
	if d.Seen(ev, "2025-01-06") {
		t.Fatalf("new day should start clean")
	}
	if len(d.seen) != 1 {
		t.Fatalf("len(seen)=%d, want 1 after eviction", len(d.seen))
	}
}
