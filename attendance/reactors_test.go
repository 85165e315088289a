package attendance

import (
	"context"
	"testing"
)

// fakeReactorSource returns a canned reactor list per emoji.
type fakeReactorSource struct {
	byEmoji map[string][]Reactor
	calls   int
}

func (f *fakeReactorSource) Reactors(_ context.Context, _, _, emoji string) ([]Reactor, error) {
	f.calls++
	return f.byEmoji[emoji], nil
}

func TestCollectReactors(t *testing.T) {
	t.Parallel()

	msg := Message{
		ID:        "m1",
		ChannelID: "chan",
		Reactions: []ReactionCount{
			{Emoji: "✅", Count: 3},
			{Emoji: "🔥", Count: 2},
		},
	}
	src := &fakeReactorSource{byEmoji: map[string][]Reactor{
		"✅": {{ID: 111}, {ID: 222}, {ID: 900, Bot: true}, {ID: 111}},
		"🔥": {{ID: 333}},
	}}

	got, err := CollectReactors(context.Background(), src, msg, "✅")
	if err != nil {
		t.Fatalf("CollectReactors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2 (bots excluded, duplicates collapsed)", len(got))
	}
	for _, id := range []int64{111, 222} {
		if _, ok := got[id]; !ok {
			t.Fatalf("missing reactor %d", id)
		}
	}
	if _, ok := got[900]; ok {
		t.Fatalf("bot reactor must be excluded")
	}
	if src.calls != 1 {
		t.Fatalf("calls=%d, want 1 (only the tracked emoji is fetched)", src.calls)
	}
}

func TestCollectReactors_EmojiAbsent(t *testing.T) {
	t.Parallel()

	msg := Message{Reactions: []ReactionCount{{Emoji: "🔥", Count: 2}}}
	src := &fakeReactorSource{byEmoji: map[string][]Reactor{"🔥": {{ID: 1}}}}

	got, err := CollectReactors(context.Background(), src, msg, "✅")
	if err != nil {
		t.Fatalf("CollectReactors: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len=%d, want 0", len(got))
	}
	if src.calls != 0 {
		t.Fatalf("calls=%d, want 0", src.calls)
	}
}
