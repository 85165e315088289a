package attendance

import (
	"context"
	"fmt"
)

// CollectReactors returns the set of distinct non-bot user identities that
// applied emoji to msg. Unicode emoji compare by exact string equality,
// custom emoji by name. The source is expected to paginate through the full
// reactor list; the result is a set, so arrival order is irrelevant.
func CollectReactors(ctx context.Context, src ReactorSource, msg Message, emoji string) (map[int64]struct{}, error) {
	reacted := make(map[int64]struct{})
	for _, rc := range msg.Reactions {
		if rc.Emoji != emoji {
			continue
		}
		users, err := src.Reactors(ctx, msg.ChannelID, msg.ID, emoji)
		if err != nil {
			return nil, fmt.Errorf("fetch reactors for %q: %w", emoji, err)
		}
		for _, u := range users {
			if u.Bot {
				continue
			}
			reacted[u.ID] = struct{}{}
		}
	}
	return reacted, nil
}
