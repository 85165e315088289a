// Package discord adapts a Discord gateway session to the messaging
// interfaces the attendance core consumes.
package discord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/theimaginaryfoundation/groups-logger/attendance"
)

const pageSize = 100

// Client wraps a discordgo session. One-shot jobs use it purely over the
// REST API; the reaction listener additionally opens the gateway.
type Client struct {
	session *discordgo.Session
}

// New builds a client from a bot token. The gateway is not opened; call
// Open when live events are needed.
func New(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions
	return &Client{session: s}, nil
}

// Open connects to the gateway for event delivery.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close shuts down the gateway connection.
func (c *Client) Close() error {
	return c.session.Close()
}

// RecentMessages returns up to limit messages from the channel, newest
// first, paging through the history endpoint in batches.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]attendance.Message, error) {
	var out []attendance.Message
	beforeID := ""
	for len(out) < limit {
		batch := limit - len(out)
		if batch > pageSize {
			batch = pageSize
		}
		msgs, err := c.session.ChannelMessages(channelID, batch, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch channel %s messages: %w", channelID, err)
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			out = append(out, convertMessage(m))
		}
		beforeID = msgs[len(msgs)-1].ID
		if len(msgs) < batch {
			break
		}
	}
	return out, nil
}

// Reactors enumerates every user who applied emoji to the message,
// paginating until the API returns a short page.
func (c *Client) Reactors(ctx context.Context, channelID, messageID, emoji string) ([]attendance.Reactor, error) {
	var out []attendance.Reactor
	afterID := ""
	for {
		users, err := c.session.MessageReactions(channelID, messageID, emoji, pageSize, "", afterID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch reactions on %s: %w", messageID, err)
		}
		if len(users) == 0 {
			break
		}
		for _, u := range users {
			out = append(out, attendance.Reactor{ID: parseSnowflake(u.ID), Bot: u.Bot})
		}
		afterID = users[len(users)-1].ID
		if len(users) < pageSize {
			break
		}
	}
	return out, nil
}

// Message fetches a single message by ID.
func (c *Client) Message(ctx context.Context, channelID, messageID string) (attendance.Message, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return attendance.Message{}, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	return convertMessage(m), nil
}

// Send posts a plain-text message to the channel.
func (c *Client) Send(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	return nil
}

// OnReactionAdd registers fn for reaction-added gateway events. The
// returned func removes the handler.
func (c *Client) OnReactionAdd(fn func(attendance.ReactionEvent)) func() {
	return c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		ev := attendance.ReactionEvent{
			ChannelID: r.ChannelID,
			MessageID: r.MessageID,
			UserID:    parseSnowflake(r.UserID),
			Emoji:     r.Emoji.Name,
		}
		if r.Member != nil && r.Member.User != nil {
			ev.UserBot = r.Member.User.Bot
		}
		fn(ev)
	})
}

// convertMessage flattens a gateway message down to the fields the
// daily-post predicate and reaction collection read.
func convertMessage(m *discordgo.Message) attendance.Message {
	out := attendance.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = parseSnowflake(m.Author.ID)
	}
	for _, e := range m.Embeds {
		out.Embeds = append(out.Embeds, attendance.Embed{Title: e.Title, Description: e.Description})
	}
	for _, r := range m.Reactions {
		if r.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, attendance.ReactionCount{Emoji: r.Emoji.Name, Count: r.Count})
	}
	return out
}

// parseSnowflake converts a Discord ID string to its numeric form.
// Malformed IDs map to zero, which never matches a configured author or
// mapping entry.
func parseSnowflake(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
