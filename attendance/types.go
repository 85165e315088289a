package attendance

import (
	"context"
	"time"
)

// Message is the transport-independent view of a channel message. Only the
// fields the daily-post predicate and reaction collection care about are kept.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  int64
	Content   string
	CreatedAt time.Time
	Embeds    []Embed
	Reactions []ReactionCount
}

// Embed carries the embedded title/description text the post predicate
// matches against.
type Embed struct {
	Title       string
	Description string
}

// ReactionCount is one emoji's tally on a message. Emoji holds the unicode
// emoji itself, or the name for custom emoji.
type ReactionCount struct {
	Emoji string
	Count int
}

// Reactor is a user who applied a reaction.
type Reactor struct {
	ID  int64
	Bot bool
}

// MessageSource is the messaging collaborator for the pull model.
// RecentMessages returns up to limit messages, newest first.
type MessageSource interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	ReactorSource
}

// ReactorSource enumerates every user who applied emoji to a message.
// Implementations must paginate through the full reactor list.
type ReactorSource interface {
	Reactors(ctx context.Context, channelID, messageID, emoji string) ([]Reactor, error)
}

// MessageFetcher fetches a single message by ID (push model).
type MessageFetcher interface {
	Message(ctx context.Context, channelID, messageID string) (Message, error)
}

// CellWrite is one staged cell update. Row and Col are 1-based.
type CellWrite struct {
	Row   int
	Col   int
	Value string
}

// Grid is the storage collaborator: a two-dimensional cell store addressed by
// sheet name and 1-based row/column. Values are plain text; attendance cells
// hold the literal strings "TRUE"/"FALSE".
type Grid interface {
	ReadRow(ctx context.Context, sheet string, row int) ([]string, error)
	ReadColumn(ctx context.Context, sheet string, col int) ([]string, error)
	ReadAllRows(ctx context.Context, sheet string) ([][]string, error)
	WriteCell(ctx context.Context, sheet string, row, col int, value string) error
	WriteCellsBatch(ctx context.Context, sheet string, writes []CellWrite) error
}

// Notifier posts a status message to a channel.
type Notifier interface {
	Send(ctx context.Context, channelID, content string) error
}

const (
	cellTrue  = "TRUE"
	cellFalse = "FALSE"
)

// FormatBool renders a boolean as the grid's wire value.
func FormatBool(v bool) string {
	if v {
		return cellTrue
	}
	return cellFalse
}

// LocalDate truncates t to its calendar date in loc.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func sameLocalDate(t, target time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	tt := target.In(loc)
	return lt.Year() == tt.Year() && lt.Month() == tt.Month() && lt.Day() == tt.Day()
}
