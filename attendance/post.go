package attendance

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrPostNotFound is returned when no message in the scan window satisfies
// the daily-post predicate. Callers report it and skip the date; it is not
// fatal to a multi-date run.
var ErrPostNotFound = errors.New("daily post not found")

// PostRanking selects which of the two historical ranking policies applies
// when more than one message could be the daily post.
type PostRanking int

const (
	// PostRankingFirst returns the first predicate match in
	// reverse-chronological scan order.
	PostRankingFirst PostRanking = iota
	// PostRankingBest collects candidate messages and picks the one with the
	// most tracked-emoji reactions, tie-broken by total reaction count.
	PostRankingBest
)

// ParsePostRanking maps the config surface values to a PostRanking.
func ParsePostRanking(s string) (PostRanking, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return PostRankingFirst, nil
	case "best":
		return PostRankingBest, nil
	}
	return 0, errors.New("post ranking must be \"first\" or \"best\"")
}

// PostCriteria is the daily-post predicate: required author, target calendar
// date in Location, and a lower-cased phrase matched against message content
// and embed text. An embed title carrying a M/D/YY or M/D/YYYY token equal to
// the target date also qualifies.
type PostCriteria struct {
	AuthorID     int64
	Date         time.Time
	Location     *time.Location
	TitleMatch   string
	TrackedEmoji string
	Ranking      PostRanking
}

func (c PostCriteria) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

var embedDateToken = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2}(?:\d{2})?)`)

// MatchesDailyPost reports whether msg is the authoritative post for the
// criteria's date: right author, created on that calendar date in the
// configured zone, and carrying the match phrase or a matching date token.
func MatchesDailyPost(msg Message, c PostCriteria) bool {
	if msg.AuthorID != c.AuthorID {
		return false
	}
	if !sameLocalDate(msg.CreatedAt, c.Date, c.location()) {
		return false
	}
	return matchesPostContent(msg, c)
}

func matchesPostContent(msg Message, c PostCriteria) bool {
	phrase := strings.ToLower(strings.TrimSpace(c.TitleMatch))
	if phrase != "" {
		if strings.Contains(strings.ToLower(msg.Content), phrase) {
			return true
		}
		for _, e := range msg.Embeds {
			if strings.Contains(strings.ToLower(e.Title), phrase) ||
				strings.Contains(strings.ToLower(e.Description), phrase) {
				return true
			}
		}
	}
	for _, e := range msg.Embeds {
		if titleDateMatches(e.Title, c.Date, c.location()) {
			return true
		}
	}
	return false
}

func titleDateMatches(title string, target time.Time, loc *time.Location) bool {
	for _, m := range embedDateToken.FindAllStringSubmatch(title, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		t := target.In(loc)
		if month == int(t.Month()) && day == t.Day() && year == t.Year() {
			return true
		}
	}
	return false
}

// SelectDailyPost picks the daily post from msgs (newest first) under the
// criteria's ranking policy. Returns ErrPostNotFound when nothing qualifies.
func SelectDailyPost(msgs []Message, c PostCriteria) (Message, error) {
	if c.Ranking == PostRankingBest {
		return selectBestPost(msgs, c)
	}
	for _, m := range msgs {
		if MatchesDailyPost(m, c) {
			return m, nil
		}
	}
	return Message{}, ErrPostNotFound
}

// selectBestPost ranks candidates without the author restriction: any message
// on the target date carrying an embed whose text matches. Most tracked-emoji
// reactions wins; ties fall to total reaction count, then to recency (scan
// order, newest first).
func selectBestPost(msgs []Message, c PostCriteria) (Message, error) {
	best := -1
	var bestTracked, bestTotal int
	for i, m := range msgs {
		if len(m.Embeds) == 0 {
			continue
		}
		if !sameLocalDate(m.CreatedAt, c.Date, c.location()) {
			continue
		}
		if !matchesPostContent(m, c) {
			continue
		}
		tracked := reactionTally(m, c.TrackedEmoji)
		total := totalReactions(m)
		if best < 0 || tracked > bestTracked || (tracked == bestTracked && total > bestTotal) {
			best, bestTracked, bestTotal = i, tracked, total
		}
	}
	if best < 0 {
		return Message{}, ErrPostNotFound
	}
	return msgs[best], nil
}

func reactionTally(m Message, emoji string) int {
	for _, r := range m.Reactions {
		if r.Emoji == emoji {
			return r.Count
		}
	}
	return 0
}

func totalReactions(m Message) int {
	n := 0
	for _, r := range m.Reactions {
		n += r.Count
	}
	return n
}
