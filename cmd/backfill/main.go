// backfill replays the daily attendance pass over a historical date range.
// One channel history fetch covers the range; dates with no qualifying post
// or no grid column are skipped and reported.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/theimaginaryfoundation/groups-logger/attendance"
	"github.com/theimaginaryfoundation/groups-logger/discord"
	"github.com/theimaginaryfoundation/groups-logger/gsheets"
)

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	token := strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	if token == "" {
		token = strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN"))
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, "missing DISCORD_TOKEN (or DISCORD_BOT_TOKEN)")
		os.Exit(2)
	}
	creds := strings.TrimSpace(os.Getenv("GOOGLE_CREDS_JSON"))
	if creds == "" {
		fmt.Fprintln(os.Stderr, "missing GOOGLE_CREDS_JSON")
		os.Exit(2)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err).Error())
		os.Exit(2)
	}
	ranking, err := attendance.ParsePostRanking(cfg.PostRanking)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	from, err := time.ParseInLocation("2006-01-02", cfg.From, loc)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("parse -from: %w", err).Error())
		os.Exit(2)
	}
	to, err := time.ParseInLocation("2006-01-02", cfg.To, loc)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("parse -to: %w", err).Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta := attendance.MetaFromEnv(cfg.CheckName, time.Now())

	grid, err := gsheets.New(ctx, []byte(creds), cfg.SpreadsheetID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	dc, err := discord.New(token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	backfiller := &attendance.Backfiller{
		Source: dc,
		Reconciler: &attendance.Reconciler{
			Grid: grid,
			Tables: attendance.Tables{
				Mapping:     cfg.TabMapping,
				Individuals: cfg.TabIndividuals,
				Groups:      cfg.TabGroups,
			},
			Layout:   attendance.DefaultGridLayout(),
			Location: loc,
			DryRun:   cfg.DryRun,
		},
		ChannelID: cfg.TrackChannelID,
		Criteria: attendance.PostCriteria{
			AuthorID:     cfg.RequireAuthorID,
			Location:     loc,
			TitleMatch:   cfg.TitleMatch,
			TrackedEmoji: cfg.TrackEmoji,
			Ranking:      ranking,
		},
		Lookback: cfg.Lookback,
	}

	rep, runErr := backfiller.Run(ctx, from, to)
	if runErr != nil {
		lines := attendance.FailureLines(meta, runErr.Error())
		postStatus(ctx, dc, cfg.StatusChannelID, lines)
		fmt.Fprintln(os.Stderr, runErr.Error())
		os.Exit(1)
	}

	postStatus(ctx, dc, cfg.StatusChannelID, rep.Lines(meta))

	fmt.Fprintf(os.Stdout, "from=%s to=%s tried=%d updated=%d skipped=%d dry_run=%v\n",
		cfg.From, cfg.To, rep.DaysTried, rep.DaysUpdated, rep.DaysSkipped, cfg.DryRun)
}

func postStatus(ctx context.Context, n attendance.Notifier, channelID string, lines []string) {
	if err := n.Send(ctx, channelID, strings.Join(lines, "\n")); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("post status: %w", err).Error())
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.SpreadsheetID, "spreadsheet", cfg.SpreadsheetID, "Google spreadsheet ID (default: SPREADSHEET_ID env)")
	fs.StringVar(&cfg.TrackChannelID, "track-channel", cfg.TrackChannelID, "Channel ID to scan for daily posts (default: TRACK_CHANNEL_ID env)")
	fs.StringVar(&cfg.StatusChannelID, "status-channel", cfg.StatusChannelID, "Channel ID for the run summary (default: STATUS_CHANNEL_ID env)")
	fs.Int64Var(&cfg.RequireAuthorID, "author", cfg.RequireAuthorID, "Required author user ID of the daily post (default: REQUIRE_AUTHOR_ID env)")
	fs.StringVar(&cfg.TitleMatch, "title-match", cfg.TitleMatch, "Phrase required in the post content or embed text (default: TITLE_MATCH env)")
	fs.StringVar(&cfg.TrackEmoji, "emoji", cfg.TrackEmoji, "Tracked reaction emoji (default: TRACK_EMOJI env)")
	fs.StringVar(&cfg.TabIndividuals, "tab-individuals", cfg.TabIndividuals, "Individuals worksheet name")
	fs.StringVar(&cfg.TabGroups, "tab-groups", cfg.TabGroups, "Groups worksheet name")
	fs.StringVar(&cfg.TabMapping, "tab-mapping", cfg.TabMapping, "Member mapping worksheet name")
	fs.StringVar(&cfg.CheckName, "check-name", cfg.CheckName, "Label shown in the status post")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "IANA timezone for calendar-date logic")
	fs.IntVar(&cfg.Lookback, "lookback", cfg.Lookback, "How many recent messages to scan for the whole range")
	fs.StringVar(&cfg.PostRanking, "post-ranking", cfg.PostRanking, "Post selection policy: first or best")
	fs.StringVar(&cfg.From, "from", cfg.From, "First date to backfill, YYYY-MM-DD")
	fs.StringVar(&cfg.To, "to", cfg.To, "Last date to backfill, YYYY-MM-DD (inclusive)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Log intended writes instead of applying them")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
