// daily-check runs one pull-model attendance pass: find today's post in the
// tracked channel, collect its reactors, reconcile both grids, and post a
// status summary.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	meta := attendance.MetaFromEnv(cfg.CheckName, start)

	target := attendance.LocalDate(start, loc)
	if cfg.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", cfg.Date, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("parse -date: %w", err).Error())
			os.Exit(2)
		}
		target = d
	}

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

	checker := &attendance.Checker{
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

	rep, runErr := checker.RunOnce(ctx, target)
	if runErr != nil {
		lines := attendance.FailureLines(meta, runErr.Error())
		postStatus(ctx, dc, cfg.StatusChannelID, lines)
		fmt.Fprintln(os.Stderr, runErr.Error())
		os.Exit(1)
	}

	postStatus(ctx, dc, cfg.StatusChannelID, rep.Lines(meta))

	fmt.Fprintf(os.Stdout, "date=%s reactors=%d individuals=%d groups=%d unmapped=%d missing=%d today=%d dry_run=%v elapsed=%s\n",
		target.Format("2006-01-02"), rep.ReactorsFound, rep.IndividualsUpdated, rep.GroupsUpdated,
		rep.UnmappedReactors, rep.MissingRows, rep.TodayMarked, rep.DryRun, rep.Elapsed.Round(time.Millisecond))
}

// postStatus sends the report; a failed status post must not fail the pass.
func postStatus(ctx context.Context, n attendance.Notifier, channelID string, lines []string) {
	if err := n.Send(ctx, channelID, strings.Join(lines, "\n")); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("post status: %w", err).Error())
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.SpreadsheetID, "spreadsheet", cfg.SpreadsheetID, "Google spreadsheet ID (default: SPREADSHEET_ID env)")
	fs.StringVar(&cfg.TrackChannelID, "track-channel", cfg.TrackChannelID, "Channel ID to scan for the daily post (default: TRACK_CHANNEL_ID env)")
	fs.StringVar(&cfg.StatusChannelID, "status-channel", cfg.StatusChannelID, "Channel ID for the run summary (default: STATUS_CHANNEL_ID env)")
	fs.Int64Var(&cfg.RequireAuthorID, "author", cfg.RequireAuthorID, "Required author user ID of the daily post (default: REQUIRE_AUTHOR_ID env)")
	fs.StringVar(&cfg.TitleMatch, "title-match", cfg.TitleMatch, "Phrase required in the post content or embed text (default: TITLE_MATCH env)")
	fs.StringVar(&cfg.TrackEmoji, "emoji", cfg.TrackEmoji, "Tracked reaction emoji (default: TRACK_EMOJI env)")
	fs.StringVar(&cfg.TabIndividuals, "tab-individuals", cfg.TabIndividuals, "Individuals worksheet name")
	fs.StringVar(&cfg.TabGroups, "tab-groups", cfg.TabGroups, "Groups worksheet name")
	fs.StringVar(&cfg.TabMapping, "tab-mapping", cfg.TabMapping, "Member mapping worksheet name")
	fs.StringVar(&cfg.CheckName, "check-name", cfg.CheckName, "Label shown in the status post")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "IANA timezone for calendar-date logic")
	fs.IntVar(&cfg.Lookback, "lookback", cfg.Lookback, "How many recent messages to scan")
	fs.StringVar(&cfg.PostRanking, "post-ranking", cfg.PostRanking, "Post selection policy: first or best")
	fs.StringVar(&cfg.Date, "date", cfg.Date, "Target date YYYY-MM-DD (default: today in -tz)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Log intended writes instead of applying them")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
