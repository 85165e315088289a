// reaction-listener runs the push model: subscribe to reaction-added gateway
// events on the tracked channel and apply each one as a single-member
// reconciliation. Events are funneled into one worker goroutine so sheet
// writes stay serialized.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	handler := &attendance.EventHandler{
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
		Source: dc,
		Criteria: attendance.PostCriteria{
			AuthorID:     cfg.RequireAuthorID,
			Location:     loc,
			TitleMatch:   cfg.TitleMatch,
			TrackedEmoji: cfg.TrackEmoji,
		},
		Dedupe: attendance.NewDedupe(),
	}

	events := make(chan attendance.ReactionEvent, cfg.QueueSize)
	remove := dc.OnReactionAdd(func(ev attendance.ReactionEvent) {
		if ev.ChannelID != cfg.TrackChannelID {
			return
		}
		select {
		case events <- ev:
		default:
			fmt.Fprintf(os.Stderr, "warn: event queue full, dropping reaction on %s\n", ev.MessageID)
		}
	})
	defer remove()

	if err := dc.Open(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer dc.Close()

	fmt.Fprintf(os.Stderr, "listening for %s reactions on channel %s\n", cfg.TrackEmoji, cfg.TrackChannelID)

	var handled, applied int64
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stdout, "events_handled=%d events_applied=%d\n", handled, applied)
			return
		case ev := <-events:
			handled++
			res, err := handler.HandleReaction(ctx, ev)
			switch {
			case err != nil:
				fmt.Fprintf(os.Stderr, "error: reaction on %s: %v\n", ev.MessageID, err)
			case res.Applied:
				applied++
				fmt.Fprintf(os.Stderr, "marked %s (groups updated: %d)\n", res.Label, res.GroupsUpdated)
			case res.SkippedReason != "":
				fmt.Fprintf(os.Stderr, "skip: %s\n", res.SkippedReason)
			}
		}
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.SpreadsheetID, "spreadsheet", cfg.SpreadsheetID, "Google spreadsheet ID (default: SPREADSHEET_ID env)")
	fs.StringVar(&cfg.TrackChannelID, "track-channel", cfg.TrackChannelID, "Channel ID to listen on (default: TRACK_CHANNEL_ID env)")
	fs.Int64Var(&cfg.RequireAuthorID, "author", cfg.RequireAuthorID, "Required author user ID of the daily post (default: REQUIRE_AUTHOR_ID env)")
	fs.StringVar(&cfg.TitleMatch, "title-match", cfg.TitleMatch, "Phrase required in the post content or embed text (default: TITLE_MATCH env)")
	fs.StringVar(&cfg.TrackEmoji, "emoji", cfg.TrackEmoji, "Tracked reaction emoji (default: TRACK_EMOJI env)")
	fs.StringVar(&cfg.TabIndividuals, "tab-individuals", cfg.TabIndividuals, "Individuals worksheet name")
	fs.StringVar(&cfg.TabGroups, "tab-groups", cfg.TabGroups, "Groups worksheet name")
	fs.StringVar(&cfg.TabMapping, "tab-mapping", cfg.TabMapping, "Member mapping worksheet name")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "IANA timezone for calendar-date logic")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Buffered event queue size")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Log intended writes instead of applying them")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
