// weekly-recap posts a digest of the trailing attendance window: hard counts
// from the Individuals grid plus a short model-written narrative. The
// narrative is best-effort; the counts post either way.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/theimaginaryfoundation/groups-logger/attendance"
	"github.com/theimaginaryfoundation/groups-logger/discord"
	"github.com/theimaginaryfoundation/groups-logger/gsheets"
	"github.com/theimaginaryfoundation/groups-logger/recap"
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
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" && !cfg.SkipNarrative {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key, or -skip-narrative)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grid, err := gsheets.New(ctx, []byte(creds), cfg.SpreadsheetID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	tables := attendance.Tables{Individuals: cfg.TabIndividuals}
	stats, err := recap.BuildStats(ctx, grid, tables, attendance.DefaultGridLayout(), cfg.Days)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	var narrative recap.Narrative
	if !cfg.SkipNarrative {
		gen := recap.NewGenerator(apiKey, cfg.Model)
		n, err := gen.Narrate(ctx, stats)
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("narrative skipped: %w", err).Error())
		} else {
			narrative = n
		}
	}

	lines := recap.Lines(stats, narrative)
	if cfg.DryRun {
		fmt.Fprintln(os.Stderr, "[dry-run] would post:")
		fmt.Fprintln(os.Stderr, strings.Join(lines, "\n"))
	} else {
		dc, err := discord.New(token)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if err := dc.Send(ctx, cfg.StatusChannelID, strings.Join(lines, "\n")); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("post recap: %w", err).Error())
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stdout, "days=%d members=%d narrative=%v dry_run=%v\n",
		len(stats.Days), len(stats.Members), narrative.Headline != "", cfg.DryRun)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.SpreadsheetID, "spreadsheet", cfg.SpreadsheetID, "Google spreadsheet ID (default: SPREADSHEET_ID env)")
	fs.StringVar(&cfg.StatusChannelID, "status-channel", cfg.StatusChannelID, "Channel ID for the recap post (default: STATUS_CHANNEL_ID env)")
	fs.StringVar(&cfg.TabIndividuals, "tab-individuals", cfg.TabIndividuals, "Individuals worksheet name")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for the narrative (default: RECAP_MODEL env)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.Days, "days", cfg.Days, "How many trailing date columns to cover")
	fs.BoolVar(&cfg.SkipNarrative, "skip-narrative", false, "Post counts only, no model call")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Print the recap instead of posting it")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
