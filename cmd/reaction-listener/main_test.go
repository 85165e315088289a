package main

import (
	"flag"
	"testing"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.SpreadsheetID = "sheet-id"
	cfg.TrackChannelID = "100"
	cfg.RequireAuthorID = 42
	return cfg
}

func TestParseFlags_Overrides(t *testing.T) {
	fs := flag.NewFlagSet("reaction-listener", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-spreadsheet", "sheet-id",
		"-track-channel", "100",
		"-author", "42",
		"-emoji", "📖",
		"-queue-size", "64",
		"-dry-run",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.TrackChannelID != "100" || cfg.RequireAuthorID != 42 {
		t.Fatalf("TrackChannelID=%q RequireAuthorID=%d", cfg.TrackChannelID, cfg.RequireAuthorID)
	}
	if cfg.TrackEmoji != "📖" {
		t.Fatalf("TrackEmoji=%q", cfg.TrackEmoji)
	}
	if cfg.QueueSize != 64 || !cfg.DryRun {
		t.Fatalf("QueueSize=%d DryRun=%v", cfg.QueueSize, cfg.DryRun)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	cfg := validConfig()
	cfg.TrackChannelID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for missing track channel")
	}

	cfg = validConfig()
	cfg.QueueSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for zero queue size")
	}
}
