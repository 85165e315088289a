package main

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	SpreadsheetID   string
	TrackChannelID  string
	RequireAuthorID int64
	TitleMatch      string
	TrackEmoji      string
	TabIndividuals  string
	TabGroups       string
	TabMapping      string
	Timezone        string
	QueueSize       int
	DryRun          bool
}

func (c Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("missing -spreadsheet (or SPREADSHEET_ID)")
	}
	if c.TrackChannelID == "" {
		return errors.New("missing -track-channel (or TRACK_CHANNEL_ID)")
	}
	if c.RequireAuthorID == 0 {
		return errors.New("missing -author (or REQUIRE_AUTHOR_ID)")
	}
	if c.QueueSize <= 0 {
		return errors.New("queue-size must be > 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		TrackChannelID:  os.Getenv("TRACK_CHANNEL_ID"),
		RequireAuthorID: envInt64("REQUIRE_AUTHOR_ID", 0),
		TitleMatch:      os.Getenv("TITLE_MATCH"),
		TrackEmoji:      envOr("TRACK_EMOJI", "✅"),
		TabIndividuals:  envOr("TAB_INDIVIDUALS", "Individuals"),
		TabGroups:       envOr("TAB_GROUPS", "Groups"),
		TabMapping:      envOr("TAB_MAPPING", "Member Mapping"),
		Timezone:        envOr("TIMEZONE", "America/Los_Angeles"),
		QueueSize:       envInt("EVENT_QUEUE_SIZE", 256),
		DryRun:          os.Getenv("DRY_RUN") == "1",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
