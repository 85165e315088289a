package main

import (
	"errors"
	"os"
	"strconv"

	"github.com/theimaginaryfoundation/groups-logger/attendance"
)

type Config struct {
	SpreadsheetID   string
	TrackChannelID  string
	StatusChannelID string
	RequireAuthorID int64
	TitleMatch      string
	TrackEmoji      string
	TabIndividuals  string
	TabGroups       string
	TabMapping      string
	CheckName       string
	Timezone        string
	Lookback        int
	PostRanking     string
	Date            string
	DryRun          bool
}

func (c Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("missing -spreadsheet (or SPREADSHEET_ID)")
	}
	if c.TrackChannelID == "" {
		return errors.New("missing -track-channel (or TRACK_CHANNEL_ID)")
	}
	if c.StatusChannelID == "" {
		return errors.New("missing -status-channel (or STATUS_CHANNEL_ID)")
	}
	if c.RequireAuthorID == 0 {
		return errors.New("missing -author (or REQUIRE_AUTHOR_ID)")
	}
	if c.Lookback <= 0 {
		return errors.New("lookback must be > 0")
	}
	if _, err := attendance.ParsePostRanking(c.PostRanking); err != nil {
		return err
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		TrackChannelID:  os.Getenv("TRACK_CHANNEL_ID"),
		StatusChannelID: os.Getenv("STATUS_CHANNEL_ID"),
		RequireAuthorID: envInt64("REQUIRE_AUTHOR_ID", 0),
		TitleMatch:      os.Getenv("TITLE_MATCH"),
		TrackEmoji:      envOr("TRACK_EMOJI", "✅"),
		TabIndividuals:  envOr("TAB_INDIVIDUALS", "Individuals"),
		TabGroups:       envOr("TAB_GROUPS", "Groups"),
		TabMapping:      envOr("TAB_MAPPING", "Member Mapping"),
		CheckName:       envOr("CHECK_NAME", "Scheduled Check"),
		Timezone:        envOr("TIMEZONE", "America/Los_Angeles"),
		Lookback:        envInt("LOOKBACK_MESSAGES", 50),
		PostRanking:     envOr("POST_RANKING", "first"),
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
