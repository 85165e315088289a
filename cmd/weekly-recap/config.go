package main

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	SpreadsheetID   string
	StatusChannelID string
	TabIndividuals  string
	Model           string
	APIKey          string
	Days            int
	SkipNarrative   bool
	DryRun          bool
}

func (c Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("missing -spreadsheet (or SPREADSHEET_ID)")
	}
	if c.StatusChannelID == "" {
		return errors.New("missing -status-channel (or STATUS_CHANNEL_ID)")
	}
	if c.Days <= 0 {
		return errors.New("days must be > 0")
	}
	if !c.SkipNarrative && c.Model == "" {
		return errors.New("missing -model")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		StatusChannelID: os.Getenv("STATUS_CHANNEL_ID"),
		TabIndividuals:  envOr("TAB_INDIVIDUALS", "Individuals"),
		Model:           envOr("RECAP_MODEL", "gpt-5-mini"),
		Days:            envInt("RECAP_DAYS", 7),
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
