package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, read from the environment.
type Config struct {
	// UPRN identifies the household to the council API. It is never logged
	// and never written into the calendar output.
	UPRN string

	OutputFile   string
	FetchTimeout time.Duration

	// HorizonWeeks is how far forward recurring collections are projected.
	HorizonWeeks int
	// ReminderHours is how many hours before the start of the collection day
	// the alarm fires.
	ReminderHours int

	// CalDAV settings, only needed by the publish command.
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
}

// Load reads configuration from the environment with defaults. A missing UPRN
// is an error here so it surfaces before any network call is attempted.
func Load() (*Config, error) {
	cfg := &Config{
		UPRN:           strings.TrimSpace(os.Getenv("SGC_UPRN")),
		OutputFile:     getenvDefault("OUTPUT_FILE", "docs/bin_collections.ics"),
		HorizonWeeks:   getenvInt("HORIZON_WEEKS", 26),
		ReminderHours:  getenvInt("REMINDER_HOURS", 12),
		CalDAVURL:      os.Getenv("CALDAV_URL"),
		CalDAVUsername: os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword: os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar: os.Getenv("CALDAV_CALENDAR"),
	}

	if cfg.UPRN == "" {
		return nil, fmt.Errorf("no UPRN supplied; set the SGC_UPRN environment variable")
	}

	timeoutStr := getenvDefault("FETCH_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	cfg.FetchTimeout = timeout

	return cfg, nil
}

// ValidateCalDAV checks the settings the publish command needs.
func (c *Config) ValidateCalDAV() error {
	if c.CalDAVURL == "" || c.CalDAVUsername == "" || c.CalDAVPassword == "" || c.CalDAVCalendar == "" {
		return fmt.Errorf("publish requires CALDAV_URL, CALDAV_USERNAME, CALDAV_PASSWORD and CALDAV_CALENDAR to be set")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
