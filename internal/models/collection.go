package models

import (
	"strings"
	"time"
)

// Recurrence describes how often a waste service is collected. It is resolved
// once when a record is ingested so downstream code never re-reads the
// free-text schedule description.
type Recurrence int

const (
	// RecurrenceOnce means the record carried no schedule description; only
	// the next collection date is known.
	RecurrenceOnce Recurrence = iota
	// RecurrenceWeekly is a 7-day cadence ("Monday every week").
	RecurrenceWeekly
	// RecurrenceFortnightly is a 14-day cadence ("Monday every other week").
	RecurrenceFortnightly
	// RecurrenceUnknown means the description matched no known cadence; the
	// raw text is kept on the Collection for display.
	RecurrenceUnknown
)

// ParseRecurrence resolves a schedule description into a Recurrence tag.
// Matching is a case-insensitive substring check; "every other week" must be
// tested before "every week" since the former contains the latter.
func ParseRecurrence(schedule string) Recurrence {
	s := strings.ToLower(schedule)
	switch {
	case strings.TrimSpace(s) == "":
		return RecurrenceOnce
	case strings.Contains(s, "every other week"):
		return RecurrenceFortnightly
	case strings.Contains(s, "every week"):
		return RecurrenceWeekly
	default:
		return RecurrenceUnknown
	}
}

// Interval returns the number of days between occurrences, or 0 when the
// service has no projectable cadence.
func (r Recurrence) Interval() int {
	switch r {
	case RecurrenceWeekly:
		return 7
	case RecurrenceFortnightly:
		return 14
	default:
		return 0
	}
}

func (r Recurrence) String() string {
	switch r {
	case RecurrenceWeekly:
		return "weekly"
	case RecurrenceFortnightly:
		return "fortnightly"
	case RecurrenceUnknown:
		return "unknown"
	default:
		return "once"
	}
}

// Collection is one raw per-service record from the council API.
type Collection struct {
	Service    string     // Waste stream name as reported upstream (e.g. "Recycling")
	Date       time.Time  // Next collection date, midnight UTC, no time-of-day semantics
	Schedule   string     // Free-text cadence description, may be empty
	Round      string     // Opaque round identifier, carried through for display only
	Recurrence Recurrence // Cadence tag resolved from Schedule at ingestion
}

// CollectionEvent is a single projected collection occurrence, ready to be
// rendered as a calendar event.
type CollectionEvent struct {
	Service     string    // Raw service name, used for dedup and UID derivation
	Label       string    // Human-readable summary (e.g. "♻️ Recycling collection")
	Date        time.Time // Occurrence date, midnight UTC
	Description string    // Schedule text and round identifier
	UID         string    // Deterministic identifier, stable across regenerations
}
