package ics

import (
	"bincal/internal/models"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

func testEvents() []models.CollectionEvent {
	return []models.CollectionEvent{
		{
			Service:     "Recycling",
			Label:       "♻️ Recycling collection",
			Date:        time.Date(2026, time.February, 23, 0, 0, 0, 0, time.UTC),
			Description: "Schedule: Monday every other week\nRound: Round 1",
			UID:         "11111111-2222-3333-4444-555555555555@southglos-bins",
		},
		{
			Service:     "Food",
			Label:       "🍎 Food waste collection",
			Date:        time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
			Description: "Schedule: Monday every week\nRound: Round 2",
			UID:         "66666666-7777-8888-9999-000000000000@southglos-bins",
		},
	}
}

func serialize(t *testing.T, cal *ical.Calendar) string {
	t.Helper()
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		t.Fatalf("failed to encode calendar: %v", err)
	}
	return buf.String()
}

func TestBuildCalendarStructure(t *testing.T) {
	now := time.Date(2026, time.February, 20, 8, 30, 0, 0, time.UTC)
	cal := Build(testEvents(), Options{ReminderHours: 12, Now: now})
	body := serialize(t, cal)

	required := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//South Glos Bin Collections//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:South Glos Bin Collections",
		"X-WR-TIMEZONE:Europe/London",
		"X-PUBLISHED-TTL:P1D",
		"BEGIN:VEVENT",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	for _, field := range required {
		if !strings.Contains(body, field) {
			t.Errorf("calendar missing %q", field)
		}
	}

	if got := strings.Count(body, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("expected 2 events, found %d", got)
	}
}

func TestBuildAllDayEvents(t *testing.T) {
	cal := Build(testEvents(), Options{ReminderHours: 12})
	body := serialize(t, cal)

	// All-day shape: DATE values, exclusive end one day later.
	if !strings.Contains(body, "DTSTART;VALUE=DATE:20260223") {
		t.Error("first event should start as all-day on 20260223")
	}
	if !strings.Contains(body, "DTEND;VALUE=DATE:20260224") {
		t.Error("first event should end (exclusive) on 20260224")
	}
	if !strings.Contains(body, "SUMMARY:♻️ Recycling collection") {
		t.Error("missing recycling summary")
	}
	if !strings.Contains(body, "TRANSP:TRANSPARENT") {
		t.Error("events should be transparent")
	}
	if !strings.Contains(body, "UID:11111111-2222-3333-4444-555555555555@southglos-bins") {
		t.Error("event UID not carried through")
	}
}

func TestBuildReminderAlarms(t *testing.T) {
	cal := Build(testEvents(), Options{ReminderHours: 8})
	body := serialize(t, cal)

	if got := strings.Count(body, "BEGIN:VALARM"); got != 2 {
		t.Fatalf("expected one alarm per event, found %d", got)
	}
	if !strings.Contains(body, "ACTION:DISPLAY") {
		t.Error("alarm should be a display alarm")
	}
	if !strings.Contains(body, "-PT8H") {
		t.Error("alarm trigger should honor the configured reminder offset")
	}
	if !strings.Contains(body, "Tomorrow: ♻️ Recycling collection") {
		t.Error("alarm description should name the collection")
	}
}

func TestBuildStampUsesProvidedTime(t *testing.T) {
	now := time.Date(2026, time.February, 20, 8, 30, 0, 0, time.UTC)
	cal := Build(testEvents(), Options{ReminderHours: 12, Now: now})
	body := serialize(t, cal)

	if !strings.Contains(body, "DTSTAMP:20260220T083000Z") {
		t.Error("DTSTAMP should come from Options.Now")
	}
}

func TestBuildObjectOmitsSubscriptionHeaders(t *testing.T) {
	// Objects stored in a CalDAV collection must not carry METHOD or the
	// other calendar-level subscription hints.
	event := testEvents()[0]
	cal := BuildObject(event, Options{ReminderHours: 12})
	body := serialize(t, cal)

	for _, forbidden := range []string{"METHOD:", "X-WR-CALNAME", "X-WR-TIMEZONE", "REFRESH-INTERVAL", "X-PUBLISHED-TTL"} {
		if strings.Contains(body, forbidden) {
			t.Errorf("stored object must not contain %q", forbidden)
		}
	}

	required := []string{
		"VERSION:2.0",
		"PRODID:-//South Glos Bin Collections//EN",
		"UID:11111111-2222-3333-4444-555555555555@southglos-bins",
		"DTSTART;VALUE=DATE:20260223",
		"BEGIN:VALARM",
	}
	for _, field := range required {
		if !strings.Contains(body, field) {
			t.Errorf("stored object missing %q", field)
		}
	}
	if got := strings.Count(body, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("expected exactly 1 event, found %d", got)
	}
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs", "bin_collections.ics")

	cal := Build(testEvents(), Options{ReminderHours: 12})
	if err := WriteFile(path, cal); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if !strings.Contains(string(data), "BEGIN:VCALENDAR") {
		t.Error("written file is not a calendar")
	}
}
