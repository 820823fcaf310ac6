package ics

import (
	"bincal/internal/models"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-ical"
)

const (
	productID    = "-//South Glos Bin Collections//EN"
	calendarName = "South Glos Bin Collections"
	timezoneName = "Europe/London"
)

// Options control the parts of the rendered calendar that are tunable.
type Options struct {
	// ReminderHours is how many hours before midnight on the collection day
	// the reminder alarm fires.
	ReminderHours int
	// Now supplies the DTSTAMP generation time; zero means time.Now.
	Now time.Time
}

// Build renders projected collection events as a subscribable iCalendar
// document. Each event is an all-day entry with an exclusive end date and a
// single display alarm. Events are rendered in the order given; the projector
// already guarantees one event per (service, date).
func Build(events []models.CollectionEvent, opts Options) *ical.Calendar {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	setRaw(cal.Props, "X-WR-CALNAME", calendarName)
	setRaw(cal.Props, "X-WR-TIMEZONE", timezoneName)
	// Hint calendar apps to re-fetch daily; collection dates shift around
	// bank holidays.
	setDuration(cal.Props, "REFRESH-INTERVAL", "P1D")
	setRaw(cal.Props, "X-PUBLISHED-TTL", "P1D")

	for _, event := range events {
		cal.Children = append(cal.Children, buildEvent(event, opts.ReminderHours, now))
	}
	return cal
}

// BuildObject renders a single event as a minimal calendar object for storage
// in a CalDAV collection: just VERSION, PRODID, and the event. RFC 4791
// forbids a METHOD property in stored calendar objects, so the subscription
// headers Build emits must not appear here.
func BuildObject(event models.CollectionEvent, opts Options) *ical.Calendar {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, buildEvent(event, opts.ReminderHours, now.UTC()))
	return cal
}

// buildEvent renders a single collection occurrence as a VEVENT with an
// embedded VALARM.
func buildEvent(event models.CollectionEvent, reminderHours int, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now)
	setDate(ve.Props, ical.PropDateTimeStart, event.Date)
	setDate(ve.Props, ical.PropDateTimeEnd, event.Date.AddDate(0, 0, 1))
	ve.Props.SetText(ical.PropSummary, event.Label)
	ve.Props.SetText(ical.PropDescription, event.Description)
	// All-day bin events shouldn't mark the user busy.
	ve.Props.SetText(ical.PropTransparency, "TRANSPARENT")

	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, fmt.Sprintf("Tomorrow: %s", event.Label))
	setDuration(alarm.Props, ical.PropTrigger, fmt.Sprintf("-PT%dH", reminderHours))
	ve.Children = append(ve.Children, alarm)

	return ve
}

// setDate sets an all-day DATE-valued property.
func setDate(props ical.Props, name string, date time.Time) {
	p := ical.NewProp(name)
	p.Params.Set(ical.ParamValue, string(ical.ValueDate))
	p.Value = date.Format("20060102")
	props.Set(p)
}

// setDuration sets a DURATION-valued property from an ISO 8601 duration string.
func setDuration(props ical.Props, name, value string) {
	p := ical.NewProp(name)
	p.Params.Set(ical.ParamValue, string(ical.ValueDuration))
	p.Value = value
	props.Set(p)
}

// setRaw sets a non-standard property without any value-type parameter.
func setRaw(props ical.Props, name, value string) {
	p := ical.NewProp(name)
	p.Value = value
	props.Set(p)
}

// WriteFile encodes the calendar and persists it, creating parent directories
// as needed. The file is fully regenerated on every run.
func WriteFile(path string, cal *ical.Calendar) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
