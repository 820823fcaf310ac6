package schedule

import (
	"bincal/internal/models"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// uidNamespace seeds the UUIDv5 derivation so identifiers stay stable across
// runs and across hosts. Generating a random UID here would make every
// regeneration look like a brand-new event to subscribed calendar apps.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.southglos.gov.uk/wastecomp"))

// serviceLabels maps known waste streams to their display summary.
var serviceLabels = map[string]string{
	"Recycling": "♻️ Recycling collection",
	"Refuse":    "🗑️ Refuse (black bin) collection",
	"Food":      "🍎 Food waste collection",
	"Garden":    "🌿 Garden waste collection",
}

var titleCaser = cases.Title(language.English)

// Project expands each collection record into the series of occurrences it
// implies, starting at its next collection date and advancing by its
// recurrence interval until horizonWeeks past the start (end boundary
// inclusive). Records without a projectable cadence contribute a single
// occurrence.
//
// At most one event is emitted per (service, date) pair across the whole
// input; the council API is known to report the same collection twice under
// independent entries. Output preserves generation order: input records in
// their original order, ascending dates within each record.
func Project(collections []models.Collection, horizonWeeks int) []models.CollectionEvent {
	seen := make(map[string]struct{})
	var events []models.CollectionEvent

	for _, coll := range collections {
		if coll.Date.IsZero() {
			continue
		}

		interval := coll.Recurrence.Interval()
		end := coll.Date.AddDate(0, 0, horizonWeeks*7)

		for date := coll.Date; !date.After(end); date = date.AddDate(0, 0, interval) {
			key := coll.Service + "\x00" + date.Format("2006-01-02")
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				events = append(events, models.CollectionEvent{
					Service:     coll.Service,
					Label:       Label(coll.Service),
					Date:        date,
					Description: describe(coll),
					UID:         EventUID(coll.Service, date),
				})
			}
			if interval == 0 {
				break
			}
		}
	}
	return events
}

// Label returns the display summary for a service. Unknown services get a
// generic bin label rather than an error; the upstream service list is not a
// closed set.
func Label(service string) string {
	if label, ok := serviceLabels[service]; ok {
		return label
	}
	return fmt.Sprintf("🗑️ %s collection", titleCaser.String(service))
}

// EventUID derives the iCalendar UID for a service's occurrence on a date.
// It is a UUIDv5 over the service and date, so regenerating the calendar
// produces identical UIDs and subscribed apps update events in place.
func EventUID(service string, date time.Time) string {
	name := fmt.Sprintf("%s/%s", strings.ToLower(service), date.Format("2006-01-02"))
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@southglos-bins"
}

func describe(coll models.Collection) string {
	return fmt.Sprintf("Schedule: %s\nRound: %s", coll.Schedule, coll.Round)
}
