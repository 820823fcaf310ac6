package caldav

import (
	"bincal/internal/ics"
	"bincal/internal/models"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	icalenc "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "bincal/1.0")
	return t.Transport.RoundTrip(req)
}

// Publisher uploads projected collection events to a CalDAV calendar
// collection, one object per event.
type Publisher struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarURL  string
}

// NewPublisher connects to a CalDAV endpoint and locates the calendar with
// the given display name.
func NewPublisher(logger *slog.Logger, endpoint, username, password, calendarName string) (*Publisher, error) {
	transport := &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	p := &Publisher{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
	}

	logger.Info("Finding CalDAV calendar.", "calendarName", calendarName)
	calendarURL, err := p.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	p.calendarURL = calendarURL
	logger.Info("Found CalDAV calendar.", "url", calendarURL)

	return p, nil
}

// PublishEvent uploads a single collection event. The object path is derived
// from the event's deterministic UID, so publishing the same schedule again
// overwrites the existing objects instead of duplicating them.
func (p *Publisher) PublishEvent(ctx context.Context, event models.CollectionEvent, reminderHours int) error {
	p.logger.Debug("Publishing event.", "label", event.Label, "date", event.Date.Format("2006-01-02"))

	cal := ics.BuildObject(event, ics.Options{ReminderHours: reminderHours})

	// The object path must be relative to the endpoint for the webdav client.
	eventPath := path.Join(strings.TrimPrefix(p.calendarURL, p.endpoint), ObjectName(event))

	writer, err := p.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := icalenc.NewEncoder(writer).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// ObjectName is the .ics object filename for an event within the collection.
func ObjectName(event models.CollectionEvent) string {
	return event.UID + ".ics"
}

// findCalendar discovers the user's calendars and returns the URL of the one
// with the matching display name.
func (p *Publisher) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := p.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := p.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := p.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(p.endpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
