package southglos

import (
	"bincal/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.southglos.gov.uk"

// apiEntry is one raw record in the council API's "value" array.
type apiEntry struct {
	ServiceName    string `json:"hso_servicename"`
	NextCollection string `json:"hso_nextcollection"`
	Schedule       string `json:"hso_scheduledescription"`
	Round          string `json:"hso_round"`
}

// Client fetches waste-collection records from the South Gloucestershire
// Council API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient creates a new council API client with the given request timeout.
func NewClient(logger *slog.Logger, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(logger *slog.Logger, timeout time.Duration, baseURL string) *Client {
	c := NewClient(logger, timeout)
	c.baseURL = baseURL
	return c
}

// Collections fetches the collection schedule for a household and converts it
// to the internal model. Records with a missing or unparseable next-collection
// date are skipped with a warning; an empty result is an error because no
// calendar can be produced from it.
func (c *Client) Collections(ctx context.Context, uprn string) ([]models.Collection, error) {
	u := fmt.Sprintf("%s/wastecomp/GetCollectionDetails?uprn=%s", c.baseURL, url.QueryEscape(uprn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// The API rejects requests that don't look like they came from the
	// council's own web app.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; BinCalendarBot/1.0)")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", "https://apps.southglos.gov.uk")
	req.Header.Set("Referer", "https://apps.southglos.gov.uk/")

	c.logger.Info("Fetching collection dates from council API.")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("council API returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Value []apiEntry `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode council API response: %w", err)
	}

	if len(payload.Value) == 0 {
		return nil, fmt.Errorf("no collection dates returned; the API may have changed")
	}

	return c.toCollections(payload.Value), nil
}

// toCollections converts raw API entries to the internal model, resolving the
// recurrence tag once per record.
func (c *Client) toCollections(items []apiEntry) []models.Collection {
	var collections []models.Collection
	for _, item := range items {
		if item.NextCollection == "" {
			c.logger.Warn("Record has no next collection date, skipping.", "service", item.ServiceName)
			continue
		}

		date, err := parseCollectionDate(item.NextCollection)
		if err != nil {
			c.logger.Warn("Could not parse collection date, skipping record.",
				"service", item.ServiceName, "date", item.NextCollection, "error", err)
			continue
		}

		collections = append(collections, models.Collection{
			Service:    item.ServiceName,
			Date:       date,
			Schedule:   item.Schedule,
			Round:      item.Round,
			Recurrence: models.ParseRecurrence(item.Schedule),
		})
	}
	c.logger.Info("Fetched collection records.", "count", len(collections))
	return collections
}

// parseCollectionDate accepts the ISO 8601 timestamps the API emits (e.g.
// "2026-02-23T00:00:00+00:00") as well as bare dates, and truncates any time
// component to the calendar day.
func parseCollectionDate(raw string) (time.Time, error) {
	var t time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err = time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, err
}
