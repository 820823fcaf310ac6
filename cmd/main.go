package main

import (
	"bincal/internal/caldav"
	"bincal/internal/config"
	"bincal/internal/ics"
	"bincal/internal/models"
	"bincal/internal/schedule"
	"bincal/internal/southglos"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "bincal",
		Usage: "Generate a subscribable bin-collection calendar from the South Gloucestershire Council API.",
		Commands: []*cli.Command{
			generateCommand(),
			publishCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Fetch collection dates and write the iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Usage: "Write the calendar to this path instead of OUTPUT_FILE."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report upcoming collections without writing anything."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			events, err := fetchAndProject(c, logger, cfg)
			if err != nil {
				return err
			}

			if c.Bool("dry-run") {
				logger.Info("Dry run, no calendar written.", "events", len(events))
				return nil
			}

			output := cfg.OutputFile
			if c.String("output") != "" {
				output = c.String("output")
			}

			cal := ics.Build(events, ics.Options{ReminderHours: cfg.ReminderHours})
			if err := ics.WriteFile(output, cal); err != nil {
				return err
			}

			logger.Info("Calendar saved.", "path", output, "events", len(events))
			return nil
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Fetch collection dates and publish them to a CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be published without uploading."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCalDAV(); err != nil {
				return err
			}

			events, err := fetchAndProject(c, logger, cfg)
			if err != nil {
				return err
			}

			if c.Bool("dry-run") {
				logger.Info("Dry run, nothing published.", "events", len(events))
				return nil
			}

			publisher, err := caldav.NewPublisher(logger, cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendar)
			if err != nil {
				return fmt.Errorf("failed to create caldav publisher: %w", err)
			}

			if failed := publishAll(c.Context, logger, publisher, events, cfg.ReminderHours); failed > 0 {
				return fmt.Errorf("failed to publish %d of %d events", failed, len(events))
			}

			logger.Info("Publish finished.", "events", len(events))
			return nil
		},
	}
}

// eventPublisher is the part of the CalDAV publisher the publish loop needs.
type eventPublisher interface {
	PublishEvent(ctx context.Context, event models.CollectionEvent, reminderHours int) error
}

// publishAll uploads every event, continuing past individual failures, and
// returns how many uploads failed.
func publishAll(ctx context.Context, logger *slog.Logger, publisher eventPublisher, events []models.CollectionEvent, reminderHours int) int {
	failed := 0
	for _, event := range events {
		if err := publisher.PublishEvent(ctx, event, reminderHours); err != nil {
			logger.Error("Failed to publish event", "label", event.Label, "date", event.Date.Format("2006-01-02"), "error", err)
			failed++
		}
	}
	return failed
}

// fetchAndProject runs the shared pipeline: fetch records, project the
// schedule, and print the console summary.
func fetchAndProject(c *cli.Context, logger *slog.Logger, cfg *config.Config) ([]models.CollectionEvent, error) {
	client := southglos.NewClient(logger, cfg.FetchTimeout)
	collections, err := client.Collections(c.Context, cfg.UPRN)
	if err != nil {
		return nil, err
	}

	events := schedule.Project(collections, cfg.HorizonWeeks)
	printSummary(collections, events)
	return events, nil
}

// printSummary writes a human-readable overview of the retrieved services and
// their upcoming dates. The copy is sorted by date for readability; the
// generated calendar keeps projection order.
func printSummary(collections []models.Collection, events []models.CollectionEvent) {
	var services []string
	for _, coll := range collections {
		services = append(services, fmt.Sprintf("%s (%s)", coll.Service, coll.Recurrence))
	}
	fmt.Printf("Got %d service(s): %s\n", len(collections), strings.Join(services, ", "))

	sorted := make([]models.CollectionEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	fmt.Println("\n── Upcoming collections ──────────────────────────")
	for _, event := range sorted {
		fmt.Printf("  %s  %s\n", event.Date.Format("Mon 02 Jan 2006"), event.Label)
	}
	fmt.Println()
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
