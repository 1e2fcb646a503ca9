package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/jachtproef/internal/cli"
	"horse.fit/jachtproef/internal/db"
	"horse.fit/jachtproef/internal/memstore"
	"horse.fit/jachtproef/internal/metrics"
	"horse.fit/jachtproef/internal/pipeline"
	"horse.fit/jachtproef/internal/record"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dryRun := fs.Bool("dry-run", false, "Run against an in-memory store and leave the database untouched")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall run timeout")
	triggeredBy := fs.String("triggered-by", "cli", "Label stored in the run ledger")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}
	if *timeout <= 0 {
		fmt.Fprintln(os.Stderr, "--timeout must be > 0")
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	var pool *db.Pool
	if !*dryRun {
		pool, err = connectPool(cfg, 30*time.Second)
		if err != nil {
			logger.Error().Err(err).Msg("sync failed to connect to database")
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			return 1
		}
		defer pool.Close()
	}

	service, dryStore, err := newSyncService(cfg, logger, pool, metrics.New())
	if err != nil {
		logger.Error().Err(err).Msg("sync setup failed")
		fmt.Fprintf(os.Stderr, "Sync setup failed: %v\n", err)
		return 1
	}

	ctx, cancel := withSignalCancel(context.Background())
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, *timeout)
	defer timeoutCancel()

	summary, runErr := service.Run(ctx, *triggeredBy)
	if errors.Is(runErr, pipeline.ErrRunInProgress) {
		fmt.Fprintln(os.Stderr, "Sync skipped: another run holds the lock")
		return 1
	}

	if err := printSyncResult(outputFormat, summary, dryStore); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", runErr)
		return 1
	}
	return 0
}

type dryRunMatch struct {
	Date               string `json:"date"`
	Organizer          string `json:"organizer"`
	Location           string `json:"location"`
	Type               string `json:"type"`
	RegistrationStatus string `json:"registration_status"`
	SourceCalendarID   string `json:"source_calendar_id"`
}

func printSyncResult(format string, summary pipeline.Summary, dryStore *memstore.Store) error {
	var matches []dryRunMatch
	if dryStore != nil {
		for _, m := range dryStore.All() {
			matches = append(matches, dryRunMatch{
				Date:               m.Date.Format(record.DateLayout),
				Organizer:          m.Organizer,
				Location:           m.Location,
				Type:               m.Type,
				RegistrationStatus: string(m.RegistrationStatus),
				SourceCalendarID:   m.SourceCalendarID,
			})
		}
	}

	if format == outputFormatJSON {
		payload := map[string]any{"summary": summary}
		if dryStore != nil {
			payload["dry_run"] = true
			payload["matches"] = matches
		}
		return printJSON(payload)
	}

	if dryStore != nil {
		rows := make([][]string, 0, len(matches))
		for _, m := range matches {
			rows = append(rows, []string{
				m.Date,
				truncateForTable(m.Organizer, 40),
				truncateForTable(m.Location, 30),
				m.Type,
				m.RegistrationStatus,
				m.SourceCalendarID,
			})
		}
		if err := writeTable([]string{"DATE", "ORGANIZER", "LOCATION", "TYPE", "STATUS", "CALENDAR"}, rows); err != nil {
			return err
		}
	}
	_, err := fmt.Println("sync " + summary.String())
	return err
}
