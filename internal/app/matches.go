package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"horse.fit/jachtproef/internal/cli"
	"horse.fit/jachtproef/internal/db"
	"horse.fit/jachtproef/internal/record"
)

func runMatches(args []string) int {
	fs := flag.NewFlagSet("matches", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	status := fs.String("status", "", "Filter by registration status: open, opens_at or closed")
	matchType := fs.String("type", "", "Filter by type code")
	calendar := fs.String("calendar", "", "Filter by source calendar id")
	from := fs.String("from", "", "First match date, YYYY-MM-DD")
	to := fs.String("to", "", "Last match date, YYYY-MM-DD")
	limit := fs.Int("limit", 50, "Maximum rows (1-500)")
	offset := fs.Int("offset", 0, "Rows to skip")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Query timeout")

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
	opts, err := matchListOptions(*status, *matchType, *calendar, *from, *to, *limit, *offset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}
	pool, err := connectPool(cfg, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list matches: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	items, err := pool.ListMatches(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Msg("list matches failed")
		fmt.Fprintf(os.Stderr, "Failed to list matches: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		err = printJSON(map[string]any{"items": items, "count": len(items)})
	} else {
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, []string{
				item.Date,
				truncateForTable(item.Organizer, 40),
				truncateForTable(item.Location, 24),
				item.Type,
				item.RegistrationStatus,
				formatUTCTimestampPtr(item.OpensAt),
				item.MatchUUID,
			})
		}
		err = writeTable([]string{"DATE", "ORGANIZER", "LOCATION", "TYPE", "STATUS", "OPENS_AT", "MATCH_UUID"}, rows)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func matchListOptions(status, matchType, calendar, from, to string, limit, offset int) (db.MatchListOptions, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch record.RegistrationState(status) {
	case "", record.StatusOpen, record.StatusOpensAt, record.StatusClosed:
	default:
		return db.MatchListOptions{}, fmt.Errorf("--status must be open, opens_at or closed")
	}
	if limit < 1 || limit > 500 {
		return db.MatchListOptions{}, fmt.Errorf("--limit must be between 1 and 500")
	}
	if offset < 0 {
		return db.MatchListOptions{}, fmt.Errorf("--offset must be >= 0")
	}

	fromDay, err := parseDateFlag("from", from)
	if err != nil {
		return db.MatchListOptions{}, err
	}
	toDay, err := parseDateFlag("to", to)
	if err != nil {
		return db.MatchListOptions{}, err
	}
	if fromDay != "" && toDay != "" && fromDay > toDay {
		return db.MatchListOptions{}, fmt.Errorf("--from must be <= --to")
	}

	return db.MatchListOptions{
		Status:   status,
		Type:     strings.TrimSpace(matchType),
		Calendar: strings.TrimSpace(calendar),
		From:     fromDay,
		To:       toDay,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func runRuns(args []string) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 20, "Maximum rows (1-200)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Query timeout")

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
	if *limit < 1 || *limit > 200 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 200")
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}
	pool, err := connectPool(cfg, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runs, err := pool.ListRuns(ctx, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("list runs failed")
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		err = printJSON(map[string]any{"items": runs, "count": len(runs)})
	} else {
		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			errText := ""
			if run.ErrorMessage != nil {
				errText = truncateForTable(*run.ErrorMessage, 48)
			}
			rows = append(rows, []string{
				run.StartedAt.UTC().Format(time.RFC3339),
				run.Status,
				run.TriggeredBy,
				strconv.Itoa(run.RecordsFetched),
				strconv.Itoa(run.Inserted),
				strconv.Itoa(run.Updated),
				strconv.Itoa(run.Closed),
				strconv.Itoa(run.Errors),
				errText,
			})
		}
		err = writeTable([]string{"STARTED_AT", "STATUS", "TRIGGER", "FETCHED", "INSERTED", "UPDATED", "CLOSED", "ERRORS", "ERROR"}, rows)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}
