package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/jachtproef/internal/cli"
	"horse.fit/jachtproef/internal/matcher"
	"horse.fit/jachtproef/internal/record"
)

type matchRow struct {
	Date                string  `json:"date"`
	LeftOrganizer       string  `json:"left_organizer"`
	LeftLocation        string  `json:"left_location"`
	RightDate           string  `json:"right_date,omitempty"`
	RightOrganizer      string  `json:"right_organizer,omitempty"`
	RightLocation       string  `json:"right_location,omitempty"`
	Strategy            string  `json:"strategy"`
	Score               float64 `json:"score"`
	OrganizerSimilarity float64 `json:"organizer_similarity"`
	LocationSimilarity  float64 `json:"location_similarity"`
}

// runMatch pairs two calendars from the configured sources. It reads the
// sources only; the store is not opened.
func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	left := fs.String("left", "", "Calendar id whose listings are matched (required)")
	right := fs.String("right", "", "Calendar id searched for counterparts (required)")
	threshold := fs.Float64("threshold", -1, "Override MATCH_THRESHOLD for this run")
	unmatched := fs.Bool("unmatched", true, "Include left listings without a counterpart")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	leftCalendar := strings.TrimSpace(*left)
	rightCalendar := strings.TrimSpace(*right)
	if leftCalendar == "" || rightCalendar == "" {
		fmt.Fprintln(os.Stderr, "--left and --right are required")
		return 2
	}
	if strings.EqualFold(leftCalendar, rightCalendar) {
		fmt.Fprintln(os.Stderr, "--left and --right must name different calendars")
		return 2
	}
	if *threshold >= 1 {
		fmt.Fprintln(os.Stderr, "--threshold must be < 1")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}
	if *threshold >= 0 {
		cfg.MatchThreshold = *threshold
	}

	service, _, err := newSyncService(cfg, logger, nil, nil)
	if err != nil {
		logger.Error().Err(err).Msg("match setup failed")
		fmt.Fprintf(os.Stderr, "Match setup failed: %v\n", err)
		return 1
	}

	ctx, cancel := withSignalCancel(context.Background())
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, *timeout)
	defer timeoutCancel()

	results, err := service.MatchCalendars(ctx, leftCalendar, rightCalendar)
	if err != nil {
		logger.Error().Err(err).Str("left", leftCalendar).Str("right", rightCalendar).Msg("match failed")
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		return 1
	}

	rows := make([]matchRow, 0, len(results))
	matched := 0
	for _, res := range results {
		if res.Matched() {
			matched++
		} else if !*unmatched {
			continue
		}
		rows = append(rows, toMatchRow(res))
	}

	if outputFormat == outputFormatJSON {
		err = printJSON(map[string]any{
			"left":      leftCalendar,
			"right":     rightCalendar,
			"threshold": cfg.MatchThreshold,
			"total":     len(results),
			"matched":   matched,
			"items":     rows,
		})
	} else {
		err = writeMatchTable(rows)
		if err == nil {
			fmt.Printf("match left=%s right=%s total=%d matched=%d\n", leftCalendar, rightCalendar, len(results), matched)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func toMatchRow(res matcher.Result) matchRow {
	row := matchRow{
		Date:                res.Left.Date.Format(record.DateLayout),
		LeftOrganizer:       res.Left.OrganizerRaw,
		LeftLocation:        res.Left.LocationRaw,
		Strategy:            string(res.Strategy),
		Score:               res.Score,
		OrganizerSimilarity: res.OrganizerSimilarity,
		LocationSimilarity:  res.LocationSimilarity,
	}
	if res.Right != nil {
		row.RightDate = res.Right.Date.Format(record.DateLayout)
		row.RightOrganizer = res.Right.OrganizerRaw
		row.RightLocation = res.Right.LocationRaw
	}
	return row
}

func writeMatchTable(rows []matchRow) error {
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{
			row.Date,
			truncateForTable(row.LeftOrganizer, 32),
			truncateForTable(row.LeftLocation, 20),
			row.RightDate,
			truncateForTable(row.RightOrganizer, 32),
			truncateForTable(row.RightLocation, 20),
			row.Strategy,
			formatScore(row.Score),
		})
	}
	return writeTable([]string{"DATE", "ORGANIZER", "LOCATION", "MATCH_DATE", "MATCH_ORGANIZER", "MATCH_LOCATION", "STRATEGY", "SCORE"}, table)
}
