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
	"horse.fit/jachtproef/internal/globaltime"
	"horse.fit/jachtproef/internal/metrics"
	"horse.fit/jachtproef/internal/pipeline"
)

func runCloseExpired(args []string) int {
	fs := flag.NewFlagSet("close-expired", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	pool, err := connectPool(cfg, 30*time.Second)
	if err != nil {
		logger.Error().Err(err).Msg("close-expired failed to connect to database")
		fmt.Fprintf(os.Stderr, "Close expired failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	// Closing needs no sources; only the store and the shared run lock.
	service := pipeline.NewService(pipeline.Deps{
		Store:   db.NewMatchStore(pool),
		Locker:  pool.RunLocker(syncLockName, cfg.RunLockTTL, globaltime.Now),
		Metrics: metrics.New(),
	}, pipeline.DefaultOptions(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	summary, err := service.CloseExpired(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		fmt.Fprintln(os.Stderr, "Close expired skipped: a sync run holds the lock")
		return 1
	}
	fmt.Printf("close-expired closed=%d errors=%d\n", summary.Closed, summary.Errors)
	if err != nil {
		logger.Error().Err(err).Msg("close-expired failed")
		fmt.Fprintf(os.Stderr, "Close expired failed: %v\n", err)
		return 1
	}
	return 0
}
