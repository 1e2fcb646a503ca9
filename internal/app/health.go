package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/jachtproef/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")

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

	pool, err := connectPool(cfg, *timeout)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	logger.Info().
		Str("driver", pool.Driver()).
		Dur("timeout", *timeout).
		Msg("database health check passed")
	fmt.Printf("ok: %s database ping successful\n", pool.Driver())
	return 0
}
