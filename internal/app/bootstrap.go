package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jachtproef/internal/cli"
	"horse.fit/jachtproef/internal/config"
	"horse.fit/jachtproef/internal/db"
	"horse.fit/jachtproef/internal/dedupe"
	"horse.fit/jachtproef/internal/globaltime"
	"horse.fit/jachtproef/internal/logging"
	"horse.fit/jachtproef/internal/matcher"
	"horse.fit/jachtproef/internal/memstore"
	"horse.fit/jachtproef/internal/metrics"
	"horse.fit/jachtproef/internal/pipeline"
	"horse.fit/jachtproef/internal/source"
	"horse.fit/jachtproef/internal/taxonomy"
)

const syncLockName = "sync"

// loadRuntime loads the env file, the config and the logger. Problems are
// reported on stderr; ok is false when the command should exit 1.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, bool) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), false
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), false
	}
	return cfg, logger, true
}

func connectPool(cfg *config.Config, timeout time.Duration) (*db.Pool, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// newSyncService wires the pipeline against pool. A nil pool gives a dry-run
// service backed by an in-memory store with no ledger.
func newSyncService(cfg *config.Config, logger zerolog.Logger, pool *db.Pool, m *metrics.Metrics) (*pipeline.Service, *memstore.Store, error) {
	catalogue, err := config.LoadCatalogue(cfg.SourcesFile)
	if err != nil {
		return nil, nil, err
	}
	sources, err := source.FromCatalogue(catalogue)
	if err != nil {
		return nil, nil, err
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("source catalogue %s enables no sources", cfg.SourcesFile)
	}

	deps := pipeline.Deps{Sources: sources, Metrics: m}
	var dryRun *memstore.Store
	if pool != nil {
		deps.Store = db.NewMatchStore(pool)
		deps.Locker = pool.RunLocker(syncLockName, cfg.RunLockTTL, globaltime.Now)
		deps.Ledger = pool
	} else {
		dryRun = memstore.New()
		deps.Store = dryRun
		deps.Locker = dryRun
	}

	return pipeline.NewService(deps, pipelineOptions(cfg, catalogue), logger), dryRun, nil
}

func pipelineOptions(cfg *config.Config, catalogue *config.Catalogue) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Classifier = taxonomy.NewClassifier(classifierRules(catalogue))
	opts.Workers = cfg.NormalizeWorkers
	opts.SourceTimeout = cfg.SourceTimeout
	opts.CloseExpired = cfg.CloseExpired

	measure := cfg.Measure()
	opts.Dedupe = dedupe.Options{Priority: catalogue.Priority, Threshold: cfg.DedupThreshold, Measure: measure}
	opts.Match = matcher.Options{
		Weights:   matcher.DefaultWeights,
		Threshold: cfg.MatchThreshold,
		Adjacent:  &matcher.AdjacentOptions{OrganizerFloor: cfg.AdjacentOrganizerFloor},
		Measure:   measure,
	}

	opts.Correction = matcher.DefaultCorrection()
	opts.Correction.Options.Threshold = cfg.CorrectionThreshold
	opts.Correction.Options.Measure = measure
	if len(catalogue.GenericCodes) > 0 {
		opts.Correction.GenericCodes = catalogue.GenericCodes
	}
	return opts
}

func classifierRules(catalogue *config.Catalogue) map[string][]taxonomy.Rule {
	if catalogue == nil || len(catalogue.TypeRules) == 0 {
		return nil
	}
	rules := make(map[string][]taxonomy.Rule)
	for _, tr := range catalogue.TypeRules {
		calendar := strings.TrimSpace(tr.Calendar)
		rules[calendar] = append(rules[calendar], taxonomy.Rule{
			Code:    strings.TrimSpace(tr.Code),
			Phrases: lowerAll(tr.When),
			Words:   lowerAll(tr.Words),
		})
	}
	return rules
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
