package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"horse.fit/jachtproef/internal/similarity"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"JP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"JP_DB_MAX_CONNS" default:"8"`

	SourcesFile   string        `envconfig:"SOURCES_FILE" default:"sources.yaml"`
	SourceTimeout time.Duration `envconfig:"SOURCE_TIMEOUT" default:"30s"`

	MatchThreshold         float64 `envconfig:"MATCH_THRESHOLD" default:"0.6"`
	CorrectionThreshold    float64 `envconfig:"CORRECTION_THRESHOLD" default:"0.5"`
	DedupThreshold         float64 `envconfig:"DEDUP_THRESHOLD" default:"0.8"`
	AdjacentOrganizerFloor float64 `envconfig:"ADJACENT_ORGANIZER_FLOOR" default:"0.7"`
	SimilarityMeasure      string  `envconfig:"SIMILARITY_MEASURE" default:"overlap"`
	NormalizeWorkers       int     `envconfig:"NORMALIZE_WORKERS" default:"4"`
	CloseExpired           bool    `envconfig:"CLOSE_EXPIRED" default:"true"`

	RunLockTTL time.Duration `envconfig:"RUN_LOCK_TTL" default:"30m"`

	APITokenHash       string `envconfig:"API_TOKEN_HASH" default:""`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("JP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("JP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("JP_DB_MIN_CONNS (%d) cannot exceed JP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.SourcesFile) == "" {
		return fmt.Errorf("SOURCES_FILE is required")
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be > 0")
	}

	thresholds := []struct {
		name  string
		value float64
	}{
		{"MATCH_THRESHOLD", c.MatchThreshold},
		{"CORRECTION_THRESHOLD", c.CorrectionThreshold},
		{"DEDUP_THRESHOLD", c.DedupThreshold},
		{"ADJACENT_ORGANIZER_FLOOR", c.AdjacentOrganizerFloor},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value >= 1 {
			return fmt.Errorf("%s must be in [0,1), got %v", th.name, th.value)
		}
	}

	if _, err := similarity.ParseMeasure(c.SimilarityMeasure); err != nil {
		return fmt.Errorf("SIMILARITY_MEASURE: %w", err)
	}

	if c.NormalizeWorkers < 1 {
		return fmt.Errorf("NORMALIZE_WORKERS must be >= 1")
	}
	if c.RunLockTTL < time.Minute {
		return fmt.Errorf("RUN_LOCK_TTL must be >= 1m")
	}
	return nil
}

// Measure returns the parsed SIMILARITY_MEASURE, falling back to overlap.
func (c *Config) Measure() similarity.Measure {
	if c == nil {
		return similarity.MeasureOverlap
	}
	m, err := similarity.ParseMeasure(c.SimilarityMeasure)
	if err != nil {
		return similarity.MeasureOverlap
	}
	return m
}

// Driver returns the lowercased DB_DRIVER.
func (c *Config) Driver() string {
	if c == nil {
		return DriverPostgres
	}
	return strings.ToLower(strings.TrimSpace(c.DBDriver))
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
