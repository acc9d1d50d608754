package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMinConns  int32  `envconfig:"JC_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"JC_DB_MAX_CONNS" default:"8"`

	RedisURL     string        `envconfig:"REDIS_URL" default:""`
	CycleLockTTL time.Duration `envconfig:"CYCLE_LOCK_TTL" default:"2h"`

	StalenessHours      int           `envconfig:"STALENESS_HOURS" default:"72"`
	SourceDelay         time.Duration `envconfig:"SOURCE_DELAY" default:"5s"`
	ScrapeIntervalHours int           `envconfig:"SCRAPE_INTERVAL_HOURS" default:"6"`
	SpoolDir            string        `envconfig:"SPOOL_DIR" default:"spool"`

	FuzzyCandidateLimit int     `envconfig:"FUZZY_CANDIDATE_LIMIT" default:"500"`
	FuzzyThreshold      float64 `envconfig:"FUZZY_THRESHOLD" default:"0.85"`
	FuzzyCityScoped     bool    `envconfig:"FUZZY_CITY_SCOPED" default:"true"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

// Load reads the environment. DATABASE_URL is checked by RequireDatabase so
// that offline commands (validate, classify, ingest --dry-run) work without it.
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
	if c.DBMinConns < 0 {
		return fmt.Errorf("JC_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("JC_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("JC_DB_MIN_CONNS (%d) cannot exceed JC_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.StalenessHours < 1 {
		return fmt.Errorf("STALENESS_HOURS must be >= 1")
	}
	if c.SourceDelay < 0 {
		return fmt.Errorf("SOURCE_DELAY must be >= 0")
	}
	if c.ScrapeIntervalHours < 1 {
		return fmt.Errorf("SCRAPE_INTERVAL_HOURS must be >= 1")
	}
	if c.FuzzyCandidateLimit < 1 {
		return fmt.Errorf("FUZZY_CANDIDATE_LIMIT must be >= 1")
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("FUZZY_THRESHOLD must be in (0, 1]")
	}
	if strings.TrimSpace(c.RedisURL) != "" && c.CycleLockTTL < time.Minute {
		return fmt.Errorf("CYCLE_LOCK_TTL must be >= 1m when REDIS_URL is set")
	}
	return nil
}

func (c *Config) RequireDatabase() error {
	if c == nil || strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
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
