package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment:         "local",
		LogLevel:            "info",
		DBMinConns:          1,
		DBMaxConns:          8,
		CycleLockTTL:        2 * time.Hour,
		StalenessHours:      72,
		SourceDelay:         5 * time.Second,
		ScrapeIntervalHours: 6,
		FuzzyCandidateLimit: 500,
		FuzzyThreshold:      0.85,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "min exceeds max", mutate: func(c *Config) { c.DBMinConns = 9 }, wantErr: true},
		{name: "zero staleness", mutate: func(c *Config) { c.StalenessHours = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *Config) { c.FuzzyThreshold = 1.2 }, wantErr: true},
		{name: "zero candidate cap", mutate: func(c *Config) { c.FuzzyCandidateLimit = 0 }, wantErr: true},
		{name: "short lock ttl with redis", mutate: func(c *Config) {
			c.RedisURL = "redis://localhost:6379/0"
			c.CycleLockTTL = time.Second
		}, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestRequireDatabase(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.RequireDatabase(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
	cfg.DatabaseURL = "postgres://localhost/jobs"
	if err := cfg.RequireDatabase(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCORSAllowedOriginsList_Dedupes(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CORSAllowedOrigins = " https://a.example , https://b.example,https://a.example,, "
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}
