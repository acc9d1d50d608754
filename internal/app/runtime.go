package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/cli"
	"horse.fit/jobcatalog/internal/config"
	"horse.fit/jobcatalog/internal/cyclelock"
	"horse.fit/jobcatalog/internal/db"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/ingest"
	"horse.fit/jobcatalog/internal/logging"
	"horse.fit/jobcatalog/internal/scheduler"
)

// loadRuntime loads the env file, config and logger. A non-zero code means
// the command should exit with it.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), 1
	}
	return cfg, logger, 0
}

func connectDatabase(cfg *config.Config, logger zerolog.Logger, timeout time.Duration) (*db.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, err
	}
	return pool, nil
}

func pipelineOptions(cfg *config.Config) dedup.PipelineOptions {
	return dedup.PipelineOptions{
		Resolver: dedup.ResolverOptions{
			CandidateLimit: cfg.FuzzyCandidateLimit,
			Threshold:      cfg.FuzzyThreshold,
			CityScoped:     cfg.FuzzyCityScoped,
		},
	}
}

// services bundles the Postgres-backed pipeline pieces shared by the
// process, schedule and serve commands.
type services struct {
	pool     *db.Pool
	postings *db.PostingStore
	runs     *db.ScrapeLogStore
	pipeline *dedup.Pipeline
	ingest   *ingest.Service
	locker   cyclelock.Locker
	cycle    *scheduler.Cycle
}

func newServices(ctx context.Context, cfg *config.Config, pool *db.Pool, logger zerolog.Logger, spoolDir string) (*services, error) {
	locker, err := cyclelock.New(ctx, cfg.RedisURL, cfg.CycleLockTTL)
	if err != nil {
		return nil, fmt.Errorf("init cycle lock: %w", err)
	}

	postings := db.NewPostingStore(pool)
	runs := db.NewScrapeLogStore(pool)
	pipeline := dedup.NewPipeline(postings, pipelineOptions(cfg), logger)
	service := ingest.NewService(pipeline, runs, ingest.NewNormalizer(nil), logger)
	cycle := scheduler.NewCycle(service, pipeline, locker, scheduler.CycleOptions{
		Spool:          ingest.Spool{Dir: spoolDir},
		SourceDelay:    cfg.SourceDelay,
		StalenessHours: cfg.StalenessHours,
	}, logger)

	return &services{
		pool:     pool,
		postings: postings,
		runs:     runs,
		pipeline: pipeline,
		ingest:   service,
		locker:   locker,
		cycle:    cycle,
	}, nil
}

func (s *services) Close() {
	if s.locker != nil {
		_ = s.locker.Close()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
