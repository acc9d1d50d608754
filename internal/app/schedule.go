package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/jobcatalog/internal/cli"
	"horse.fit/jobcatalog/internal/scheduler"
)

func runSchedule(args []string) int {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	interval := fs.Int("interval-hours", 0, "Hours between cycles (default: SCRAPE_INTERVAL_HOURS)")
	stopTimeout := fs.Duration("stop-timeout", time.Minute, "How long to wait for a running cycle on shutdown")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *interval < 0 {
		fmt.Fprintln(os.Stderr, "--interval-hours must be >= 0")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	hours := *interval
	if hours == 0 {
		hours = cfg.ScrapeIntervalHours
	}

	pool, err := connectDatabase(cfg, logger, 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := signalContext()
	defer cancel()

	svcs, err := newServices(ctx, cfg, pool, logger, cfg.SpoolDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize cycle: %v\n", err)
		return 1
	}
	defer svcs.Close()

	sched := scheduler.New(svcs.cycle, hours, logger)
	if err := sched.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
		return 1
	}

	<-ctx.Done()

	select {
	case <-sched.Stop().Done():
	case <-time.After(*stopTimeout):
		logger.Warn().Dur("stop_timeout", *stopTimeout).Msg("running cycle did not finish before shutdown")
	}
	return 0
}
