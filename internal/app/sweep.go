package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/jobcatalog/internal/cli"
	"horse.fit/jobcatalog/internal/db"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/taxonomy"
)

func runSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	source := fs.String("source", "", "Sweep only this source (default: every registered source)")
	hours := fs.Int("hours", 0, "Staleness window in hours (default: STALENESS_HOURS)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *hours < 0 {
		fmt.Fprintln(os.Stderr, "--hours must be >= 0")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	window := *hours
	if window == 0 {
		window = cfg.StalenessHours
	}

	sources := taxonomy.SourceIDs()
	if s := strings.ToLower(strings.TrimSpace(*source)); s != "" {
		sources = []string{s}
	}

	pool, err := connectDatabase(cfg, logger, 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := signalContext()
	defer cancel()

	pipeline := dedup.NewPipeline(db.NewPostingStore(pool), pipelineOptions(cfg), logger)

	var total int64
	for _, s := range sources {
		n, err := pipeline.Sweep(ctx, s, window)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sweep failed for %s: %v\n", s, err)
			return 1
		}
		if n > 0 {
			fmt.Printf("sweep source=%s deactivated=%d\n", s, n)
		}
		total += n
	}
	fmt.Printf("sweep sources=%d hours=%d deactivated=%d\n", len(sources), window, total)
	return 0
}
