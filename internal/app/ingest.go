package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"horse.fit/jobcatalog/internal/cli"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/ingest"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	source := fs.String("source", "", "Source site id (defaults to the file's base name)")
	file := fs.String("file", "", "Batch file (JSON array or JSONL)")
	dryRun := fs.Bool("dry-run", false, "Deduplicate against an empty in-memory store; nothing is written")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall ingest timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	path := strings.TrimSpace(*file)
	if path == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}
	sourceID := strings.ToLower(strings.TrimSpace(*source))
	if sourceID == "" {
		base := filepath.Base(path)
		sourceID = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if sourceID == "" {
		fmt.Fprintln(os.Stderr, "--source is required when it cannot be derived from --file")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open batch: %v\n", err)
		return 1
	}
	records, err := ingest.ReadRecords(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read batch: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, *timeout)
	defer timeoutCancel()

	var service *ingest.Service
	if *dryRun {
		pipeline := dedup.NewPipeline(dedup.NewMemoryStore(), pipelineOptions(cfg), logger)
		service = ingest.NewService(pipeline, nil, ingest.NewNormalizer(nil), logger)
	} else {
		pool, err := connectDatabase(cfg, logger, 10*time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()

		svcs, err := newServices(ctx, cfg, pool, logger, cfg.SpoolDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize ingest: %v\n", err)
			return 1
		}
		defer svcs.Close()
		service = svcs.ingest
	}

	run, err := service.RunBatch(ctx, uuid.NewString(), sourceID, records)
	printRun(run, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}
	return 0
}

func printRun(run ingest.Run, dryRun bool) {
	fmt.Printf(
		"ingest source=%s status=%s found=%d new=%d merged=%d duplicate=%d invalid=%d errors=%d duration=%s dry_run=%t\n",
		run.Source,
		run.Status,
		run.Counts.Found,
		run.Counts.New,
		run.Counts.Merged,
		run.Counts.Duplicate,
		run.Counts.Invalid,
		run.Counts.Errors,
		run.Duration.Round(time.Millisecond),
		dryRun,
	)
}
