// Package scheduler runs ingest cycles: every pending spool batch, one
// source at a time, followed by a staleness sweep of every known source.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/cyclelock"
	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/ingest"
	"horse.fit/jobcatalog/internal/logging"
	"horse.fit/jobcatalog/internal/taxonomy"
)

// Sweeper deactivates stale postings of one source.
type Sweeper interface {
	Sweep(ctx context.Context, source string, hours int) (int64, error)
}

// BatchRunner is the ingest service as seen by a cycle.
type BatchRunner interface {
	RunBatch(ctx context.Context, cycleID, source string, records []json.RawMessage) (ingest.Run, error)
	RecordFailure(ctx context.Context, cycleID, source string, cause error) ingest.Run
}

type CycleOptions struct {
	Spool          ingest.Spool
	SourceDelay    time.Duration
	StalenessHours int
	// SweepSources defaults to every registered source.
	SweepSources []string
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	CycleID    string
	Runs       []ingest.Run
	Swept      map[string]int64
	StartedAt  time.Time
	FinishedAt time.Time
}

type Cycle struct {
	runner  BatchRunner
	sweeper Sweeper
	locker  cyclelock.Locker
	opts    CycleOptions
	logger  zerolog.Logger
}

func NewCycle(runner BatchRunner, sweeper Sweeper, locker cyclelock.Locker, opts CycleOptions, logger zerolog.Logger) *Cycle {
	if len(opts.SweepSources) == 0 {
		opts.SweepSources = taxonomy.SourceIDs()
	}
	return &Cycle{
		runner:  runner,
		sweeper: sweeper,
		locker:  locker,
		opts:    opts,
		logger:  logging.Component(logger, "cycle"),
	}
}

// Run processes pending spool files. When only is non-empty the cycle is
// restricted to that source, including the sweep. Returns cyclelock.ErrHeld
// when another cycle is running.
func (c *Cycle) Run(ctx context.Context, only string) (CycleReport, error) {
	if c == nil || c.runner == nil || c.sweeper == nil {
		return CycleReport{}, fmt.Errorf("cycle is not initialized")
	}
	if c.locker != nil {
		release, err := c.locker.Acquire(ctx)
		if err != nil {
			return CycleReport{}, err
		}
		defer release()
	}

	only = strings.ToLower(strings.TrimSpace(only))
	report := CycleReport{
		CycleID:   uuid.NewString(),
		Swept:     map[string]int64{},
		StartedAt: globaltime.UTC(),
	}
	logger := c.logger.With().Str("cycle_id", report.CycleID).Logger()

	var files []ingest.SpoolFile
	var err error
	if only != "" {
		files, err = c.opts.Spool.ForSource(only)
	} else {
		files, err = c.opts.Spool.Pending()
	}
	if err != nil {
		return report, fmt.Errorf("list spool: %w", err)
	}

	logger.Info().Int("files", len(files)).Str("only", only).Msg("cycle started")

	for i, group := range groupBySource(files) {
		if i > 0 {
			if err := sleep(ctx, c.opts.SourceDelay); err != nil {
				return c.finish(report, logger, err)
			}
		}
		for _, file := range group {
			run, err := c.processFile(ctx, report.CycleID, file)
			report.Runs = append(report.Runs, run)
			if err != nil {
				return c.finish(report, logger, err)
			}
		}
	}

	sweepSources := c.opts.SweepSources
	if only != "" {
		sweepSources = []string{only}
	}
	for _, source := range sweepSources {
		if err := ctx.Err(); err != nil {
			return c.finish(report, logger, err)
		}
		n, err := c.sweeper.Sweep(ctx, source, c.opts.StalenessHours)
		if err != nil {
			logger.Error().Err(err).Str("source", source).Msg("sweep failed")
			continue
		}
		report.Swept[source] = n
	}

	return c.finish(report, logger, nil)
}

// processFile returns an error only when the cycle must stop.
func (c *Cycle) processFile(ctx context.Context, cycleID string, file ingest.SpoolFile) (ingest.Run, error) {
	records, readErr := readSpoolFile(file.Path)
	if readErr != nil {
		c.logger.Error().Err(readErr).Str("path", file.Path).Msg("unreadable batch")
		run := c.runner.RecordFailure(ctx, cycleID, file.Source, readErr)
		c.markDone(file)
		return run, nil
	}

	run, err := c.runner.RunBatch(ctx, cycleID, file.Source, records)
	if err != nil {
		// Left in place; a rerun merges by URL.
		return run, err
	}
	c.markDone(file)
	return run, nil
}

func (c *Cycle) markDone(file ingest.SpoolFile) {
	if _, err := c.opts.Spool.MarkDone(file, globaltime.UTC()); err != nil {
		c.logger.Error().Err(err).Str("path", file.Path).Msg("failed to mark batch done")
	}
}

func (c *Cycle) finish(report CycleReport, logger zerolog.Logger, err error) (CycleReport, error) {
	report.FinishedAt = globaltime.UTC()
	var swept int64
	for _, n := range report.Swept {
		swept += n
	}
	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Int("runs", len(report.Runs)).
		Int64("deactivated", swept).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("cycle finished")
	return report, err
}

func readSpoolFile(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()
	return ingest.ReadRecords(f)
}

// groupBySource keeps the spool order of first appearance.
func groupBySource(files []ingest.SpoolFile) [][]ingest.SpoolFile {
	index := map[string]int{}
	var groups [][]ingest.SpoolFile
	for _, f := range files {
		i, ok := index[f.Source]
		if !ok {
			i = len(groups)
			index[f.Source] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], f)
	}
	return groups
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsBusy reports whether err means another cycle holds the lock.
func IsBusy(err error) bool {
	return errors.Is(err, cyclelock.ErrHeld)
}
