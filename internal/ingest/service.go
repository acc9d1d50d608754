// Package ingest validates, normalizes and deduplicates batches of scraped
// postings and records one scrape log entry per batch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/globaltime"
	payloadschema "horse.fit/jobcatalog/schema"
)

const (
	maxRunErrorLength = 1000

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Processor is the dedup pipeline as seen by a batch.
type Processor interface {
	Process(ctx context.Context, posting dedup.Posting) (dedup.Outcome, error)
}

// RunLedger persists scrape log entries.
type RunLedger interface {
	RecordRun(ctx context.Context, run Run) error
}

type Counts struct {
	Found     int
	New       int
	Merged    int
	Duplicate int
	Invalid   int
	Errors    int
}

// Run is one (source, batch) scrape log entry.
type Run struct {
	CycleID    string
	Source     string
	Status     string
	Counts     Counts
	Duration   time.Duration
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

type Service struct {
	processor  Processor
	ledger     RunLedger
	normalizer *Normalizer
	logger     zerolog.Logger
}

// NewService wires a batch runner. ledger may be nil when runs are not
// persisted (dry runs).
func NewService(processor Processor, ledger RunLedger, normalizer *Normalizer, logger zerolog.Logger) *Service {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Service{
		processor:  processor,
		ledger:     ledger,
		normalizer: normalizer,
		logger:     logger,
	}
}

// RunBatch processes records one at a time. Invalid records and per-posting
// failures are counted and skipped; only cancellation stops the batch.
func (s *Service) RunBatch(ctx context.Context, cycleID string, source string, records []json.RawMessage) (Run, error) {
	if s == nil || s.processor == nil {
		return Run{}, fmt.Errorf("ingest service is not initialized")
	}
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return Run{}, fmt.Errorf("source is required")
	}

	run := Run{
		CycleID:   cycleID,
		Source:    source,
		Status:    StatusSuccess,
		StartedAt: globaltime.UTC(),
	}
	run.Counts.Found = len(records)

	logger := s.logger.With().Str("source", source).Str("cycle_id", cycleID).Logger()

	var runErr error
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("batch interrupted after %d of %d records: %w", i, len(records), err)
			break
		}

		raw, err := payloadschema.ValidateRawPosting(record)
		if err != nil {
			run.Counts.Invalid++
			logger.Debug().Err(err).Int("record", i).Msg("skipping invalid posting")
			continue
		}

		posting := s.normalizer.Normalize(source, *raw)
		outcome, err := s.processor.Process(ctx, posting)
		if err != nil {
			run.Counts.Errors++
			logger.Warn().Err(err).Str("url", posting.URL).Msg("posting failed")
			continue
		}

		switch outcome.Decision.Action {
		case dedup.ActionMerge:
			run.Counts.Merged++
		case dedup.ActionMarkDuplicate:
			run.Counts.Duplicate++
		default:
			run.Counts.New++
		}
	}

	run.FinishedAt = globaltime.UTC()
	run.Duration = run.FinishedAt.Sub(run.StartedAt)
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = truncateError(runErr.Error())
	}

	s.record(ctx, logger, run)

	event := logger.Info()
	if runErr != nil {
		event = logger.Warn().Err(runErr)
	}
	event.
		Str("status", run.Status).
		Int("found", run.Counts.Found).
		Int("new", run.Counts.New).
		Int("merged", run.Counts.Merged).
		Int("duplicate", run.Counts.Duplicate).
		Int("invalid", run.Counts.Invalid).
		Int("errors", run.Counts.Errors).
		Dur("duration", run.Duration).
		Msg("batch processed")

	return run, runErr
}

// RecordFailure logs a run that could not start, for example an unreadable
// batch file.
func (s *Service) RecordFailure(ctx context.Context, cycleID, source string, cause error) Run {
	now := globaltime.UTC()
	run := Run{
		CycleID:    cycleID,
		Source:     strings.ToLower(strings.TrimSpace(source)),
		Status:     StatusFailed,
		Error:      truncateError(cause.Error()),
		StartedAt:  now,
		FinishedAt: now,
	}
	s.record(ctx, s.logger, run)
	return run
}

func (s *Service) record(ctx context.Context, logger zerolog.Logger, run Run) {
	if s.ledger == nil {
		return
	}
	// The ledger write must survive a cancelled batch context.
	if err := s.ledger.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error().Err(err).Msg("failed to record scrape log")
	}
}

func truncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= maxRunErrorLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:maxRunErrorLength])
}
