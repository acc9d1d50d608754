package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/ingest"
)

// ScrapeLogStore persists ingest runs to jobs.scrape_logs.
type ScrapeLogStore struct {
	pool *Pool
}

var _ ingest.RunLedger = (*ScrapeLogStore)(nil)

func NewScrapeLogStore(pool *Pool) *ScrapeLogStore {
	return &ScrapeLogStore{pool: pool}
}

type ScrapeLogEntry struct {
	ScrapeLogID   int64     `json:"scrape_log_id"`
	CycleID       *string   `json:"cycle_id,omitempty"`
	Site          string    `json:"site"`
	Status        string    `json:"status"`
	JobsFound     int       `json:"jobs_found"`
	JobsNew       int       `json:"jobs_new"`
	JobsMerged    int       `json:"jobs_merged"`
	JobsDuplicate int       `json:"jobs_duplicate"`
	JobsInvalid   int       `json:"jobs_invalid"`
	Errors        int       `json:"errors"`
	DurationMS    int64     `json:"duration_ms"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

const scrapeLogColumns = `
	l.scrape_log_id,
	l.cycle_id::text,
	l.site,
	l.status,
	l.jobs_found,
	l.jobs_new,
	l.jobs_merged,
	l.jobs_duplicate,
	l.jobs_invalid,
	l.errors,
	l.duration_ms,
	l.error,
	l.created_at`

func (s *ScrapeLogStore) RecordRun(ctx context.Context, run ingest.Run) error {
	const q = `
INSERT INTO jobs.scrape_logs (
	cycle_id,
	site,
	status,
	jobs_found,
	jobs_new,
	jobs_merged,
	jobs_duplicate,
	jobs_invalid,
	errors,
	duration_ms,
	error,
	created_at
)
VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	createdAt := run.FinishedAt
	if createdAt.IsZero() {
		createdAt = globaltime.UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		strings.TrimSpace(run.CycleID),
		run.Source,
		run.Status,
		run.Counts.Found,
		run.Counts.New,
		run.Counts.Merged,
		run.Counts.Duplicate,
		run.Counts.Invalid,
		run.Counts.Errors,
		run.Duration.Milliseconds(),
		nullable(run.Error),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert scrape log for %s: %w", run.Source, err)
	}
	return nil
}

// ListRecentRuns returns the newest entries first.
func (s *ScrapeLogStore) ListRecentRuns(ctx context.Context, limit int) ([]ScrapeLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	q := `SELECT` + scrapeLogColumns + `
FROM jobs.scrape_logs l
ORDER BY l.created_at DESC, l.scrape_log_id DESC
LIMIT $1
`
	return s.list(ctx, q, limit)
}

// LastRunPerSource returns the most recent entry for every site that has one.
func (s *ScrapeLogStore) LastRunPerSource(ctx context.Context) (map[string]ScrapeLogEntry, error) {
	q := `SELECT DISTINCT ON (l.site)` + scrapeLogColumns + `
FROM jobs.scrape_logs l
ORDER BY l.site, l.created_at DESC, l.scrape_log_id DESC
`
	entries, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ScrapeLogEntry, len(entries))
	for _, e := range entries {
		out[e.Site] = e
	}
	return out, nil
}

func (s *ScrapeLogStore) list(ctx context.Context, q string, args ...any) ([]ScrapeLogEntry, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query scrape logs: %w", err)
	}
	defer rows.Close()

	out := make([]ScrapeLogEntry, 0, 32)
	for rows.Next() {
		var e ScrapeLogEntry
		if err := rows.Scan(
			&e.ScrapeLogID,
			&e.CycleID,
			&e.Site,
			&e.Status,
			&e.JobsFound,
			&e.JobsNew,
			&e.JobsMerged,
			&e.JobsDuplicate,
			&e.JobsInvalid,
			&e.Errors,
			&e.DurationMS,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scrape log row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scrape log rows: %w", err)
	}
	return out, nil
}
