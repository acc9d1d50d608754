package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/cyclelock"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/ingest"
)

var cycleNow = time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)

type captureLedger struct {
	mu   sync.Mutex
	runs []ingest.Run
}

func (l *captureLedger) RecordRun(_ context.Context, run ingest.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return nil
}

func newTestCycle(t *testing.T, dir string, store *dedup.MemoryStore, ledger ingest.RunLedger, locker cyclelock.Locker) *Cycle {
	t.Helper()
	now := func() time.Time { return cycleNow }
	pipeline := dedup.NewPipeline(store, dedup.PipelineOptions{
		Resolver: dedup.ResolverOptions{CityScoped: true},
		Now:      now,
	}, zerolog.Nop())
	service := ingest.NewService(pipeline, ledger, ingest.NewNormalizer(now), zerolog.Nop())
	return NewCycle(service, pipeline, locker, CycleOptions{
		Spool:          ingest.Spool{Dir: dir},
		StalenessHours: 72,
		SweepSources:   []string{"alljobs", "drushim"},
	}, zerolog.Nop())
}

func writeSpool(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCycleProcessesSpoolAndSweeps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpool(t, dir, "alljobs.jsonl",
		`{"title":"Backend Developer","company":"Acme","city":"Haifa","url":"https://alljobs.example/1"}`+"\n"+
			`{"title":"Sous Chef","company":"Bistro","city":"Eilat","url":"https://alljobs.example/2"}`+"\n")
	writeSpool(t, dir, "broken.jsonl", `[{"title":`)
	writeSpool(t, dir, "drushim.json",
		`[{"title":"backend developer","company":"ACME","city":"haifa","url":"https://drushim.example/9"}]`)

	store := dedup.NewMemoryStore()
	stale, err := store.Insert(context.Background(), dedup.Posting{
		Title:       "Old Listing",
		URL:         "https://alljobs.example/old",
		SourceSite:  "alljobs",
		Fingerprint: "0123456789abcdef0123456789abcdef",
		IsActive:    true,
		FirstSeenAt: cycleNow.Add(-200 * time.Hour),
		LastSeenAt:  cycleNow.Add(-100 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed stale posting: %v", err)
	}

	ledger := &captureLedger{}
	cycle := newTestCycle(t, dir, store, ledger, nil)

	report, err := cycle.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if report.CycleID == "" {
		t.Fatal("expected a cycle id")
	}
	if len(report.Runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(report.Runs))
	}

	wantSources := []string{"alljobs", "broken", "drushim"}
	for i, run := range report.Runs {
		if run.Source != wantSources[i] {
			t.Fatalf("run %d: expected source %s, got %s", i, wantSources[i], run.Source)
		}
		if run.CycleID != report.CycleID {
			t.Fatalf("run %d: cycle id mismatch", i)
		}
	}
	if report.Runs[0].Counts.New != 2 {
		t.Fatalf("expected 2 new alljobs postings, got %+v", report.Runs[0].Counts)
	}
	if report.Runs[1].Status != ingest.StatusFailed || report.Runs[1].Error == "" {
		t.Fatalf("expected failed run for unreadable batch, got %+v", report.Runs[1])
	}
	if report.Runs[2].Counts.Duplicate != 1 {
		t.Fatalf("expected drushim posting marked duplicate, got %+v", report.Runs[2].Counts)
	}
	if len(ledger.runs) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(ledger.runs))
	}

	if report.Swept["alljobs"] != 1 || report.Swept["drushim"] != 0 {
		t.Fatalf("unexpected sweep counts %v", report.Swept)
	}
	old, ok, err := store.Get(context.Background(), stale.ID)
	if err != nil || !ok {
		t.Fatalf("get stale posting: ok=%v err=%v", ok, err)
	}
	if old.IsActive {
		t.Fatal("expected stale posting deactivated")
	}

	pending, err := ingest.Spool{Dir: dir}.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected every batch marked done, got %v", pending)
	}
}

func TestCycleRestrictedToOneSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpool(t, dir, "alljobs.jsonl", `{"title":"Data Analyst","company":"Globex","url":"https://alljobs.example/5"}`)
	writeSpool(t, dir, "drushim.jsonl", `{"title":"Data Analyst","company":"Initech","url":"https://drushim.example/5"}`)

	cycle := newTestCycle(t, dir, dedup.NewMemoryStore(), &captureLedger{}, nil)
	report, err := cycle.Run(context.Background(), "Drushim")
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(report.Runs) != 1 || report.Runs[0].Source != "drushim" {
		t.Fatalf("expected only drushim run, got %+v", report.Runs)
	}
	if _, swept := report.Swept["alljobs"]; swept {
		t.Fatalf("expected only drushim swept, got %v", report.Swept)
	}

	pending, err := ingest.Spool{Dir: dir}.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Source != "alljobs" {
		t.Fatalf("expected alljobs batch untouched, got %v", pending)
	}
}

func TestCycleRefusesWhenLockHeld(t *testing.T) {
	t.Parallel()

	locker, err := cyclelock.New(context.Background(), "", time.Hour)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	release, err := locker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	cycle := newTestCycle(t, t.TempDir(), dedup.NewMemoryStore(), &captureLedger{}, locker)
	if _, err := cycle.Run(context.Background(), ""); !IsBusy(err) {
		t.Fatalf("expected busy error, got %v", err)
	}
}

type cancellingRunner struct {
	cancel context.CancelFunc
	calls  int
}

func (r *cancellingRunner) RunBatch(_ context.Context, cycleID, source string, records []json.RawMessage) (ingest.Run, error) {
	r.calls++
	r.cancel()
	return ingest.Run{CycleID: cycleID, Source: source, Status: ingest.StatusSuccess}, nil
}

func (r *cancellingRunner) RecordFailure(_ context.Context, cycleID, source string, cause error) ingest.Run {
	return ingest.Run{CycleID: cycleID, Source: source, Status: ingest.StatusFailed, Error: cause.Error()}
}

type countingSweeper struct {
	calls int
}

func (s *countingSweeper) Sweep(context.Context, string, int) (int64, error) {
	s.calls++
	return 0, nil
}

func TestCycleStopsDuringSourceDelayOnCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSpool(t, dir, "alljobs.jsonl", `{"title":"A","url":"https://a.example/1"}`)
	writeSpool(t, dir, "drushim.jsonl", `{"title":"B","url":"https://b.example/1"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &cancellingRunner{cancel: cancel}
	sweeper := &countingSweeper{}
	cycle := NewCycle(runner, sweeper, nil, CycleOptions{
		Spool:        ingest.Spool{Dir: dir},
		SourceDelay:  time.Hour,
		SweepSources: []string{"alljobs"},
	}, zerolog.Nop())

	report, err := cycle.Run(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runner.calls != 1 || len(report.Runs) != 1 {
		t.Fatalf("expected a single batch before cancellation, calls=%d runs=%d", runner.calls, len(report.Runs))
	}
	if sweeper.calls != 0 {
		t.Fatalf("expected no sweep after cancellation, got %d", sweeper.calls)
	}
}

func TestGroupBySourceKeepsFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	groups := groupBySource([]ingest.SpoolFile{
		{Source: "b", Path: "b.json"},
		{Source: "a", Path: "a.jsonl"},
		{Source: "b", Path: "b.jsonl"},
	})
	if len(groups) != 2 || groups[0][0].Source != "b" || len(groups[0]) != 2 || groups[1][0].Source != "a" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}
