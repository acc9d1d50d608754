package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/globaltime"
)

const DefaultSweepHours = 48

type PipelineOptions struct {
	Resolver ResolverOptions
	// Now stamps first/last-seen times; defaults to globaltime.UTC.
	Now func() time.Time
}

// Outcome reports what Process did with one posting. PostingID is the
// record that was merged into or inserted.
type Outcome struct {
	PostingID int64
	Decision  Decision
	Patched   bool
}

type Pipeline struct {
	store    Store
	resolver *Resolver
	now      func() time.Time
	logger   zerolog.Logger
}

func NewPipeline(store Store, opts PipelineOptions, logger zerolog.Logger) *Pipeline {
	now := opts.Now
	if now == nil {
		now = globaltime.UTC
	}
	return &Pipeline{
		store:    store,
		resolver: NewResolver(store, opts.Resolver, logger),
		now:      now,
		logger:   logger,
	}
}

func (p *Pipeline) Resolver() *Resolver {
	return p.resolver
}

// Process resolves one normalized posting and writes the result: merge into
// the URL match, insert as a duplicate of the canonical target, or insert
// as a new canonical record.
func (p *Pipeline) Process(ctx context.Context, posting Posting) (Outcome, error) {
	if p == nil || p.store == nil {
		return Outcome{}, fmt.Errorf("dedup pipeline is not initialized")
	}
	if strings.TrimSpace(posting.Title) == "" {
		return Outcome{}, fmt.Errorf("posting title must not be empty")
	}
	posting.URL = strings.TrimSpace(posting.URL)

	now := p.now()
	decision, err := p.resolver.Resolve(ctx, posting)
	if err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	switch decision.Action {
	case ActionMerge:
		outcome, err = p.merge(ctx, *decision.Existing, posting, decision, now)
	case ActionMarkDuplicate:
		target := decision.TargetID
		posting.DuplicateOfID = &target
		outcome, err = p.insert(ctx, posting, decision, now)
	default:
		posting.DuplicateOfID = nil
		outcome, err = p.insert(ctx, posting, decision, now)
	}
	if err != nil {
		return Outcome{}, err
	}

	p.record(ctx, outcome, now)
	return outcome, nil
}

func (p *Pipeline) insert(ctx context.Context, posting Posting, decision Decision, now time.Time) (Outcome, error) {
	posting.Fingerprint = decision.Fingerprint
	posting.IsActive = true
	if posting.FirstSeenAt.IsZero() {
		posting.FirstSeenAt = now
	}
	if posting.LastSeenAt.IsZero() {
		posting.LastSeenAt = now
	}

	result, err := p.store.Insert(ctx, posting)
	if err != nil {
		return Outcome{}, fmt.Errorf("insert posting url=%q: %w", posting.URL, err)
	}
	if result.Status == Inserted {
		return Outcome{PostingID: result.ID, Decision: decision}, nil
	}

	// Another writer took the URL between lookup and insert.
	existing, found, err := p.store.Get(ctx, result.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load conflicting posting_id=%d: %w", result.ID, err)
	}
	if !found {
		return Outcome{}, fmt.Errorf("conflicting posting_id=%d vanished", result.ID)
	}
	p.logger.Debug().
		Str("url", posting.URL).
		Int64("posting_id", result.ID).
		Msg("insert conflicted on url; merging instead")

	return p.merge(ctx, existing, posting, Decision{
		Action:      ActionMerge,
		TargetID:    existing.ID,
		Signal:      SignalInsertConflict,
		Score:       1,
		Fingerprint: decision.Fingerprint,
		Existing:    &existing,
	}, now)
}

func (p *Pipeline) merge(ctx context.Context, existing, incoming Posting, decision Decision, now time.Time) (Outcome, error) {
	patch := Merge(existing, incoming, now)
	if err := p.store.ApplyMerge(ctx, existing.ID, patch); err != nil {
		return Outcome{}, fmt.Errorf("merge into posting_id=%d: %w", existing.ID, err)
	}
	return Outcome{
		PostingID: existing.ID,
		Decision:  decision,
		Patched:   patch.HasFills(),
	}, nil
}

func (p *Pipeline) record(ctx context.Context, outcome Outcome, now time.Time) {
	event := Event{
		PostingID: outcome.PostingID,
		Action:    outcome.Decision.Action,
		Signal:    outcome.Decision.Signal,
		CreatedAt: now,
	}
	if outcome.Decision.Action != ActionUnique {
		target := outcome.Decision.TargetID
		score := outcome.Decision.Score
		event.TargetPostingID = &target
		event.Score = &score
	}
	if err := p.store.RecordDecision(ctx, event); err != nil {
		p.logger.Warn().
			Err(err).
			Int64("posting_id", outcome.PostingID).
			Str("decision", string(event.Action)).
			Msg("failed to record dedup event")
	}
}

// Sweep deactivates postings of source not seen within hours. Zero or
// negative hours fall back to DefaultSweepHours.
func (p *Pipeline) Sweep(ctx context.Context, source string, hours int) (int64, error) {
	if p == nil || p.store == nil {
		return 0, fmt.Errorf("dedup pipeline is not initialized")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return 0, fmt.Errorf("sweep source must not be empty")
	}
	if hours <= 0 {
		hours = DefaultSweepHours
	}
	cutoff := p.now().Add(-time.Duration(hours) * time.Hour)

	affected, err := p.store.Sweep(ctx, source, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep source=%s: %w", source, err)
	}
	if affected > 0 {
		p.logger.Info().
			Str("source", source).
			Int("hours", hours).
			Int64("deactivated", affected).
			Msg("marked stale postings inactive")
	}
	return affected, nil
}
