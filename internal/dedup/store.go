package dedup

import (
	"context"
	"time"
)

// Store is the record store the resolver and pipeline depend on. Lookups
// report absence through the bool result, never through an error.
type Store interface {
	FindByURL(ctx context.Context, url string) (Posting, bool, error)
	// FindCanonicalByFingerprint returns an active canonical record with the
	// fingerprint, preferring the oldest.
	FindCanonicalByFingerprint(ctx context.Context, fingerprint string) (Posting, bool, error)
	// FuzzyCandidates returns active canonical records with a company,
	// most recently seen first.
	FuzzyCandidates(ctx context.Context, query CandidateQuery) ([]Candidate, error)
	Get(ctx context.Context, id int64) (Posting, bool, error)
	Insert(ctx context.Context, posting Posting) (InsertResult, error)
	ApplyMerge(ctx context.Context, id int64, patch MergePatch) error
	// Sweep deactivates active postings of source last seen before cutoff.
	Sweep(ctx context.Context, source string, cutoff time.Time) (int64, error)
	RecordDecision(ctx context.Context, event Event) error
}
