// Package dedup decides whether an incoming posting is a re-scrape, a
// duplicate of a canonical record, or new, and applies that decision.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/textnorm"
)

const (
	DefaultCandidateLimit = 500
	DefaultFuzzyThreshold = 0.85
	// Upper bound on duplicate_of_id hops; a longer walk means the chain is
	// corrupt.
	maxResolveHops = 16
)

type Action string

const (
	ActionMerge         Action = "merge"
	ActionMarkDuplicate Action = "mark_duplicate"
	ActionUnique        Action = "unique"
)

type Signal string

const (
	SignalExactURL       Signal = "exact_url"
	SignalFingerprint    Signal = "fingerprint"
	SignalFuzzy          Signal = "fuzzy"
	SignalInsertConflict Signal = "insert_conflict"
	SignalNone           Signal = "none"
)

// Decision is the resolver verdict. TargetID is zero for ActionUnique.
// Existing is set for ActionMerge.
type Decision struct {
	Action      Action
	TargetID    int64
	Signal      Signal
	Score       float64
	Fingerprint string
	Existing    *Posting
}

type ResolverOptions struct {
	CandidateLimit int
	Threshold      float64
	CityScoped     bool
}

// SimilarityFunc scores two match keys in [0, 1].
type SimilarityFunc func(a, b string) (float64, error)

type Resolver struct {
	store      Store
	opts       ResolverOptions
	similarity SimilarityFunc
	logger     zerolog.Logger
}

func NewResolver(store Store, opts ResolverOptions, logger zerolog.Logger) *Resolver {
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = DefaultCandidateLimit
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultFuzzyThreshold
	}
	return &Resolver{
		store:      store,
		opts:       opts,
		similarity: JaroWinkler,
		logger:     logger,
	}
}

// WithSimilarity swaps the fuzzy scorer.
func (r *Resolver) WithSimilarity(fn SimilarityFunc) *Resolver {
	if fn != nil {
		r.similarity = fn
	}
	return r
}

// JaroWinkler is the default fuzzy scorer.
func JaroWinkler(a, b string) (float64, error) {
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0, err
	}
	return float64(score), nil
}

// Resolve runs the URL, fingerprint and fuzzy layers in order. The
// fingerprint is always recomputed from the posting's own fields.
func (r *Resolver) Resolve(ctx context.Context, posting Posting) (Decision, error) {
	if r == nil || r.store == nil {
		return Decision{}, fmt.Errorf("resolver is not initialized")
	}
	url := strings.TrimSpace(posting.URL)
	if url == "" {
		return Decision{}, fmt.Errorf("posting url must not be empty")
	}
	fingerprint := textnorm.Fingerprint(posting.Title, posting.Company, posting.City)

	existing, found, err := r.store.FindByURL(ctx, url)
	if err != nil {
		return Decision{}, fmt.Errorf("find posting by url: %w", err)
	}
	if found {
		return Decision{
			Action:      ActionMerge,
			TargetID:    existing.ID,
			Signal:      SignalExactURL,
			Score:       1,
			Fingerprint: fingerprint,
			Existing:    &existing,
		}, nil
	}

	match, found, err := r.store.FindCanonicalByFingerprint(ctx, fingerprint)
	if err != nil {
		return Decision{}, fmt.Errorf("find posting by fingerprint: %w", err)
	}
	if found {
		targetID, err := r.resolveThrough(ctx, match)
		if err != nil {
			return Decision{}, err
		}
		return Decision{
			Action:      ActionMarkDuplicate,
			TargetID:    targetID,
			Signal:      SignalFingerprint,
			Score:       1,
			Fingerprint: fingerprint,
		}, nil
	}

	candidateID, score, found, err := r.fuzzyMatch(ctx, posting)
	if err != nil {
		return Decision{}, err
	}
	if found {
		target, ok, err := r.store.Get(ctx, candidateID)
		if err != nil {
			return Decision{}, fmt.Errorf("load fuzzy target posting_id=%d: %w", candidateID, err)
		}
		targetID := candidateID
		if ok {
			if targetID, err = r.resolveThrough(ctx, target); err != nil {
				return Decision{}, err
			}
		}
		return Decision{
			Action:      ActionMarkDuplicate,
			TargetID:    targetID,
			Signal:      SignalFuzzy,
			Score:       score,
			Fingerprint: fingerprint,
		}, nil
	}

	return Decision{
		Action:      ActionUnique,
		Signal:      SignalNone,
		Fingerprint: fingerprint,
	}, nil
}

func (r *Resolver) fuzzyMatch(ctx context.Context, posting Posting) (int64, float64, bool, error) {
	title := textnorm.Normalize(posting.Title)
	company := textnorm.Normalize(posting.Company)
	if title == "" || company == "" {
		return 0, 0, false, nil
	}
	key := title + " " + company

	query := CandidateQuery{Limit: r.opts.CandidateLimit}
	if r.opts.CityScoped {
		query.CityKey = textnorm.Normalize(posting.City)
	}
	candidates, err := r.store.FuzzyCandidates(ctx, query)
	if err != nil {
		return 0, 0, false, fmt.Errorf("load fuzzy candidates: %w", err)
	}

	var (
		bestID    int64
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		// Titles are only compared within one employer.
		if textnorm.Normalize(c.Company) != company {
			continue
		}
		score, err := r.similarity(key, textnorm.MatchKey(c.Title, c.Company))
		if err != nil {
			r.logger.Warn().
				Err(err).
				Int64("candidate_id", c.ID).
				Msg("similarity scoring failed; treating candidate as no match")
			continue
		}
		if score >= r.opts.Threshold && score > bestScore {
			bestID, bestScore, found = c.ID, score, true
		}
	}
	return bestID, bestScore, found, nil
}

// resolveThrough follows duplicate_of_id to the canonical record so no
// duplicate ever points at another duplicate.
func (r *Resolver) resolveThrough(ctx context.Context, p Posting) (int64, error) {
	current := p
	for hop := 0; hop < maxResolveHops; hop++ {
		if current.DuplicateOfID == nil {
			return current.ID, nil
		}
		next, found, err := r.store.Get(ctx, *current.DuplicateOfID)
		if err != nil {
			return 0, fmt.Errorf("resolve canonical of posting_id=%d: %w", current.ID, err)
		}
		if !found {
			return 0, fmt.Errorf("posting_id=%d points at missing posting_id=%d", current.ID, *current.DuplicateOfID)
		}
		current = next
	}
	return 0, fmt.Errorf("duplicate chain from posting_id=%d exceeds %d hops", p.ID, maxResolveHops)
}
