package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/textnorm"
)

// MemoryStore is an in-process Store used for dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*Posting
	byURL  map[string]int64
	events []Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[int64]*Posting),
		byURL: make(map[string]int64),
	}
}

func (s *MemoryStore) FindByURL(_ context.Context, url string) (Posting, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byURL[strings.TrimSpace(url)]
	if !ok {
		return Posting{}, false, nil
	}
	return clonePosting(*s.byID[id]), true, nil
}

func (s *MemoryStore) FindCanonicalByFingerprint(_ context.Context, fingerprint string) (Posting, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Posting
	for _, p := range s.byID {
		if p.Fingerprint != fingerprint || !p.IsActive || !p.Canonical() {
			continue
		}
		if best == nil || p.ID < best.ID {
			best = p
		}
	}
	if best == nil {
		return Posting{}, false, nil
	}
	return clonePosting(*best), true, nil
}

func (s *MemoryStore) FuzzyCandidates(_ context.Context, query CandidateQuery) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*Posting, 0)
	for _, p := range s.byID {
		if !p.IsActive || !p.Canonical() || p.Company == "" {
			continue
		}
		if query.CityKey != "" && textnorm.Normalize(p.City) != query.CityKey {
			continue
		}
		matches = append(matches, p)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].LastSeenAt.Equal(matches[j].LastSeenAt) {
			return matches[i].LastSeenAt.After(matches[j].LastSeenAt)
		}
		return matches[i].ID > matches[j].ID
	})
	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	out := make([]Candidate, 0, len(matches))
	for _, p := range matches {
		out = append(out, Candidate{ID: p.ID, Title: p.Title, Company: p.Company, SourceSite: p.SourceSite})
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Posting, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return Posting{}, false, nil
	}
	return clonePosting(*p), true, nil
}

func (s *MemoryStore) Insert(_ context.Context, posting Posting) (InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := strings.TrimSpace(posting.URL)
	if url == "" {
		return InsertResult{}, fmt.Errorf("url must not be empty")
	}
	if id, ok := s.byURL[url]; ok {
		return InsertResult{Status: ConflictOnKey, ID: id}, nil
	}
	if posting.DuplicateOfID != nil {
		target, ok := s.byID[*posting.DuplicateOfID]
		if !ok {
			return InsertResult{}, fmt.Errorf("duplicate_of_id=%d does not exist", *posting.DuplicateOfID)
		}
		if !target.Canonical() {
			return InsertResult{}, fmt.Errorf("duplicate_of_id=%d is itself a duplicate", target.ID)
		}
	}

	s.nextID++
	stored := clonePosting(posting)
	stored.ID = s.nextID
	stored.URL = url
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	now := stored.LastSeenAt
	if now.IsZero() {
		now = globaltime.UTC()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.byID[stored.ID] = &stored
	s.byURL[url] = stored.ID
	return InsertResult{Status: Inserted, ID: stored.ID}, nil
}

func (s *MemoryStore) ApplyMerge(_ context.Context, id int64, patch MergePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("posting_id=%d not found", id)
	}
	merged := patch.Apply(*p)
	merged.UpdatedAt = patch.SeenAt
	*p = merged
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, source string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for _, p := range s.byID {
		if p.SourceSite != source || !p.IsActive || !p.LastSeenAt.Before(cutoff) {
			continue
		}
		p.IsActive = false
		affected++
	}
	return affected, nil
}

func (s *MemoryStore) RecordDecision(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

// Events returns the recorded decisions in order.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// Canonical lists what a catalog query would show: active, canonical,
// not hidden. Ordered by id.
func (s *MemoryStore) Canonical() []Posting {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Posting, 0, len(s.byID))
	for _, p := range s.byID {
		if p.IsActive && p.Canonical() && !p.Hidden {
			out = append(out, clonePosting(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored postings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func clonePosting(p Posting) Posting {
	if p.SalaryMin != nil {
		v := *p.SalaryMin
		p.SalaryMin = &v
	}
	if p.SalaryMax != nil {
		v := *p.SalaryMax
		p.SalaryMax = &v
	}
	if p.DuplicateOfID != nil {
		v := *p.DuplicateOfID
		p.DuplicateOfID = &v
	}
	if p.PostedAt != nil {
		v := *p.PostedAt
		p.PostedAt = &v
	}
	if p.Skills != nil {
		p.Skills = append([]string(nil), p.Skills...)
	}
	return p
}
