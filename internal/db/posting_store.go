package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/textnorm"
)

const pgUniqueViolation = "23505"

// PostingStore is the Postgres-backed dedup.Store.
type PostingStore struct {
	pool *Pool
}

var _ dedup.Store = (*PostingStore)(nil)

func NewPostingStore(pool *Pool) *PostingStore {
	return &PostingStore{pool: pool}
}

const postingColumns = `
	p.posting_id,
	p.posting_uuid::text,
	p.title,
	p.title_he,
	p.company,
	p.company_verified,
	p.location,
	p.city,
	p.region,
	p.description,
	p.description_he,
	p.language,
	p.job_type,
	p.experience_level,
	p.salary,
	p.salary_min,
	p.salary_max,
	p.category,
	COALESCE(array_to_json(p.skills)::text, '[]'),
	p.url,
	p.source_url,
	p.source_site,
	p.posted_at,
	p.first_seen_at,
	p.last_seen_at,
	p.is_active,
	p.is_remote,
	p.is_hybrid,
	p.duplicate_of_id,
	p.fingerprint,
	p.hidden,
	p.is_favorite,
	p.sent_cv,
	p.created_at,
	p.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPosting(row scanner) (dedup.Posting, error) {
	var p dedup.Posting
	var titleHe, company, location, city, region *string
	var description, descriptionHe, language *string
	var jobType, experienceLevel, salary, category, srcURL *string
	var skillsJSON string
	if err := row.Scan(
		&p.ID,
		&p.UUID,
		&p.Title,
		&titleHe,
		&company,
		&p.CompanyVerified,
		&location,
		&city,
		&region,
		&description,
		&descriptionHe,
		&language,
		&jobType,
		&experienceLevel,
		&salary,
		&p.SalaryMin,
		&p.SalaryMax,
		&category,
		&skillsJSON,
		&p.URL,
		&srcURL,
		&p.SourceSite,
		&p.PostedAt,
		&p.FirstSeenAt,
		&p.LastSeenAt,
		&p.IsActive,
		&p.IsRemote,
		&p.IsHybrid,
		&p.DuplicateOfID,
		&p.Fingerprint,
		&p.Hidden,
		&p.IsFavorite,
		&p.SentCV,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return dedup.Posting{}, err
	}

	p.TitleHe = deref(titleHe)
	p.Company = deref(company)
	p.Location = deref(location)
	p.City = deref(city)
	p.Region = deref(region)
	p.Description = deref(description)
	p.DescriptionHe = deref(descriptionHe)
	p.Language = deref(language)
	p.JobType = deref(jobType)
	p.ExperienceLevel = deref(experienceLevel)
	p.Salary = deref(salary)
	p.Category = deref(category)
	p.SourceURL = deref(srcURL)
	if err := json.Unmarshal([]byte(skillsJSON), &p.Skills); err != nil {
		return dedup.Posting{}, fmt.Errorf("decode skills of posting_id=%d: %w", p.ID, err)
	}
	return p, nil
}

func (s *PostingStore) findOne(ctx context.Context, label, where string, args ...any) (dedup.Posting, bool, error) {
	q := `SELECT` + postingColumns + `
FROM jobs.postings p
WHERE ` + where + `
LIMIT 1
`
	posting, err := scanPosting(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if IsNoRows(err) {
			return dedup.Posting{}, false, nil
		}
		return dedup.Posting{}, false, fmt.Errorf("query posting by %s: %w", label, err)
	}
	return posting, true, nil
}

func (s *PostingStore) FindByURL(ctx context.Context, url string) (dedup.Posting, bool, error) {
	return s.findOne(ctx, "url", "p.url = $1", strings.TrimSpace(url))
}

func (s *PostingStore) FindCanonicalByFingerprint(ctx context.Context, fingerprint string) (dedup.Posting, bool, error) {
	return s.findOne(ctx, "fingerprint", `p.fingerprint = $1
  AND p.is_active
  AND p.duplicate_of_id IS NULL
ORDER BY p.posting_id`, fingerprint)
}

func (s *PostingStore) Get(ctx context.Context, id int64) (dedup.Posting, bool, error) {
	return s.findOne(ctx, "id", "p.posting_id = $1", id)
}

// GetByUUID loads a posting by its public identifier.
func (s *PostingStore) GetByUUID(ctx context.Context, postingUUID string) (dedup.Posting, bool, error) {
	return s.findOne(ctx, "uuid", "p.posting_uuid = $1::uuid", strings.TrimSpace(postingUUID))
}

func (s *PostingStore) FuzzyCandidates(ctx context.Context, query dedup.CandidateQuery) ([]dedup.Candidate, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = dedup.DefaultCandidateLimit
	}

	const q = `
SELECT p.posting_id, p.title, p.company, p.source_site
FROM jobs.postings p
WHERE p.is_active
  AND p.duplicate_of_id IS NULL
  AND p.company IS NOT NULL
  AND p.company <> ''
  AND ($1 = '' OR p.city_key = $1)
ORDER BY p.last_seen_at DESC, p.posting_id DESC
LIMIT $2
`
	rows, err := s.pool.Query(ctx, q, query.CityKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query fuzzy candidates: %w", err)
	}
	defer rows.Close()

	out := make([]dedup.Candidate, 0, 64)
	for rows.Next() {
		var c dedup.Candidate
		if err := rows.Scan(&c.ID, &c.Title, &c.Company, &c.SourceSite); err != nil {
			return nil, fmt.Errorf("scan fuzzy candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fuzzy candidates: %w", err)
	}
	return out, nil
}

func (s *PostingStore) Insert(ctx context.Context, posting dedup.Posting) (dedup.InsertResult, error) {
	url := strings.TrimSpace(posting.URL)
	if url == "" {
		return dedup.InsertResult{}, fmt.Errorf("url must not be empty")
	}
	skills, err := json.Marshal(nonNilSkills(posting.Skills))
	if err != nil {
		return dedup.InsertResult{}, fmt.Errorf("encode skills: %w", err)
	}

	now := globaltime.UTC()
	firstSeen := posting.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = now
	}
	lastSeen := posting.LastSeenAt
	if lastSeen.IsZero() {
		lastSeen = now
	}

	const q = `
INSERT INTO jobs.postings (
	title,
	title_he,
	company,
	company_verified,
	location,
	city,
	region,
	description,
	description_he,
	language,
	job_type,
	experience_level,
	salary,
	salary_min,
	salary_max,
	category,
	skills,
	url,
	source_url,
	source_site,
	posted_at,
	first_seen_at,
	last_seen_at,
	is_active,
	is_remote,
	is_hybrid,
	duplicate_of_id,
	fingerprint,
	city_key,
	created_at,
	updated_at
)
VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	ARRAY(SELECT jsonb_array_elements_text($17::jsonb)),
	$18, $19, $20, $21, $22, $23, TRUE, $24, $25, $26, $27, $28, $29, $29
)
ON CONFLICT (url) DO NOTHING
RETURNING posting_id
`
	var id int64
	err = s.pool.QueryRow(
		ctx,
		q,
		posting.Title,
		nullable(posting.TitleHe),
		nullable(posting.Company),
		posting.CompanyVerified,
		nullable(posting.Location),
		nullable(posting.City),
		nullable(posting.Region),
		nullable(posting.Description),
		nullable(posting.DescriptionHe),
		nullable(posting.Language),
		nullable(posting.JobType),
		nullable(posting.ExperienceLevel),
		nullable(posting.Salary),
		posting.SalaryMin,
		posting.SalaryMax,
		nullable(posting.Category),
		string(skills),
		url,
		nullable(posting.SourceURL),
		posting.SourceSite,
		posting.PostedAt,
		firstSeen,
		lastSeen,
		posting.IsRemote,
		posting.IsHybrid,
		posting.DuplicateOfID,
		posting.Fingerprint,
		textnorm.Normalize(posting.City),
		now,
	).Scan(&id)
	if err == nil {
		return dedup.InsertResult{Status: dedup.Inserted, ID: id}, nil
	}
	if !IsNoRows(err) && !isUniqueViolation(err) {
		return dedup.InsertResult{}, fmt.Errorf("insert posting: %w", err)
	}

	existing, found, lookupErr := s.FindByURL(ctx, url)
	if lookupErr != nil {
		return dedup.InsertResult{}, lookupErr
	}
	if !found {
		return dedup.InsertResult{}, fmt.Errorf("insert posting url=%q conflicted but no row holds it: %w", url, err)
	}
	return dedup.InsertResult{Status: dedup.ConflictOnKey, ID: existing.ID}, nil
}

// ApplyMerge fills only columns that are still empty in the row, so a
// concurrent fill is never overwritten.
func (s *PostingStore) ApplyMerge(ctx context.Context, id int64, patch dedup.MergePatch) error {
	seenAt := patch.SeenAt
	if seenAt.IsZero() {
		seenAt = globaltime.UTC()
	}

	const q = `
UPDATE jobs.postings
SET
	company = COALESCE(NULLIF(company, ''), $2, company),
	salary = COALESCE(NULLIF(salary, ''), $3, salary),
	salary_min = COALESCE(NULLIF(salary_min, 0), $4, salary_min),
	salary_max = COALESCE(NULLIF(salary_max, 0), $5, salary_max),
	description = COALESCE(NULLIF(description, ''), $6, description),
	category = COALESCE(NULLIF(category, ''), $7, category),
	experience_level = COALESCE(NULLIF(experience_level, ''), $8, experience_level),
	job_type = COALESCE(NULLIF(job_type, ''), $9, job_type),
	last_seen_at = GREATEST(last_seen_at, $10),
	is_active = TRUE,
	updated_at = $10
WHERE posting_id = $1
`
	tag, err := s.pool.Exec(
		ctx,
		q,
		id,
		patch.Company,
		patch.Salary,
		patch.SalaryMin,
		patch.SalaryMax,
		patch.Description,
		patch.Category,
		patch.ExperienceLevel,
		patch.JobType,
		seenAt,
	)
	if err != nil {
		return fmt.Errorf("update posting_id=%d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("posting_id=%d not found", id)
	}
	return nil
}

func (s *PostingStore) Sweep(ctx context.Context, source string, cutoff time.Time) (int64, error) {
	const q = `
UPDATE jobs.postings
SET is_active = FALSE, updated_at = $3
WHERE source_site = $1
  AND is_active
  AND last_seen_at < $2
`
	tag, err := s.pool.Exec(ctx, q, source, cutoff.UTC(), globaltime.UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate stale postings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostingStore) RecordDecision(ctx context.Context, event dedup.Event) error {
	const q = `
INSERT INTO jobs.dedup_events (
	posting_id,
	decision,
	target_posting_id,
	signal,
	score,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6)
`
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = globaltime.UTC()
	}
	_, err := s.pool.Exec(
		ctx,
		q,
		event.PostingID,
		string(event.Action),
		event.TargetPostingID,
		string(event.Signal),
		event.Score,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert dedup_event posting_id=%d: %w", event.PostingID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullable(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nonNilSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
