package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/taxonomy"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	catalogBase = `p.is_active AND p.duplicate_of_id IS NULL AND NOT p.hidden`
)

// Sort keys accepted by ListPostings.
const (
	SortDateDesc    = "date_desc"
	SortDateAsc     = "date_asc"
	SortCompanyAsc  = "company_asc"
	SortCompanyDesc = "company_desc"
	SortSalaryDesc  = "salary_desc"
	SortSalaryAsc   = "salary_asc"
	SortRelevance   = "relevance"
)

// PostingFilter is the catalog query. Zero values mean "no constraint".
type PostingFilter struct {
	Query               string
	Category            string
	City                string
	Region              string
	Remote              bool
	Hybrid              bool
	JobTypes            []string
	ExperienceLevels    []string
	Sources             []string
	DaysAgo             int
	HideUnknownEmployer bool
	Favorites           bool
	SalaryMin           *int
	SalaryMax           *int
	Sort                string
	Page                int
	Limit               int
}

// PostingPage is one page of catalog results.
type PostingPage struct {
	Postings   []dedup.Posting
	Page       int
	Limit      int
	Total      int64
	TotalPages int
	HasMore    bool
}

// Bucket is a (value, count) aggregate.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type CatalogStats struct {
	Total      int64    `json:"total"`
	Recent24h  int64    `json:"recent_24h"`
	BySource   []Bucket `json:"by_source"`
	ByCategory []Bucket `json:"by_category"`
	ByRegion   []Bucket `json:"by_region"`
	ByJobType  []Bucket `json:"by_job_type"`
}

type FilterOptions struct {
	Categories       []string `json:"categories"`
	Cities           []string `json:"cities"`
	Regions          []string `json:"regions"`
	Sources          []string `json:"sources"`
	JobTypes         []string `json:"job_types"`
	ExperienceLevels []string `json:"experience_levels"`
}

// Normalize clamps paging to page >= 1 and 1 <= limit <= MaxPageLimit.
func (f PostingFilter) Normalize() PostingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultPageLimit
	case f.Limit > MaxPageLimit:
		f.Limit = MaxPageLimit
	}
	return f
}

type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}

func buildPostingWhere(f PostingFilter, now time.Time) (string, []any) {
	var a argList
	clauses := []string{catalogBase}

	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := a.add("%" + escapeLike(q) + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(p.title ILIKE %[1]s OR p.title_he ILIKE %[1]s OR p.company ILIKE %[1]s OR p.description ILIKE %[1]s OR p.description_he ILIKE %[1]s)",
			pattern,
		))
	}
	if v := strings.TrimSpace(f.Category); v != "" {
		clauses = append(clauses, "p.category = "+a.add(v))
	}
	if v := strings.TrimSpace(f.City); v != "" {
		clauses = append(clauses, "p.city ILIKE "+a.add("%"+escapeLike(v)+"%"))
	}
	if v := strings.TrimSpace(f.Region); v != "" {
		clauses = append(clauses, "p.region = "+a.add(v))
	}
	if f.Remote {
		clauses = append(clauses, "p.is_remote")
	}
	if f.Hybrid {
		clauses = append(clauses, "p.is_hybrid")
	}
	if list := joinList(f.JobTypes); list != "" {
		clauses = append(clauses, "p.job_type = ANY(string_to_array("+a.add(list)+", ','))")
	}
	if list := joinList(f.ExperienceLevels); list != "" {
		clauses = append(clauses, "p.experience_level = ANY(string_to_array("+a.add(list)+", ','))")
	}
	if list := joinList(f.Sources); list != "" {
		clauses = append(clauses, "p.source_site = ANY(string_to_array("+a.add(list)+", ','))")
	}
	if f.DaysAgo > 0 {
		cutoff := now.Add(-time.Duration(f.DaysAgo) * 24 * time.Hour)
		clauses = append(clauses, "p.posted_at >= "+a.add(cutoff))
	}
	if f.HideUnknownEmployer {
		clauses = append(clauses,
			"p.company IS NOT NULL",
			"p.company <> ''",
			"p.company <> ALL(string_to_array("+a.add(strings.Join(taxonomy.UnknownEmployers, ","))+", ','))",
		)
	}
	if f.Favorites {
		clauses = append(clauses, "p.is_favorite")
	}
	if f.SalaryMin != nil {
		clauses = append(clauses, "p.salary_max >= "+a.add(*f.SalaryMin))
	}
	if f.SalaryMax != nil {
		clauses = append(clauses, "p.salary_min <= "+a.add(*f.SalaryMax))
	}

	return strings.Join(clauses, "\n  AND "), a.args
}

func postingOrderBy(sort string) string {
	switch strings.TrimSpace(sort) {
	case SortDateDesc:
		return "p.posted_at DESC NULLS LAST, p.posting_id DESC"
	case SortDateAsc:
		return "p.posted_at ASC NULLS LAST, p.posting_id ASC"
	case SortCompanyAsc:
		return "p.company ASC NULLS LAST, p.posting_id DESC"
	case SortCompanyDesc:
		return "p.company DESC NULLS LAST, p.posting_id DESC"
	case SortSalaryDesc:
		return "p.salary_max DESC NULLS LAST, p.posting_id DESC"
	case SortSalaryAsc:
		return "p.salary_min ASC NULLS LAST, p.posting_id DESC"
	default:
		return "p.last_seen_at DESC, p.posting_id DESC"
	}
}

// ListPostings returns one page of canonical, active, visible postings.
func (p *Pool) ListPostings(ctx context.Context, filter PostingFilter) (PostingPage, error) {
	f := filter.Normalize()
	where, args := buildPostingWhere(f, globaltime.UTC())

	var total int64
	countQuery := "SELECT COUNT(*)::BIGINT FROM jobs.postings p WHERE " + where
	if err := p.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return PostingPage{}, fmt.Errorf("count postings: %w", err)
	}

	pageArgs := append(append([]any(nil), args...), f.Limit, (f.Page-1)*f.Limit)
	listQuery := fmt.Sprintf(`SELECT%s
FROM jobs.postings p
WHERE %s
ORDER BY %s
LIMIT $%d OFFSET $%d
`, postingColumns, where, postingOrderBy(f.Sort), len(args)+1, len(args)+2)

	rows, err := p.Query(ctx, listQuery, pageArgs...)
	if err != nil {
		return PostingPage{}, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()

	postings := make([]dedup.Posting, 0, f.Limit)
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return PostingPage{}, fmt.Errorf("scan posting row: %w", err)
		}
		postings = append(postings, posting)
	}
	if err := rows.Err(); err != nil {
		return PostingPage{}, fmt.Errorf("iterate posting rows: %w", err)
	}

	return newPostingPage(postings, f.Page, f.Limit, total), nil
}

func newPostingPage(postings []dedup.Posting, page, limit int, total int64) PostingPage {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PostingPage{
		Postings:   postings,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(page*limit) < total,
	}
}

// QueryCatalogStats aggregates the visible catalog.
func (p *Pool) QueryCatalogStats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{}

	const totalsQuery = `
SELECT
	COUNT(*)::BIGINT,
	COUNT(*) FILTER (WHERE p.last_seen_at >= $1)::BIGINT
FROM jobs.postings p
WHERE ` + catalogBase
	since := globaltime.UTC().Add(-24 * time.Hour)
	if err := p.QueryRow(ctx, totalsQuery, since).Scan(&stats.Total, &stats.Recent24h); err != nil {
		return nil, fmt.Errorf("query catalog totals: %w", err)
	}

	groups := []struct {
		column string
		dest   *[]Bucket
	}{
		{column: "source_site", dest: &stats.BySource},
		{column: "category", dest: &stats.ByCategory},
		{column: "region", dest: &stats.ByRegion},
		{column: "job_type", dest: &stats.ByJobType},
	}
	for _, g := range groups {
		buckets, err := p.countBy(ctx, g.column)
		if err != nil {
			return nil, err
		}
		*g.dest = buckets
	}
	return stats, nil
}

func (p *Pool) countBy(ctx context.Context, column string) ([]Bucket, error) {
	q := fmt.Sprintf(`
SELECT p.%[1]s, COUNT(*)::BIGINT AS n
FROM jobs.postings p
WHERE %[2]s AND p.%[1]s IS NOT NULL
GROUP BY p.%[1]s
ORDER BY n DESC, p.%[1]s
`, column, catalogBase)

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count postings by %s: %w", column, err)
	}
	defer rows.Close()

	out := make([]Bucket, 0, 16)
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scan %s bucket: %w", column, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s buckets: %w", column, err)
	}
	return out, nil
}

// QueryFilterOptions returns the distinct values present in the visible
// catalog, sorted.
func (p *Pool) QueryFilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{}
	columns := []struct {
		column string
		dest   *[]string
	}{
		{column: "category", dest: &opts.Categories},
		{column: "city", dest: &opts.Cities},
		{column: "region", dest: &opts.Regions},
		{column: "source_site", dest: &opts.Sources},
		{column: "job_type", dest: &opts.JobTypes},
		{column: "experience_level", dest: &opts.ExperienceLevels},
	}
	for _, c := range columns {
		values, err := p.distinct(ctx, c.column)
		if err != nil {
			return nil, err
		}
		*c.dest = values
	}
	return opts, nil
}

func (p *Pool) distinct(ctx context.Context, column string) ([]string, error) {
	q := fmt.Sprintf(`
SELECT DISTINCT p.%[1]s
FROM jobs.postings p
WHERE %[2]s AND p.%[1]s IS NOT NULL AND p.%[1]s <> ''
ORDER BY 1
`, column, catalogBase)

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query distinct %s: %w", column, err)
	}
	defer rows.Close()

	out := make([]string, 0, 32)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", column, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct %s: %w", column, err)
	}
	return out, nil
}

// ToggleFavorite flips is_favorite and returns the new value. found is
// false when no posting has the uuid.
func (p *Pool) ToggleFavorite(ctx context.Context, postingUUID string) (value bool, found bool, err error) {
	return p.toggleFlag(ctx, "is_favorite", postingUUID)
}

func (p *Pool) ToggleSentCV(ctx context.Context, postingUUID string) (value bool, found bool, err error) {
	return p.toggleFlag(ctx, "sent_cv", postingUUID)
}

func (p *Pool) toggleFlag(ctx context.Context, column, postingUUID string) (bool, bool, error) {
	q := fmt.Sprintf(`
UPDATE jobs.postings
SET %[1]s = NOT %[1]s, updated_at = $2
WHERE posting_uuid = $1::uuid
RETURNING %[1]s
`, column)

	var value bool
	if err := p.QueryRow(ctx, q, strings.TrimSpace(postingUUID), globaltime.UTC()).Scan(&value); err != nil {
		if IsNoRows(err) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("toggle %s: %w", column, err)
	}
	return value, true, nil
}

// HidePosting removes a posting from every catalog query.
func (p *Pool) HidePosting(ctx context.Context, postingUUID string) (bool, error) {
	const q = `
UPDATE jobs.postings
SET hidden = TRUE, updated_at = $2
WHERE posting_uuid = $1::uuid
`
	tag, err := p.Exec(ctx, q, strings.TrimSpace(postingUUID), globaltime.UTC())
	if err != nil {
		return false, fmt.Errorf("hide posting: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SourceSites returns the distinct source_site values that have postings.
func (p *Pool) SourceSites(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT source_site FROM jobs.postings ORDER BY 1`
	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query source sites: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, 32)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan source site: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source sites: %w", err)
	}
	return out, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func joinList(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}
