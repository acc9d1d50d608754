package db

import (
	"strings"
	"testing"
	"time"
)

var catalogNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuildPostingWhereBaseOnly(t *testing.T) {
	t.Parallel()

	where, args := buildPostingWhere(PostingFilter{}, catalogNow)
	if where != catalogBase {
		t.Fatalf("expected base clause only, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildPostingWhereEscapesQuery(t *testing.T) {
	t.Parallel()

	where, args := buildPostingWhere(PostingFilter{Query: " 50%_off\\ "}, catalogNow)
	if len(args) != 1 {
		t.Fatalf("expected one arg, got %v", args)
	}
	if got := args[0]; got != `%50\%\_off\\%` {
		t.Fatalf("unexpected pattern %q", got)
	}
	if strings.Count(where, "ILIKE $1") != 5 {
		t.Fatalf("expected five ILIKE $1 terms, got %q", where)
	}
}

func TestBuildPostingWhereNumbersPlaceholdersInOrder(t *testing.T) {
	t.Parallel()

	salaryMin, salaryMax := 10000, 20000
	where, args := buildPostingWhere(PostingFilter{
		Category:         "SOFTWARE",
		City:             "Tel Aviv",
		Region:           "CENTER",
		Remote:           true,
		JobTypes:         []string{"FULL_TIME", " ", "PART_TIME"},
		ExperienceLevels: []string{"SENIOR"},
		Sources:          []string{"alljobs"},
		DaysAgo:          7,
		Favorites:        true,
		SalaryMin:        &salaryMin,
		SalaryMax:        &salaryMax,
	}, catalogNow)

	wantClauses := []string{
		"p.category = $1",
		"p.city ILIKE $2",
		"p.region = $3",
		"p.is_remote",
		"p.job_type = ANY(string_to_array($4, ','))",
		"p.experience_level = ANY(string_to_array($5, ','))",
		"p.source_site = ANY(string_to_array($6, ','))",
		"p.posted_at >= $7",
		"p.is_favorite",
		"p.salary_max >= $8",
		"p.salary_min <= $9",
	}
	for _, clause := range wantClauses {
		if !strings.Contains(where, clause) {
			t.Fatalf("missing clause %q in %q", clause, where)
		}
	}
	if strings.Contains(where, "p.is_hybrid") {
		t.Fatalf("unexpected hybrid clause in %q", where)
	}
	if len(args) != 9 {
		t.Fatalf("expected 9 args, got %d", len(args))
	}
	if args[3] != "FULL_TIME,PART_TIME" {
		t.Fatalf("expected blank job types dropped, got %v", args[3])
	}
	if got := args[6].(time.Time); !got.Equal(catalogNow.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", got)
	}
	if args[7] != 10000 || args[8] != 20000 {
		t.Fatalf("unexpected salary args %v %v", args[7], args[8])
	}
}

func TestBuildPostingWhereHidesUnknownEmployers(t *testing.T) {
	t.Parallel()

	where, args := buildPostingWhere(PostingFilter{HideUnknownEmployer: true}, catalogNow)
	if !strings.Contains(where, "p.company IS NOT NULL") || !strings.Contains(where, "<> ALL(string_to_array($1, ','))") {
		t.Fatalf("unexpected employer clause %q", where)
	}
	if len(args) != 1 || args[0] == "" {
		t.Fatalf("expected denylist arg, got %v", args)
	}
}

func TestPostingOrderBy(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		SortDateDesc:    "p.posted_at DESC",
		SortDateAsc:     "p.posted_at ASC",
		SortCompanyAsc:  "p.company ASC",
		SortCompanyDesc: "p.company DESC",
		SortSalaryDesc:  "p.salary_max DESC",
		SortSalaryAsc:   "p.salary_min ASC",
		SortRelevance:   "p.last_seen_at DESC",
		"":              "p.last_seen_at DESC",
		"bogus":         "p.last_seen_at DESC",
	}
	for sort, prefix := range cases {
		if got := postingOrderBy(sort); !strings.HasPrefix(got, prefix) {
			t.Fatalf("sort %q: expected prefix %q, got %q", sort, prefix, got)
		}
	}
}

func TestPostingFilterNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultPageLimit},
		{-3, 500, 1, MaxPageLimit},
		{4, 15, 4, 15},
	}
	for _, tc := range cases {
		got := PostingFilter{Page: tc.page, Limit: tc.limit}.Normalize()
		if got.Page != tc.wantPage || got.Limit != tc.wantLimit {
			t.Fatalf("Normalize(%d,%d) = (%d,%d)", tc.page, tc.limit, got.Page, got.Limit)
		}
	}
}

func TestNewPostingPage(t *testing.T) {
	t.Parallel()

	page := newPostingPage(nil, 2, 20, 41)
	if page.TotalPages != 3 || !page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
	last := newPostingPage(nil, 3, 20, 41)
	if last.HasMore {
		t.Fatalf("last page should not have more: %+v", last)
	}
	empty := newPostingPage(nil, 1, 20, 0)
	if empty.TotalPages != 0 || empty.HasMore {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}
