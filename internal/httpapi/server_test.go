package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/db"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/scheduler"
	"horse.fit/jobcatalog/internal/taxonomy"
)

type fakeCatalog struct {
	pingErr    error
	lastFilter db.PostingFilter
	page       db.PostingPage
	favorites  map[string]bool
}

func (f *fakeCatalog) Ping(context.Context) error { return f.pingErr }

func (f *fakeCatalog) ListPostings(_ context.Context, filter db.PostingFilter) (db.PostingPage, error) {
	f.lastFilter = filter
	return f.page, nil
}

func (f *fakeCatalog) QueryCatalogStats(context.Context) (*db.CatalogStats, error) {
	return &db.CatalogStats{Total: 3}, nil
}

func (f *fakeCatalog) QueryFilterOptions(context.Context) (*db.FilterOptions, error) {
	return &db.FilterOptions{Categories: []string{"SOFTWARE"}}, nil
}

func (f *fakeCatalog) ToggleFavorite(_ context.Context, postingUUID string) (bool, bool, error) {
	current, ok := f.favorites[postingUUID]
	if !ok {
		return false, false, nil
	}
	f.favorites[postingUUID] = !current
	return !current, true, nil
}

func (f *fakeCatalog) ToggleSentCV(context.Context, string) (bool, bool, error) {
	return false, false, nil
}

func (f *fakeCatalog) HidePosting(_ context.Context, postingUUID string) (bool, error) {
	_, ok := f.favorites[postingUUID]
	return ok, nil
}

type fakeRuns struct {
	last map[string]db.ScrapeLogEntry
}

func (f *fakeRuns) ListRecentRuns(_ context.Context, limit int) ([]db.ScrapeLogEntry, error) {
	return make([]db.ScrapeLogEntry, 0, limit), nil
}

func (f *fakeRuns) LastRunPerSource(context.Context) (map[string]db.ScrapeLogEntry, error) {
	return f.last, nil
}

type fakeCycle struct {
	calls chan string
}

func (f *fakeCycle) Run(_ context.Context, only string) (scheduler.CycleReport, error) {
	f.calls <- only
	return scheduler.CycleReport{}, nil
}

type fakeSweeper struct {
	mu    sync.Mutex
	hours map[string]int
}

func (f *fakeSweeper) Sweep(_ context.Context, source string, hours int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hours[source] = hours
	if source == "alljobs" {
		return 2, nil
	}
	return 0, nil
}

type fakeLookup struct{}

func (fakeLookup) GetByUUID(context.Context, string) (dedup.Posting, bool, error) {
	return dedup.Posting{}, false, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(deps Deps) http.Handler {
	if deps.Catalog == nil {
		deps.Catalog = &fakeCatalog{}
	}
	if deps.Postings == nil {
		deps.Postings = fakeLookup{}
	}
	if deps.Runs == nil {
		deps.Runs = &fakeRuns{}
	}
	return NewServer(deps, zerolog.Nop(), Options{StalenessHours: 72}).Handler()
}

func do(t *testing.T, h http.Handler, method, target string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, target, err, rec.Body.String())
	}
	return rec.Code, env
}

func TestMetaListsTaxonomy(t *testing.T) {
	t.Parallel()

	code, env := do(t, newTestServer(Deps{}), http.MethodGet, "/api/v1/jobs/meta")
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("unexpected response %d %+v", code, env)
	}

	var data struct {
		Categories  []metaEntry  `json:"categories"`
		Regions     []metaEntry  `json:"regions"`
		SourceSites []sourceSite `json:"source_sites"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if len(data.Categories) != len(taxonomy.Categories) || data.Categories[0].Key != "SOFTWARE" {
		t.Fatalf("unexpected categories %+v", data.Categories)
	}
	if data.Categories[0].He == "" || data.Categories[0].En == "" {
		t.Fatalf("expected bilingual labels, got %+v", data.Categories[0])
	}
	if len(data.SourceSites) != len(taxonomy.Sources()) {
		t.Fatalf("expected %d source sites, got %d", len(taxonomy.Sources()), len(data.SourceSites))
	}
}

func TestHealthReportsDatabaseOutage(t *testing.T) {
	t.Parallel()

	h := newTestServer(Deps{Catalog: &fakeCatalog{pingErr: errors.New("connection refused")}})
	code, env := do(t, h, http.MethodGet, "/api/v1/health")
	if code != http.StatusServiceUnavailable || env.Status != "fail" {
		t.Fatalf("unexpected response %d %+v", code, env)
	}

	code, env = do(t, newTestServer(Deps{}), http.MethodGet, "/api/v1/health")
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("unexpected healthy response %d %+v", code, env)
	}
}

func TestListJobsParsesFilter(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{page: db.PostingPage{
		Postings: []dedup.Posting{{UUID: "u-1", Title: "Go Developer", URL: "https://a.example/1", SourceSite: "alljobs"}},
		Page:     1, Limit: 100, Total: 1, TotalPages: 1,
	}}
	h := newTestServer(Deps{Catalog: catalog})

	code, env := do(t, h, http.MethodGet,
		"/api/v1/jobs?q=go&job_type=FULL_TIME,%20PART_TIME&remote=true&page=0&limit=500&salary_min=1000&sort=DATE_DESC&source=AllJobs")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d %+v", code, env)
	}

	f := catalog.lastFilter
	if f.Query != "go" || !f.Remote || f.Hybrid {
		t.Fatalf("unexpected filter %+v", f)
	}
	if f.Page != 1 || f.Limit != db.MaxPageLimit {
		t.Fatalf("expected clamped paging, got page=%d limit=%d", f.Page, f.Limit)
	}
	if len(f.JobTypes) != 2 || f.JobTypes[1] != "PART_TIME" {
		t.Fatalf("unexpected job types %v", f.JobTypes)
	}
	if len(f.Sources) != 1 || f.Sources[0] != "alljobs" {
		t.Fatalf("unexpected sources %v", f.Sources)
	}
	if f.SalaryMin == nil || *f.SalaryMin != 1000 || f.SalaryMax != nil {
		t.Fatalf("unexpected salary bounds %v %v", f.SalaryMin, f.SalaryMax)
	}
	if f.Sort != db.SortDateDesc {
		t.Fatalf("unexpected sort %q", f.Sort)
	}

	var data struct {
		Items      []jobItem      `json:"items"`
		Pagination map[string]any `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(data.Items) != 1 || data.Items[0].UUID != "u-1" || data.Items[0].Skills == nil {
		t.Fatalf("unexpected items %+v", data.Items)
	}
	if data.Pagination["has_more"] != false {
		t.Fatalf("unexpected pagination %v", data.Pagination)
	}
}

func TestListJobsRejectsMalformedNumbers(t *testing.T) {
	t.Parallel()

	code, env := do(t, newTestServer(Deps{}), http.MethodGet, "/api/v1/jobs?days_ago=week&salary_max=-5")
	if code != http.StatusBadRequest || env.Status != "fail" {
		t.Fatalf("unexpected response %d %+v", code, env)
	}
	var data struct {
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode validation errors: %v", err)
	}
	if data.ValidationErrors["days_ago"] == "" || data.ValidationErrors["salary_max"] == "" {
		t.Fatalf("unexpected validation errors %v", data.ValidationErrors)
	}
}

func TestToggleFavorite(t *testing.T) {
	t.Parallel()

	const known = "0b6b1c2e-8a3f-4f7e-9d2a-1f2e3d4c5b6a"
	catalog := &fakeCatalog{favorites: map[string]bool{known: false}}
	h := newTestServer(Deps{Catalog: catalog})

	code, env := do(t, h, http.MethodPost, "/api/v1/jobs/"+known+"/favorite")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d %+v", code, env)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	if data["is_favorite"] != true || data["uuid"] != known {
		t.Fatalf("unexpected toggle response %v", data)
	}

	code, _ = do(t, h, http.MethodPost, "/api/v1/jobs/7d9f0c1e-0000-4000-8000-000000000000/favorite")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown uuid, got %d", code)
	}
	code, _ = do(t, h, http.MethodPost, "/api/v1/jobs/not-a-uuid/hide")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed uuid, got %d", code)
	}
}

func TestScrapeSitesMarksNeverRun(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{last: map[string]db.ScrapeLogEntry{
		"alljobs": {Site: "alljobs", Status: "success", JobsFound: 12, JobsNew: 4, CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
	}}
	code, env := do(t, newTestServer(Deps{Runs: runs}), http.MethodGet, "/api/v1/scrape/sites")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	var data struct {
		Items []siteStatus `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode sites: %v", err)
	}
	byID := map[string]siteStatus{}
	for _, item := range data.Items {
		byID[item.ID] = item
	}
	if got := byID["alljobs"]; got.Status != "success" || got.JobsNew != 4 || got.LastRun == nil {
		t.Fatalf("unexpected alljobs status %+v", got)
	}
	if got := byID["drushim"]; got.Status != "never" || got.LastRun != nil {
		t.Fatalf("unexpected drushim status %+v", got)
	}
}

func TestScrapeTrigger(t *testing.T) {
	t.Parallel()

	cycle := &fakeCycle{calls: make(chan string, 1)}
	h := newTestServer(Deps{Cycle: cycle})

	code, _ := do(t, h, http.MethodPost, "/api/v1/scrape/trigger?site=nowhere")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown site, got %d", code)
	}

	code, env := do(t, h, http.MethodPost, "/api/v1/scrape/trigger?site=Drushim")
	if code != http.StatusAccepted || env.Status != "success" {
		t.Fatalf("unexpected response %d %+v", code, env)
	}
	select {
	case site := <-cycle.calls:
		if site != "drushim" {
			t.Fatalf("expected drushim cycle, got %q", site)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("triggered cycle never ran")
	}

	code, _ = do(t, newTestServer(Deps{}), http.MethodPost, "/api/v1/scrape/trigger")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a cycle, got %d", code)
	}
}

func TestSweepEverySource(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{hours: map[string]int{}}
	h := newTestServer(Deps{Sweeper: sweeper})

	code, env := do(t, h, http.MethodPost, "/api/v1/scrape/sweep")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d %+v", code, env)
	}
	if len(sweeper.hours) != len(taxonomy.SourceIDs()) || sweeper.hours["alljobs"] != 72 {
		t.Fatalf("unexpected sweep calls %v", sweeper.hours)
	}
	var data struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode sweep: %v", err)
	}
	if data.Total != 2 {
		t.Fatalf("expected 2 deactivated, got %d", data.Total)
	}

	code, _ = do(t, h, http.MethodPost, "/api/v1/scrape/sweep?hours=0")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for hours=0, got %d", code)
	}
}
