package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/jobcatalog/internal/taxonomy"
)

const (
	defaultStatusLimit = 20
	maxStatusLimit     = 100
)

type siteStatus struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Status     string     `json:"status"`
	JobsFound  int        `json:"jobs_found"`
	JobsNew    int        `json:"jobs_new"`
	DurationMS int64      `json:"duration_ms"`
	Error      *string    `json:"error,omitempty"`
	LastRun    *time.Time `json:"last_run,omitempty"`
}

func (s *Server) handleScrapeStatus(c echo.Context) error {
	limit, err := parseInt(c.QueryParam("limit"), defaultStatusLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	if limit <= 0 {
		limit = defaultStatusLimit
	}
	if limit > maxStatusLimit {
		limit = maxStatusLimit
	}

	runs, err := s.deps.Runs.ListRecentRuns(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list scrape logs failed")
		return internalError(c, "Failed to load scrape status")
	}
	return success(c, map[string]any{
		"items": runs,
		"limit": limit,
	})
}

func (s *Server) handleScrapeSites(c echo.Context) error {
	last, err := s.deps.Runs.LastRunPerSource(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load last runs failed")
		return internalError(c, "Failed to load sites")
	}

	sources := taxonomy.Sources()
	items := make([]siteStatus, 0, len(sources))
	for _, src := range sources {
		item := siteStatus{ID: src.ID, Name: src.Name, Color: src.Color, Status: "never"}
		if run, ok := last[src.ID]; ok {
			createdAt := run.CreatedAt
			item.Status = run.Status
			item.JobsFound = run.JobsFound
			item.JobsNew = run.JobsNew
			item.DurationMS = run.DurationMS
			item.Error = run.Error
			item.LastRun = &createdAt
		}
		items = append(items, item)
	}
	return success(c, map[string]any{"items": items})
}

// handleScrapeTrigger starts a cycle in the background and returns at once.
func (s *Server) handleScrapeTrigger(c echo.Context) error {
	if s.deps.Cycle == nil {
		return failUnavailable(c, "Ingest cycle is not configured")
	}
	site, ok := parseSite(c.QueryParam("site"))
	if !ok {
		return failValidation(c, map[string]string{"site": "unknown source site"})
	}

	go func() {
		if _, err := s.deps.Cycle.Run(s.baseCtx, site); err != nil {
			s.logger.Warn().Err(err).Str("site", site).Msg("triggered cycle did not complete")
		}
	}()

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"started": true,
		"site":    site,
	})
}

func (s *Server) handleSweep(c echo.Context) error {
	if s.deps.Sweeper == nil {
		return failUnavailable(c, "Sweeper is not configured")
	}
	site, ok := parseSite(c.QueryParam("site"))
	if !ok {
		return failValidation(c, map[string]string{"site": "unknown source site"})
	}
	hours, err := parseInt(c.QueryParam("hours"), s.opts.StalenessHours)
	if err != nil || hours < 1 {
		return failValidation(c, map[string]string{"hours": "must be a positive integer"})
	}

	sources := taxonomy.SourceIDs()
	if site != "" {
		sources = []string{site}
	}

	ctx := c.Request().Context()
	deactivated := make(map[string]int64, len(sources))
	var total int64
	for _, source := range sources {
		n, err := s.deps.Sweeper.Sweep(ctx, source, hours)
		if err != nil {
			s.logger.Error().Err(err).Str("source", source).Msg("sweep failed")
			return internalError(c, "Sweep failed")
		}
		deactivated[source] = n
		total += n
	}
	return success(c, map[string]any{
		"hours":       hours,
		"deactivated": deactivated,
		"total":       total,
	})
}

// parseSite accepts an empty value (all sources) or a registered source id.
func parseSite(raw string) (string, bool) {
	site := strings.ToLower(strings.TrimSpace(raw))
	if site == "" {
		return "", true
	}
	src, ok := taxonomy.LookupSource(site)
	if !ok {
		return "", false
	}
	return src.ID, true
}
