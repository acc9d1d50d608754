package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/taxonomy"
)

type jobItem struct {
	UUID            string     `json:"uuid"`
	Title           string     `json:"title"`
	TitleHe         string     `json:"title_he,omitempty"`
	Company         string     `json:"company,omitempty"`
	CompanyVerified bool       `json:"company_verified"`
	Location        string     `json:"location,omitempty"`
	City            string     `json:"city,omitempty"`
	Region          string     `json:"region,omitempty"`
	Description     string     `json:"description,omitempty"`
	DescriptionHe   string     `json:"description_he,omitempty"`
	Language        string     `json:"language,omitempty"`
	JobType         string     `json:"job_type,omitempty"`
	ExperienceLevel string     `json:"experience_level,omitempty"`
	Salary          string     `json:"salary,omitempty"`
	SalaryMin       *int       `json:"salary_min,omitempty"`
	SalaryMax       *int       `json:"salary_max,omitempty"`
	Category        string     `json:"category,omitempty"`
	Skills          []string   `json:"skills"`
	URL             string     `json:"url"`
	SourceURL       string     `json:"source_url,omitempty"`
	SourceSite      string     `json:"source_site"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
	IsActive        bool       `json:"is_active"`
	IsRemote        bool       `json:"is_remote"`
	IsHybrid        bool       `json:"is_hybrid"`
	IsDuplicate     bool       `json:"is_duplicate"`
	IsFavorite      bool       `json:"is_favorite"`
	SentCV          bool       `json:"sent_cv"`
	Hidden          bool       `json:"hidden"`
}

func newJobItem(p dedup.Posting) jobItem {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return jobItem{
		UUID:            p.UUID,
		Title:           p.Title,
		TitleHe:         p.TitleHe,
		Company:         p.Company,
		CompanyVerified: p.CompanyVerified,
		Location:        p.Location,
		City:            p.City,
		Region:          p.Region,
		Description:     p.Description,
		DescriptionHe:   p.DescriptionHe,
		Language:        p.Language,
		JobType:         p.JobType,
		ExperienceLevel: p.ExperienceLevel,
		Salary:          p.Salary,
		SalaryMin:       p.SalaryMin,
		SalaryMax:       p.SalaryMax,
		Category:        p.Category,
		Skills:          skills,
		URL:             p.URL,
		SourceURL:       p.SourceURL,
		SourceSite:      p.SourceSite,
		PostedAt:        p.PostedAt,
		FirstSeenAt:     p.FirstSeenAt,
		LastSeenAt:      p.LastSeenAt,
		IsActive:        p.IsActive,
		IsRemote:        p.IsRemote,
		IsHybrid:        p.IsHybrid,
		IsDuplicate:     !p.Canonical(),
		IsFavorite:      p.IsFavorite,
		SentCV:          p.SentCV,
		Hidden:          p.Hidden,
	}
}

type metaEntry struct {
	Key string `json:"key"`
	He  string `json:"he"`
	En  string `json:"en"`
}

type sourceSite struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func metaEntries(entries []taxonomy.Entry) []metaEntry {
	out := make([]metaEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, metaEntry{Key: e.Code, He: e.Label.He, En: e.Label.En})
	}
	return out
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	data := map[string]any{
		"service": "jobcatalog",
		"time":    globaltime.UTC(),
	}
	if s.deps.Catalog != nil {
		if err := s.deps.Catalog.Ping(ctx); err != nil {
			s.logger.Error().Err(err).Msg("health ping failed")
			return fail(c, http.StatusServiceUnavailable, "Database unavailable", data)
		}
	}
	return success(c, data)
}

func (s *Server) handleListJobs(c echo.Context) error {
	filter, fieldErrors := parsePostingFilter(c)
	if fieldErrors != nil {
		return failValidation(c, fieldErrors)
	}

	page, err := s.deps.Catalog.ListPostings(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list postings failed")
		return internalError(c, "Failed to load jobs")
	}

	items := make([]jobItem, 0, len(page.Postings))
	for _, p := range page.Postings {
		items = append(items, newJobItem(p))
	}
	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages,
			"has_more":    page.HasMore,
		},
	})
}

func (s *Server) handleJobStats(c echo.Context) error {
	stats, err := s.deps.Catalog.QueryCatalogStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query catalog stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleFilterOptions(c echo.Context) error {
	opts, err := s.deps.Catalog.QueryFilterOptions(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query filter options failed")
		return internalError(c, "Failed to load filter options")
	}
	return success(c, opts)
}

func (s *Server) handleMeta(c echo.Context) error {
	sources := taxonomy.Sources()
	sites := make([]sourceSite, 0, len(sources))
	for _, src := range sources {
		sites = append(sites, sourceSite{ID: src.ID, Name: src.Name, Color: src.Color})
	}
	return success(c, map[string]any{
		"categories":        metaEntries(taxonomy.Categories),
		"job_types":         metaEntries(taxonomy.JobTypes),
		"experience_levels": metaEntries(taxonomy.ExperienceLevels),
		"regions":           metaEntries(taxonomy.Regions),
		"source_sites":      sites,
	})
}

func (s *Server) handleJobDetail(c echo.Context) error {
	postingUUID, ok := parseUUIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"uuid": "must be a valid UUID"})
	}

	posting, found, err := s.deps.Postings.GetByUUID(c.Request().Context(), postingUUID)
	if err != nil {
		s.logger.Error().Err(err).Str("uuid", postingUUID).Msg("load posting failed")
		return internalError(c, "Failed to load job")
	}
	if !found {
		return failNotFound(c, "Job not found")
	}
	return success(c, newJobItem(posting))
}

func (s *Server) handleToggleFavorite(c echo.Context) error {
	return s.toggle(c, "is_favorite", s.deps.Catalog.ToggleFavorite)
}

func (s *Server) handleToggleSentCV(c echo.Context) error {
	return s.toggle(c, "sent_cv", s.deps.Catalog.ToggleSentCV)
}

func (s *Server) toggle(c echo.Context, field string, fn func(ctx context.Context, postingUUID string) (bool, bool, error)) error {
	postingUUID, ok := parseUUIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"uuid": "must be a valid UUID"})
	}
	value, found, err := fn(c.Request().Context(), postingUUID)
	if err != nil {
		s.logger.Error().Err(err).Str("uuid", postingUUID).Str("field", field).Msg("toggle failed")
		return internalError(c, "Failed to update job")
	}
	if !found {
		return failNotFound(c, "Job not found")
	}
	return success(c, map[string]any{
		"uuid": postingUUID,
		field:  value,
	})
}

func (s *Server) handleHide(c echo.Context) error {
	postingUUID, ok := parseUUIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"uuid": "must be a valid UUID"})
	}
	found, err := s.deps.Catalog.HidePosting(c.Request().Context(), postingUUID)
	if err != nil {
		s.logger.Error().Err(err).Str("uuid", postingUUID).Msg("hide posting failed")
		return internalError(c, "Failed to hide job")
	}
	if !found {
		return failNotFound(c, "Job not found")
	}
	return success(c, map[string]any{
		"uuid":   postingUUID,
		"hidden": true,
	})
}

func parseUUIDParam(c echo.Context) (string, bool) {
	raw := strings.TrimSpace(c.Param("uuid"))
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
