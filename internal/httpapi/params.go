package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/jobcatalog/internal/db"
)

func parseInt(raw string, defaultValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	return value, nil
}

func parseOptionalNonNegative(raw string) (*int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, fmt.Errorf("must be an integer")
	}
	if value < 0 {
		return nil, fmt.Errorf("must be >= 0")
	}
	return &value, nil
}

func parseFlag(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePostingFilter reads the catalog query string. Paging is clamped
// rather than rejected; malformed numbers are validation errors.
func parsePostingFilter(c echo.Context) (db.PostingFilter, map[string]string) {
	fieldErrors := map[string]string{}

	filter := db.PostingFilter{
		Query:               strings.TrimSpace(c.QueryParam("q")),
		Category:            strings.TrimSpace(c.QueryParam("category")),
		City:                strings.TrimSpace(c.QueryParam("city")),
		Region:              strings.TrimSpace(c.QueryParam("region")),
		Remote:              parseFlag(c.QueryParam("remote")),
		Hybrid:              parseFlag(c.QueryParam("hybrid")),
		JobTypes:            splitList(c.QueryParam("job_type")),
		ExperienceLevels:    splitList(c.QueryParam("experience_level")),
		Sources:             splitList(strings.ToLower(c.QueryParam("source"))),
		HideUnknownEmployer: parseFlag(c.QueryParam("hide_unknown_employer")),
		Favorites:           parseFlag(c.QueryParam("favorites")),
		Sort:                strings.TrimSpace(strings.ToLower(c.QueryParam("sort"))),
	}

	var err error
	if filter.DaysAgo, err = parseInt(c.QueryParam("days_ago"), 0); err != nil {
		fieldErrors["days_ago"] = err.Error()
	}
	if filter.Page, err = parseInt(c.QueryParam("page"), 1); err != nil {
		fieldErrors["page"] = err.Error()
	}
	if filter.Limit, err = parseInt(c.QueryParam("limit"), db.DefaultPageLimit); err != nil {
		fieldErrors["limit"] = err.Error()
	}
	if filter.SalaryMin, err = parseOptionalNonNegative(c.QueryParam("salary_min")); err != nil {
		fieldErrors["salary_min"] = err.Error()
	}
	if filter.SalaryMax, err = parseOptionalNonNegative(c.QueryParam("salary_max")); err != nil {
		fieldErrors["salary_max"] = err.Error()
	}

	if len(fieldErrors) > 0 {
		return db.PostingFilter{}, fieldErrors
	}
	return filter.Normalize(), nil
}
