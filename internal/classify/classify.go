// Package classify maps noisy scraped attribute strings (either language)
// onto the closed vocabularies in taxonomy.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"horse.fit/jobcatalog/internal/taxonomy"
)

// Category classifies a category (or title) string. Unmatched text falls
// back to OTHER; blank text has no category.
func Category(text string) string {
	lower, ok := prepare(text)
	if !ok {
		return ""
	}
	if code := match(categoryRules, taxonomy.Categories, lower); code != "" {
		return code
	}
	return taxonomy.CategoryOther
}

// JobType classifies employment type text; "" when unknown.
func JobType(text string) string {
	lower, ok := prepare(text)
	if !ok {
		return ""
	}
	return match(jobTypeRules, taxonomy.JobTypes, lower)
}

// ExperienceLevel classifies seniority text; "" when unknown.
func ExperienceLevel(text string) string {
	lower, ok := prepare(text)
	if !ok {
		return ""
	}
	return match(experienceRules, taxonomy.ExperienceLevels, lower)
}

// Region resolves a city or location string to a region code; "" when no
// known city is contained in it.
func Region(cityOrLocation string) string {
	lower, ok := prepare(cityOrLocation)
	if !ok {
		return ""
	}
	lower = strings.TrimSpace(lower)
	for _, cr := range taxonomy.CityRegions {
		if strings.Contains(lower, strings.ToLower(cr.City)) {
			return cr.Region
		}
	}
	return ""
}

// WorkMode detects remote and hybrid markers in free text.
func WorkMode(text string) (remote bool, hybrid bool) {
	lower, ok := prepare(text)
	if !ok {
		return false, false
	}
	return containsAny(lower, remoteKeywords), containsAny(lower, hybridKeywords)
}

var (
	salaryStrip = regexp.MustCompile(`[₪,\s]`)
	salaryRange = regexp.MustCompile(`(\d+)\s*[-–]\s*(\d+)`)
	salaryOne   = regexp.MustCompile(`(\d+)`)
)

// ParseSalary extracts a min/max pair from salary text such as
// "15,000 - 25,000 ₪". A single figure yields min == max.
func ParseSalary(text string) (salaryMin *int, salaryMax *int) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	cleaned := salaryStrip.ReplaceAllString(text, "")

	if m := salaryRange.FindStringSubmatch(cleaned); m != nil {
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo == nil && errHi == nil {
			return &lo, &hi
		}
		return nil, nil
	}
	if m := salaryOne.FindStringSubmatch(cleaned); m != nil {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, nil
		}
		lo, hi := v, v
		return &lo, &hi
	}
	return nil, nil
}

var (
	relDays   = regexp.MustCompile(`(\d+)\s*(days?|ימים|יום)`)
	relHours  = regexp.MustCompile(`(\d+)\s*(hours?|שעות|שעה)`)
	relWeeks  = regexp.MustCompile(`(\d+)\s*(weeks?|שבועות|שבוע)`)
	relMonths = regexp.MustCompile(`(\d+)\s*(months?|חודשים|חודש)`)
)

// ParseRelativeDate understands "today", "yesterday", "3 days ago",
// "לפני 5 שעות" and friends relative to now, then any absolute date format
// dateparse recognizes.
func ParseRelativeDate(text string, now time.Time) (time.Time, bool) {
	lower := strings.TrimSpace(strings.ToLower(text))
	if lower == "" {
		return time.Time{}, false
	}

	switch lower {
	case "today", "היום":
		return now, true
	case "yesterday", "אתמול":
		return now.AddDate(0, 0, -1), true
	}

	if n, ok := leadingCount(relDays, lower); ok {
		return now.AddDate(0, 0, -n), true
	}
	if n, ok := leadingCount(relHours, lower); ok {
		return now.Add(-time.Duration(n) * time.Hour), true
	}
	if n, ok := leadingCount(relWeeks, lower); ok {
		return now.AddDate(0, 0, -7*n), true
	}
	if n, ok := leadingCount(relMonths, lower); ok {
		return now.AddDate(0, -n, 0), true
	}

	parsed, err := dateparse.ParseAny(strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func leadingCount(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func prepare(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return strings.ToLower(text), true
}

func match(rules []rule, labels []taxonomy.Entry, lower string) string {
	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			return r.code
		}
	}
	for _, e := range labels {
		if lower == strings.ToLower(e.Label.He) || lower == strings.ToLower(e.Label.En) {
			return e.Code
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
