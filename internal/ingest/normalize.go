package ingest

import (
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"

	"horse.fit/jobcatalog/internal/classify"
	"horse.fit/jobcatalog/internal/dedup"
	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/langdetect"
	payloadschema "horse.fit/jobcatalog/schema"
)

// Normalizer turns validated raw postings into dedup.Posting values. It runs
// before the resolver so nothing downstream branches on the source site.
type Normalizer struct {
	now       func() time.Time
	sanitizer *bluemonday.Policy
	stripper  *bluemonday.Policy
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = globaltime.UTC
	}
	return &Normalizer{
		now:       now,
		sanitizer: bluemonday.UGCPolicy(),
		stripper:  bluemonday.StrictPolicy(),
	}
}

func (n *Normalizer) Normalize(source string, raw payloadschema.RawPosting) dedup.Posting {
	now := n.now()

	title := strings.TrimSpace(raw.Title)
	url := strings.TrimSpace(raw.URL)
	city := trimmed(raw.City)
	location := trimmed(raw.Location)
	description := n.cleanDescription(trimmed(raw.Description))
	descriptionHe := n.cleanDescription(trimmed(raw.DescriptionHe))

	region := classify.Region(firstNonEmpty(city, location))
	if region == "" {
		region = trimmed(raw.Region)
	}

	jobType := classify.JobType(trimmed(raw.JobType))
	if jobType == "" {
		jobType = trimmed(raw.JobType)
	}
	experience := classify.ExperienceLevel(trimmed(raw.ExperienceLevel))
	if experience == "" {
		experience = trimmed(raw.ExperienceLevel)
	}

	salary := trimmed(raw.Salary)
	salaryMin, salaryMax := positive(raw.SalaryMin), positive(raw.SalaryMax)
	if salaryMin == nil && salaryMax == nil && salary != "" {
		salaryMin, salaryMax = classify.ParseSalary(salary)
	}

	remote, hybrid := classify.WorkMode(title + " " + description + " " + location)
	if raw.IsRemote != nil && *raw.IsRemote {
		remote = true
	}
	if raw.IsHybrid != nil && *raw.IsHybrid {
		hybrid = true
	}

	var postedAt *time.Time
	if text := trimmed(raw.PostedAt); text != "" {
		if ts, ok := classify.ParseRelativeDate(text, now); ok {
			utc := ts.UTC()
			postedAt = &utc
		}
	}

	sourceURL := trimmed(raw.SourceURL)
	if sourceURL == "" {
		sourceURL = url
	}

	return dedup.Posting{
		Title:           title,
		TitleHe:         trimmed(raw.TitleHe),
		Company:         trimmed(raw.Company),
		CompanyVerified: raw.CompanyVerified != nil && *raw.CompanyVerified,
		Location:        location,
		City:            city,
		Region:          region,
		Description:     description,
		DescriptionHe:   descriptionHe,
		Language:        langdetect.Resolve(trimmed(raw.Language), title+" "+description),
		JobType:         jobType,
		ExperienceLevel: experience,
		Salary:          salary,
		SalaryMin:       salaryMin,
		SalaryMax:       salaryMax,
		Category:        classify.Category(firstNonEmpty(trimmed(raw.Category), title)),
		Skills:          cleanSkills(raw.Skills),
		URL:             url,
		SourceURL:       sourceURL,
		SourceSite:      strings.ToLower(strings.TrimSpace(source)),
		PostedAt:        postedAt,
		IsActive:        true,
		IsRemote:        remote,
		IsHybrid:        hybrid,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}
}

// cleanDescription converts scraped HTML into sanitized Markdown. Plain
// text passes through untouched.
func (n *Normalizer) cleanDescription(text string) string {
	if text == "" || !strings.Contains(text, "<") {
		return text
	}
	safe := n.sanitizer.Sanitize(text)
	markdown, err := htmltomarkdown.ConvertString(safe)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return strings.TrimSpace(n.stripper.Sanitize(text))
	}
	return strings.TrimSpace(markdown)
}

func cleanSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		s := strings.TrimSpace(skill)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
