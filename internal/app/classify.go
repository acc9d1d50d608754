package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"horse.fit/jobcatalog/internal/classify"
	"horse.fit/jobcatalog/internal/globaltime"
	"horse.fit/jobcatalog/internal/langdetect"
	"horse.fit/jobcatalog/internal/textnorm"
)

type classifyField struct {
	Name  string
	Value string
}

func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	company := fs.String("company", "", "Company name, used for the fingerprint")
	city := fs.String("city", "", "City, used for the region and fingerprint")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "classify requires text, e.g. jobcatalog classify \"משרה מלאה מפתח בכיר\"")
		return 2
	}

	for _, field := range describeText(text, *company, *city) {
		fmt.Printf("%s=%s\n", field.Name, field.Value)
	}
	return 0
}

func describeText(text, company, city string) []classifyField {
	remote, hybrid := classify.WorkMode(text)
	region := classify.Region(city)
	if region == "" {
		region = classify.Region(text)
	}

	fields := []classifyField{
		{"normalized", textnorm.Normalize(text)},
		{"category", classify.Category(text)},
		{"job_type", classify.JobType(text)},
		{"experience_level", classify.ExperienceLevel(text)},
		{"region", region},
		{"remote", strconv.FormatBool(remote)},
		{"hybrid", strconv.FormatBool(hybrid)},
		{"language", langdetect.Detect(text)},
	}

	salaryMin, salaryMax := classify.ParseSalary(text)
	if salaryMin != nil && salaryMax != nil {
		fields = append(fields, classifyField{"salary", fmt.Sprintf("%d-%d", *salaryMin, *salaryMax)})
	}
	if posted, ok := classify.ParseRelativeDate(text, globaltime.UTC()); ok {
		fields = append(fields, classifyField{"posted_at", posted.Format("2006-01-02T15:04:05Z07:00")})
	}

	fields = append(fields, classifyField{"fingerprint", textnorm.Fingerprint(text, company, city)})
	return fields
}
