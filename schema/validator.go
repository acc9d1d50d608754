package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_posting.schema.json
var rawPostingSchemaJSON string

const schemaResource = "raw_posting.schema.json"

// RawPosting is one scraped job record as emitted by a site scraper.
type RawPosting struct {
	Title           string   `json:"title"`
	TitleHe         *string  `json:"title_he,omitempty"`
	URL             string   `json:"url"`
	SourceURL       *string  `json:"source_url,omitempty"`
	Company         *string  `json:"company,omitempty"`
	CompanyVerified *bool    `json:"company_verified,omitempty"`
	Location        *string  `json:"location,omitempty"`
	City            *string  `json:"city,omitempty"`
	Region          *string  `json:"region,omitempty"`
	Description     *string  `json:"description,omitempty"`
	DescriptionHe   *string  `json:"description_he,omitempty"`
	JobType         *string  `json:"job_type,omitempty"`
	ExperienceLevel *string  `json:"experience_level,omitempty"`
	Category        *string  `json:"category,omitempty"`
	Salary          *string  `json:"salary,omitempty"`
	SalaryMin       *int     `json:"salary_min,omitempty"`
	SalaryMax       *int     `json:"salary_max,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	PostedAt        *string  `json:"posted_at,omitempty"`
	IsRemote        *bool    `json:"is_remote,omitempty"`
	IsHybrid        *bool    `json:"is_hybrid,omitempty"`
	Language        *string  `json:"language,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawPosting checks one JSON object against the raw posting schema
// and the semantic rules the schema cannot express.
func ValidateRawPosting(payload json.RawMessage) (*RawPosting, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var posting RawPosting
	if err := json.Unmarshal(bytes.TrimSpace(payload), &posting); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := validateSemantics(&posting); err != nil {
		return nil, err
	}
	return &posting, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource(schemaResource, strings.NewReader(rawPostingSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile(schemaResource)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}

func validateSemantics(p *RawPosting) error {
	if p == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if err := validateURI("url", p.URL); err != nil {
		return err
	}
	if p.SourceURL != nil && strings.TrimSpace(*p.SourceURL) != "" {
		if err := validateURI("source_url", *p.SourceURL); err != nil {
			return err
		}
	}
	if p.SalaryMin != nil && p.SalaryMax != nil && *p.SalaryMin > *p.SalaryMax {
		return fmt.Errorf("salary_min %d exceeds salary_max %d", *p.SalaryMin, *p.SalaryMax)
	}
	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	u, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http(s), got %q", fieldName, u.Scheme)
	}
	return nil
}
