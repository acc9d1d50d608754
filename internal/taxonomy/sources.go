package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var sourcesYAML []byte

// Source is one scraped job site.
type Source struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Color string `yaml:"color" json:"color"`
}

type sourceFile struct {
	Sources []Source `yaml:"sources"`
}

var (
	sourcesOnce sync.Once
	sources     []Source
	sourcesErr  error
)

// Sources returns the registered source sites in cycle order.
func Sources() []Source {
	sourcesOnce.Do(func() {
		sources, sourcesErr = parseSources(sourcesYAML)
	})
	if sourcesErr != nil {
		panic(fmt.Sprintf("embedded sources.yaml is invalid: %v", sourcesErr))
	}
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

// SourceIDs returns the ids of Sources in order.
func SourceIDs() []string {
	all := Sources()
	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	return ids
}

// LookupSource finds a source by id, case-insensitively.
func LookupSource(id string) (Source, bool) {
	needle := strings.ToLower(strings.TrimSpace(id))
	for _, s := range Sources() {
		if s.ID == needle {
			return s, true
		}
	}
	return Source{}, false
}

func parseSources(raw []byte) ([]Source, error) {
	var file sourceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("no sources declared")
	}

	seen := make(map[string]struct{}, len(file.Sources))
	for i, s := range file.Sources {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("sources[%d]: id is required", i)
		}
		if id != strings.ToLower(id) {
			return nil, fmt.Errorf("sources[%d]: id %q must be lowercase", i, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("sources[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
	}
	return file.Sources, nil
}
