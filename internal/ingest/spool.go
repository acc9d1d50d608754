package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SpoolFile is a pending batch dropped by a scraper as <source>.jsonl or
// <source>.json.
type SpoolFile struct {
	Source string
	Path   string
}

type Spool struct {
	Dir string
}

// Pending lists unprocessed batch files, sorted by path. A missing spool
// directory is treated as empty.
func (s Spool) Pending() ([]SpoolFile, error) {
	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		return nil, fmt.Errorf("spool directory is empty")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read spool directory %s: %w", dir, err)
	}

	var files []SpoolFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".jsonl" && ext != ".json" {
			continue
		}
		source := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if source == "" {
			continue
		}
		files = append(files, SpoolFile{Source: source, Path: filepath.Join(dir, name)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ForSource returns the pending files of one source.
func (s Spool) ForSource(source string) ([]SpoolFile, error) {
	all, err := s.Pending()
	if err != nil {
		return nil, err
	}
	source = strings.ToLower(strings.TrimSpace(source))
	out := make([]SpoolFile, 0, 1)
	for _, f := range all {
		if f.Source == source {
			out = append(out, f)
		}
	}
	return out, nil
}

// MarkDone renames a processed file so it is not picked up again.
func (s Spool) MarkDone(file SpoolFile, at time.Time) (string, error) {
	target := file.Path + ".done-" + at.UTC().Format("20060102T150405Z")
	if err := os.Rename(file.Path, target); err != nil {
		return "", fmt.Errorf("mark %s done: %w", file.Path, err)
	}
	return target, nil
}
