package app

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"horse.fit/jobcatalog/internal/ingest"
	payloadschema "horse.fit/jobcatalog/schema"
)

type validateResult struct {
	Files   int
	Records int
	Valid   int
	Invalid int
}

func runValidate(args []string) int {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	dir := flags.String("dir", "spool", "Directory containing .json/.jsonl posting batches")
	file := flags.String("file", "", "Validate a single batch file instead of --dir")
	recursive := flags.Bool("recursive", false, "Recursively scan subdirectories")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var files []string
	if path := strings.TrimSpace(*file); path != "" {
		files = []string{path}
	} else {
		var err error
		files, err = collectBatchFiles(strings.TrimSpace(*dir), *recursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
			return 1
		}
	}

	result := validateResult{}
	for _, path := range files {
		result.Files++
		validateBatchFile(path, &result)
	}

	fmt.Printf(
		"validate files=%d records=%d valid=%d invalid=%d\n",
		result.Files,
		result.Records,
		result.Valid,
		result.Invalid,
	)

	if result.Records == 0 {
		fmt.Fprintln(os.Stderr, "Validation failed: no posting records found")
		return 1
	}
	if result.Invalid > 0 {
		return 1
	}
	return 0
}

func validateBatchFile(path string, result *validateResult) {
	f, err := os.Open(path)
	if err != nil {
		result.Invalid++
		fmt.Fprintf(os.Stderr, "INVALID %s: open failed: %v\n", path, err)
		return
	}
	defer f.Close()

	records, err := ingest.ReadRecords(f)
	if err != nil {
		result.Invalid++
		fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
		return
	}

	for i, record := range records {
		result.Records++
		if _, err := payloadschema.ValidateRawPosting(record); err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s#%d: %v\n", path, i+1, err)
			continue
		}
		result.Valid++
	}
}

func isBatchFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".jsonl"
}

func collectBatchFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", cleanRoot, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isBatchFile(entry.Name()) {
				files = append(files, filepath.Join(cleanRoot, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if isBatchFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
