package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCollectBatchFilesRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "alljobs.jsonl"), `{"title":"a","url":"https://a.example/1"}`)
	mustWriteFile(t, filepath.Join(root, "drushim.json"), `[]`)
	mustWriteFile(t, filepath.Join(root, "notes.txt"), `x`)
	mustWriteFile(t, filepath.Join(root, ".hidden.jsonl"), `{}`)
	mustWriteFile(t, filepath.Join(root, "alljobs.jsonl.done-20260101T000000Z"), `{}`)
	mustWriteFile(t, filepath.Join(root, "nested", "jobmaster.jsonl"), `{}`)

	files, err := collectBatchFiles(root, true)
	if err != nil {
		t.Fatalf("collectBatchFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 batch files, got %d (%v)", len(files), files)
	}
}

func TestCollectBatchFilesNonRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "alljobs.jsonl"), `{}`)
	mustWriteFile(t, filepath.Join(root, "nested", "jobmaster.jsonl"), `{}`)

	files, err := collectBatchFiles(root, false)
	if err != nil {
		t.Fatalf("collectBatchFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 batch file, got %d (%v)", len(files), files)
	}
}

func TestValidateBatchFileCountsRecords(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "alljobs.jsonl")
	mustWriteFile(t, path,
		`{"title":"Backend Developer","url":"https://a.example/1"}`+"\n"+
			`{"title":"","url":"https://a.example/2"}`+"\n"+
			`{"title":"No URL"}`+"\n")

	var result validateResult
	validateBatchFile(path, &result)
	if result.Records != 3 || result.Valid != 1 || result.Invalid != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit code 2 without args, got %d", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected exit code 0 for help, got %d", code)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
