package langdetect

import "testing"

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" EN-us ": "en",
		"he_IL":   "he",
		"ru":      "ru",
		"":        "",
		"  ":      "",
		"e1":      "",
		"-en":     "",
	}
	for in, want := range tests {
		if got := NormalizeCode(in); got != want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	if got := Detect("דרוש מפתח תוכנה בכיר לחברת הייטק מובילה בתל אביב"); got != "he" {
		t.Fatalf("expected he, got %q", got)
	}
	if got := Detect("We are looking for a senior backend engineer to join our growing team"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := Detect("QA"); got != "" {
		t.Fatalf("expected too-short sample to be untagged, got %q", got)
	}
}

func TestResolvePrefersHint(t *testing.T) {
	t.Parallel()

	if got := Resolve("he-IL", "We are looking for a senior backend engineer"); got != "he" {
		t.Fatalf("expected hint to win, got %q", got)
	}
	if got := Resolve("", ""); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
