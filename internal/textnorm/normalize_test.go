package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "case and spaces", in: "  Senior   Backend\tDeveloper \n", want: "senior backend developer"},
		{name: "punctuation becomes space", in: "C++/C# Developer (Remote)", want: "c c developer remote"},
		{name: "underscore kept", in: "data_engineer", want: "data_engineer"},
		{name: "hebrew kept", in: "מפתח/ת תוכנה", want: "מפתח ת תוכנה"},
		{name: "bidi marks removed without space", in: "תל\u200fאביב", want: "תלאביב"},
		{name: "embedding marks removed", in: "\u202bQA\u202c Engineer\u200e", want: "qa engineer"},
		{name: "isolates become spaces", in: "a\u2066b\u2069c", want: "a b c"},
		{name: "override and arabic mark become spaces", in: "qa\u202eeng\u061cineer", want: "qa eng ineer"},
		{name: "zero width joiners become spaces", in: "full\u200dstack\ufeff", want: "full stack"},
		{name: "latin accents replaced", in: "Café Manager", want: "caf manager"},
		{name: "mixed scripts", in: "Full-Stack מפתח, Tel-Aviv!", want: "full stack מפתח tel aviv"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"  QA   Engineer ",
		"מפתח/ת Backend בכיר/ה \u200f(היברידי)",
		"Ünïcödé — “quotes” ‘and’ dashes – here",
		"tabs\tand\nnewlines\r\nmixed\u00a0nbsp",
		"שלום_world_123",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFingerprint_KnownDigest(t *testing.T) {
	t.Parallel()

	if got := Fingerprint("QA Engineer", "Acme", "Tel Aviv"); got != "db0a1f9c893fce1040448e5589b14d6b" {
		t.Fatalf("unexpected fingerprint: %q", got)
	}
	if got := Fingerprint("", "", ""); got != "7d010443693eec253a121e2aa2ba177c" {
		t.Fatalf("unexpected empty fingerprint: %q", got)
	}
	if got := Fingerprint("מפתח תוכנה", "אקמי", "תל אביב"); got != "daf09228f08eae5e8fccdb8dacf036de" {
		t.Fatalf("unexpected hebrew fingerprint: %q", got)
	}
}

func TestFingerprint_InvariantUnderCaseAndWhitespace(t *testing.T) {
	t.Parallel()

	base := Fingerprint("QA Engineer", "Acme", "Tel Aviv")
	variants := [][3]string{
		{"qa engineer", "ACME", "tel aviv"},
		{"  QA    Engineer  ", " Acme\t", "Tel  Aviv\n"},
		{"Qa EnGiNeEr", "aCmE", "TEL AVIV"},
	}
	for _, v := range variants {
		if got := Fingerprint(v[0], v[1], v[2]); got != base {
			t.Fatalf("fingerprint changed for %q: %q != %q", v, got, base)
		}
	}
}

func TestFingerprint_FormatControlsMatchSpaces(t *testing.T) {
	t.Parallel()

	if got, want := Fingerprint("QA\u2066Engineer", "Acme", "Tel\u061cAviv"), Fingerprint("QA Engineer", "Acme", "Tel Aviv"); got != want {
		t.Fatalf("isolate and arabic marks should hash as spaces: %q != %q", got, want)
	}
	if got, want := Fingerprint("QA\u200fEngineer", "Acme", "Tel Aviv"), Fingerprint("QAEngineer", "Acme", "Tel Aviv"); got != want {
		t.Fatalf("rlm should be dropped: %q != %q", got, want)
	}
}

func TestFingerprint_ChangesWithEachField(t *testing.T) {
	t.Parallel()

	base := Fingerprint("QA Engineer", "Acme", "Tel Aviv")
	changed := [][3]string{
		{"QA Lead", "Acme", "Tel Aviv"},
		{"QA Engineer", "Globex", "Tel Aviv"},
		{"QA Engineer", "Acme", "Haifa"},
	}
	for _, v := range changed {
		if got := Fingerprint(v[0], v[1], v[2]); got == base {
			t.Fatalf("fingerprint did not change for %q", v)
		}
	}
	if len(base) != 32 {
		t.Fatalf("unexpected digest length: %d", len(base))
	}
}

func TestMatchKey(t *testing.T) {
	t.Parallel()

	if got := MatchKey("Senior Backend Developer", "ACME Ltd."); got != "senior backend developer acme ltd" {
		t.Fatalf("unexpected match key: %q", got)
	}
	if got := MatchKey("", "Acme"); got != "acme" {
		t.Fatalf("unexpected match key with empty title: %q", got)
	}
}
