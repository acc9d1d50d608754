package app

import "testing"

func TestDescribeTextReportsClassifierOutput(t *testing.T) {
	t.Parallel()

	fields := map[string]string{}
	for _, f := range describeText("משרה מלאה, עבודה מהבית", "", "Haifa") {
		fields[f.Name] = f.Value
	}

	if fields["job_type"] != "FULL_TIME" {
		t.Fatalf("expected FULL_TIME, got %q", fields["job_type"])
	}
	if fields["remote"] != "true" {
		t.Fatalf("expected remote=true, got %q", fields["remote"])
	}
	if fields["region"] == "" {
		t.Fatalf("expected a region for Haifa")
	}
	if len(fields["fingerprint"]) != 32 {
		t.Fatalf("expected md5 fingerprint, got %q", fields["fingerprint"])
	}
	if _, ok := fields["salary"]; ok {
		t.Fatalf("unexpected salary field %q", fields["salary"])
	}
}
