package textutil_test

import (
	"strings"
	"testing"

	"snag/internal/textutil"
)

func TestSanitizeSegment(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain title unchanged", "Some Clip", "Some Clip"},
		{"slashes become dashes", "AC/DC: Live", "AC-DC- Live"},
		{"quotes and angles dropped", `"Best" <of> all?`, "Best of all"},
		{"leading dots trimmed", "..hidden", "hidden"},
		{"empty falls back", "   ", "unknown"},
		{"control characters stripped", "a\x00b\tc", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := textutil.SanitizeSegment(tc.input, "unknown")
			if got != tc.want {
				t.Fatalf("SanitizeSegment(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeSegmentDeterministicAcrossNormalForms(t *testing.T) {
	// "é" precomposed vs combining sequence.
	composed := "Café"
	decomposed := "Café"
	if textutil.SanitizeSegment(composed, "x") != textutil.SanitizeSegment(decomposed, "x") {
		t.Fatal("equivalent unicode forms must sanitize identically")
	}
}

func TestSanitizeSegmentCapsLength(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := textutil.SanitizeSegment(long, "x")
	if len(got) > 180 {
		t.Fatalf("len = %d", len(got))
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"YouTube":    "youtube",
		"Some App!":  "some_app",
		"  ":         "unknown",
		"__-__":      "unknown",
		"mixed-Case": "mixed-case",
	}
	for input, want := range cases {
		if got := textutil.SanitizeToken(input); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", input, got, want)
		}
	}
}
