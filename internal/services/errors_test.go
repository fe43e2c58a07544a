package services_test

import (
	"errors"
	"strings"
	"testing"

	"snag/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrDownload, "staging", "run yt-dlp", "download failed", base)

	if !errors.Is(err, services.ErrDownload) {
		t.Fatal("expected wrapped error to match ErrDownload")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to retain the cause")
	}
	for _, want := range []string{"staging", "run yt-dlp", "download failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "parse", "", "descriptor missing url", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected ErrValidation marker")
	}
}

func TestFailsJobClassification(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"preview", services.Wrap(services.ErrPreview, "preview", "render gif", "too short", nil), false},
		{"notification", services.Wrap(services.ErrNotification, "notify", "post webhook", "503", nil), false},
		{"download", services.Wrap(services.ErrDownload, "staging", "run yt-dlp", "exit 1", nil), true},
		{"placement", services.Wrap(services.ErrPlacement, "placing", "move", "permission denied", nil), true},
		{"tool", services.Wrap(services.ErrToolNotFound, "staging", "resolve yt-dlp", "not on PATH", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "parse", "", "missing url", nil), true},
	}
	for _, tc := range cases {
		if got := services.FailsJob(tc.err); got != tc.fatal {
			t.Errorf("%s: FailsJob = %v, want %v", tc.name, got, tc.fatal)
		}
	}
}

func TestRejectedOnlyForValidation(t *testing.T) {
	if !services.Rejected(services.Wrap(services.ErrValidation, "parse", "", "bad json", nil)) {
		t.Fatal("validation errors should be rejected")
	}
	if services.Rejected(services.Wrap(services.ErrDownload, "staging", "", "exit 1", nil)) {
		t.Fatal("download errors are not rejections")
	}
}
