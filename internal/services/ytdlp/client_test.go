package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snag/internal/services"
	"snag/internal/services/ytdlp"
	"snag/internal/testsupport"
)

func TestMetadataParsesDump(t *testing.T) {
	runner := testsupport.NewFakeRunner(testsupport.RunnerResponse{
		Result: services.CommandResult{Stdout: `{"id":"abc","title":"Clip","uploader":"Maker","channel":"","webpage_url":"https://example.test/v/abc","duration":93.5,"thumbnail":"https://example.test/t.jpg"}`},
	})
	client, err := ytdlp.New("yt-dlp", ytdlp.WithRunner(runner))
	if err != nil {
		t.Fatal(err)
	}

	meta, err := client.Metadata(context.Background(), "https://example.test/v/abc")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Title != "Clip" || meta.Duration != 93.5 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.BestChannel() != "Maker" {
		t.Fatalf("BestChannel = %q, want uploader fallback", meta.BestChannel())
	}
}

func TestMetadataErrorIncludesDiagnostic(t *testing.T) {
	runner := testsupport.NewFakeRunner(testsupport.RunnerResponse{
		Result: services.CommandResult{Stderr: "ERROR: unsupported url", ExitCode: 1},
		Err:    errors.New("yt-dlp exited with status 1"),
	})
	client, _ := ytdlp.New("yt-dlp", ytdlp.WithRunner(runner))

	_, err := client.Metadata(context.Background(), "https://example.test/bad")
	if err == nil || !strings.Contains(err.Error(), "unsupported url") {
		t.Fatalf("expected diagnostic in error, got %v", err)
	}
}

func TestArchiveKeyLowercasesExtractor(t *testing.T) {
	runner := testsupport.NewFakeRunner(testsupport.RunnerResponse{
		Result: services.CommandResult{Stdout: "Youtube DQw4w9WgXcQ\n"},
	})
	client, _ := ytdlp.New("yt-dlp", ytdlp.WithRunner(runner))

	key, err := client.ArchiveKey(context.Background(), "https://example.test/v/1")
	if err != nil {
		t.Fatal(err)
	}
	if key != "youtube DQw4w9WgXcQ" {
		t.Fatalf("key = %q", key)
	}
}

func TestDownloadUsesPrintedPathAndRenamesThumbnail(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "Clip.mp4")
	runner := testsupport.NewFakeRunner(testsupport.RunnerResponse{
		Result: services.CommandResult{Stdout: media + "\n"},
		Effect: func(testsupport.RunnerCall) error {
			if err := os.WriteFile(media, []byte("video"), 0o644); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "Clip.jpg"), []byte("thumb"), 0o644)
		},
	})
	client, _ := ytdlp.New("yt-dlp", ytdlp.WithRunner(runner), ytdlp.WithArchive(filepath.Join(dir, "archive.txt")))

	got, err := client.Download(context.Background(), "https://example.test/v/1", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got != media {
		t.Fatalf("path = %q, want %q", got, media)
	}
	if _, err := os.Stat(filepath.Join(dir, "Clip-poster.jpg")); err != nil {
		t.Fatal("thumbnail should be renamed to -poster.jpg")
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	joined := strings.Join(calls[0].Args, " ")
	if !strings.Contains(joined, "--download-archive") {
		t.Fatalf("expected archive flag in %q", joined)
	}
}

func TestDownloadFallsBackToDirectoryScan(t *testing.T) {
	dir := t.TempDir()
	runner := testsupport.NewFakeRunner(testsupport.RunnerResponse{
		Result: services.CommandResult{Stdout: ""},
		Effect: func(testsupport.RunnerCall) error {
			if err := os.WriteFile(filepath.Join(dir, "Clip.webm"), []byte("video"), 0o644); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "Clip.jpg"), []byte("thumb"), 0o644)
		},
	})
	client, _ := ytdlp.New("yt-dlp", ytdlp.WithRunner(runner))

	got, err := client.Download(context.Background(), "https://example.test/v/1", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(got) != "Clip.webm" {
		t.Fatalf("path = %q, sidecars must not win the scan", got)
	}
}

func TestDownloadFailureReturnsCapturedOutput(t *testing.T) {
	runner := testsupport.NewFakeRunner(testsupport.RunnerResponse{
		Result: services.CommandResult{Stderr: "ERROR: video unavailable", ExitCode: 1},
		Err:    errors.New("yt-dlp exited with status 1"),
	})
	client, _ := ytdlp.New("yt-dlp", ytdlp.WithRunner(runner))

	_, err := client.Download(context.Background(), "https://example.test/v/1", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "video unavailable") {
		t.Fatalf("expected captured stderr, got %v", err)
	}
}
