package placer_test

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"snag/internal/logging"
	"snag/internal/placer"
	"snag/internal/services"
)

func stage(t *testing.T, bundleDir, name string) string {
	t.Helper()
	path := filepath.Join(bundleDir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFinalDirIsDeterministic(t *testing.T) {
	p, err := placer.New("/library", "", logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	first := p.FinalDir("music", "AC/DC")
	second := p.FinalDir("music", "AC/DC")
	if first != second {
		t.Fatalf("%q != %q", first, second)
	}
	if first != filepath.Join("/library", "music", "AC-DC") {
		t.Fatalf("dir = %q", first)
	}
}

func TestFinalDirFallsBackOnEmptySegments(t *testing.T) {
	p, _ := placer.New("/library", "", nil)
	if got := p.FinalDir("", ""); got != filepath.Join("/library", "unsorted", "unknown") {
		t.Fatalf("dir = %q", got)
	}
}

func TestPlaceMovesMediaAndPoster(t *testing.T) {
	primary := t.TempDir()
	bundle := t.TempDir()
	media := stage(t, bundle, "Clip.mp4")
	poster := stage(t, bundle, "Clip-poster.jpg")
	p, _ := placer.New(primary, "", logging.NewNop())

	placement, err := p.Place("unsorted", "Maker", media, poster)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placement.UsedFallback {
		t.Fatal("primary placement must not report fallback")
	}
	want := filepath.Join(primary, "unsorted", "Maker", "Clip.mp4")
	if placement.MediaPath != want {
		t.Fatalf("media = %q, want %q", placement.MediaPath, want)
	}
	if _, err := os.Stat(placement.MediaPath); err != nil {
		t.Fatal("media missing at destination")
	}
	if _, err := os.Stat(placement.PosterPath); err != nil {
		t.Fatal("poster missing at destination")
	}
	if _, err := os.Stat(media); !os.IsNotExist(err) {
		t.Fatal("staged media should be gone after placement")
	}
}

func TestPlaceUsesFallbackWhenPrimaryUnreachable(t *testing.T) {
	// A regular file where the library root should be makes every primary
	// write fail; the override classifies that failure as connectivity-class.
	rootParent := t.TempDir()
	primary := filepath.Join(rootParent, "library")
	if err := os.WriteFile(primary, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	fallback := t.TempDir()
	media := stage(t, t.TempDir(), "Clip.mp4")
	p, _ := placer.New(primary, fallback, logging.NewNop())
	p.SetConnectivityCheck(func(error) bool { return true })

	placement, err := p.Place("unsorted", "Maker", media, "")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !placement.UsedFallback {
		t.Fatal("placement must report fallback")
	}
	want := filepath.Join(fallback, "unsorted", "Maker", "Clip.mp4")
	if placement.MediaPath != want {
		t.Fatalf("media = %q, want %q", placement.MediaPath, want)
	}
	if _, err := os.Stat(placement.MediaPath); err != nil {
		t.Fatal("media missing at fallback destination")
	}
}

func TestPlaceNonConnectivityFailureDoesNotFallBack(t *testing.T) {
	// A regular file where the library root should be yields ENOTDIR, which
	// is not a connectivity failure.
	rootParent := t.TempDir()
	primary := filepath.Join(rootParent, "library")
	if err := os.WriteFile(primary, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	fallback := t.TempDir()
	media := stage(t, t.TempDir(), "Clip.mp4")
	p, _ := placer.New(primary, fallback, logging.NewNop())

	_, err := p.Place("unsorted", "Maker", media, "")
	if !errors.Is(err, services.ErrPlacement) {
		t.Fatalf("err = %v, want placement marker", err)
	}
	if entries, _ := os.ReadDir(fallback); len(entries) != 0 {
		t.Fatal("fallback must stay untouched for non-connectivity failures")
	}
	if !services.FailsJob(err) {
		t.Fatal("placement failures must fail the job")
	}
}

func TestPlaceWithoutFallbackRootFailsHard(t *testing.T) {
	rootParent := t.TempDir()
	primary := filepath.Join(rootParent, "library")
	if err := os.WriteFile(primary, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	media := stage(t, t.TempDir(), "Clip.mp4")
	p, _ := placer.New(primary, "", logging.NewNop())

	if _, err := p.Place("unsorted", "Maker", media, ""); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(media); err != nil {
		t.Fatal("staged media must survive a failed placement")
	}
}

func TestConnectivityClassification(t *testing.T) {
	stale := &os.PathError{Op: "mkdir", Path: "/mnt/library", Err: syscall.ESTALE}
	denied := &os.PathError{Op: "mkdir", Path: "/mnt/library", Err: syscall.EACCES}
	if !placer.IsConnectivityError(stale) {
		t.Fatal("ESTALE is a connectivity failure")
	}
	if placer.IsConnectivityError(denied) {
		t.Fatal("EACCES must not trigger fallback")
	}
	if placer.IsConnectivityError(errors.New("plain")) {
		t.Fatal("non-errno errors are not connectivity failures")
	}
}
