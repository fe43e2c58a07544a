package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"snag/internal/config"
	"snag/internal/engine"
	"snag/internal/history"
	"snag/internal/logging"
	"snag/internal/notifications"
	"snag/internal/placer"
	"snag/internal/queue"
	"snag/internal/services/ffmpeg"
	"snag/internal/services/ytdlp"
	"snag/internal/staging"
	"snag/internal/testsupport"
)

type fakeDownloader struct {
	meta        ytdlp.Metadata
	metaErr     error
	downloadErr error
	mediaName   string
}

func (f *fakeDownloader) Metadata(context.Context, string) (ytdlp.Metadata, error) {
	return f.meta, f.metaErr
}

func (f *fakeDownloader) Download(_ context.Context, _ string, destDir string) (string, error) {
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	media := filepath.Join(destDir, f.mediaName)
	return media, os.WriteFile(media, []byte("video"), 0o644)
}

type fakePreviewer struct {
	renderErr error
}

func (f *fakePreviewer) Duration(context.Context, string) (float64, error) {
	return 120, nil
}

func (f *fakePreviewer) RenderGIF(_ context.Context, _ string, outPath string, _ float64, _ ffmpeg.GIFOptions) (string, error) {
	if f.renderErr != nil {
		return "", f.renderErr
	}
	return outPath, os.WriteFile(outPath, []byte("gif"), 0o644)
}

type notifierCall struct {
	kind    string
	outcome notifications.Outcome
	detail  string
}

type recordingNotifier struct {
	mu      sync.Mutex
	calls   []notifierCall
	sendErr error
}

func (r *recordingNotifier) NotifyPlaced(_ context.Context, outcome notifications.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifierCall{kind: "placed", outcome: outcome})
	return r.sendErr
}

func (r *recordingNotifier) NotifyFailed(_ context.Context, _, _ string, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	r.calls = append(r.calls, notifierCall{kind: "failed", detail: detail})
	return r.sendErr
}

func (r *recordingNotifier) NotifyRejected(_ context.Context, _, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifierCall{kind: "rejected", detail: reason})
	return r.sendErr
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) snapshot() []notifierCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifierCall(nil), r.calls...)
}

type harness struct {
	cfg      *config.Config
	queue    *queue.Queue
	notifier *recordingNotifier
	history  *history.Store
	engine   *engine.Engine
}

func newHarness(t *testing.T, dl staging.Downloader, prev engine.Previewer, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	place, err := placer.New(cfg.Paths.DownloadDir, cfg.Paths.FallbackDir, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	q := queue.New(cfg)
	notifier := &recordingNotifier{}
	deps := engine.Deps{
		Queue:      q,
		Notifier:   notifier,
		History:    store,
		Placer:     place,
		Downloader: func() (staging.Downloader, error) { return dl, nil },
	}
	if prev != nil {
		deps.Previewer = func() (engine.Previewer, error) { return prev, nil }
	}
	eng, err := engine.New(cfg, logging.NewNop(), deps)
	if err != nil {
		t.Fatal(err)
	}
	return &harness{cfg: cfg, queue: q, notifier: notifier, history: store, engine: eng}
}

func (h *harness) enqueue(t *testing.T, name, payload string) {
	t.Helper()
	if _, err := h.queue.Enqueue(name, []byte(payload)); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) terminalFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestRunOnceCompletesJobEndToEnd(t *testing.T) {
	dl := &fakeDownloader{
		meta:      ytdlp.Metadata{Title: "Some Clip", Uploader: "Maker"},
		mediaName: "Some Clip.mp4",
	}
	h := newHarness(t, dl, &fakePreviewer{})
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1","category":"music"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Claimed != 1 || summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	// Descriptor landed in done/, nowhere else.
	if got := h.terminalFiles(t, h.cfg.DoneDir()); len(got) != 1 || got[0] != "job-1.dljob" {
		t.Fatalf("done = %v", got)
	}
	if got := h.terminalFiles(t, h.cfg.ErrorDir()); len(got) != 0 {
		t.Fatalf("error = %v", got)
	}

	// Media placed deterministically under category/channel.
	placed := filepath.Join(h.cfg.Paths.DownloadDir, "music", "Maker", "Some Clip.mp4")
	if _, err := os.Stat(placed); err != nil {
		t.Fatalf("media not placed at %s: %v", placed, err)
	}

	// Scratch removed after success.
	if _, err := os.Stat(filepath.Join(h.cfg.StagingRoot(), "job-1")); !os.IsNotExist(err) {
		t.Fatal("scratch should be discarded after success")
	}

	// Exactly one notification, with the preview attached.
	calls := h.notifier.snapshot()
	if len(calls) != 1 || calls[0].kind != "placed" {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].outcome.PreviewPath == "" {
		t.Fatal("preview should be attached")
	}

	records, err := h.history.Recent(context.Background(), 10)
	if err != nil || len(records) != 1 || records[0].Status != history.StatusCompleted {
		t.Fatalf("history = %+v, err = %v", records, err)
	}
}

func TestRunOnceRejectsInvalidDescriptor(t *testing.T) {
	h := newHarness(t, &fakeDownloader{}, nil)
	h.enqueue(t, "bad.dljob", `{"app":"YouTube"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Rejected != 1 || summary.Completed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	if got := h.terminalFiles(t, h.cfg.ErrorDir()); len(got) != 2 {
		t.Fatalf("error dir should hold descriptor plus diagnostic, got %v", got)
	}
	diag, err := os.ReadFile(filepath.Join(h.cfg.ErrorDir(), "bad.dljob.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(diag) == 0 {
		t.Fatal("diagnostic must not be empty")
	}

	calls := h.notifier.snapshot()
	if len(calls) != 1 || calls[0].kind != "rejected" {
		t.Fatalf("calls = %+v", calls)
	}

	// Validation failures never reach staging.
	if entries, _ := os.ReadDir(h.cfg.StagingRoot()); len(entries) != 0 {
		t.Fatalf("staging should stay empty, got %v", entries)
	}
}

func TestRunOnceUnsupportedAppFailsAsValidation(t *testing.T) {
	h := newHarness(t, &fakeDownloader{}, nil)
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1","app":"Vimeo"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Rejected != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	calls := h.notifier.snapshot()
	if len(calls) != 1 || calls[0].kind != "rejected" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestRunOnceDownloadFailureRetiresJob(t *testing.T) {
	dl := &fakeDownloader{metaErr: errors.New("video unavailable")}
	h := newHarness(t, dl, nil)
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	calls := h.notifier.snapshot()
	if len(calls) != 1 || calls[0].kind != "failed" {
		t.Fatalf("calls = %+v", calls)
	}

	records, _ := h.history.Recent(context.Background(), 10)
	if len(records) != 1 || records[0].Status != history.StatusFailed {
		t.Fatalf("history = %+v", records)
	}
}

func TestRunOncePreviewFailureDoesNotFailJob(t *testing.T) {
	dl := &fakeDownloader{meta: ytdlp.Metadata{Title: "Clip"}, mediaName: "Clip.mp4"}
	h := newHarness(t, dl, &fakePreviewer{renderErr: errors.New("encoder blew up")})
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	calls := h.notifier.snapshot()
	if len(calls) != 1 || calls[0].kind != "placed" {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].outcome.PreviewError == "" {
		t.Fatal("notification should mention the preview failure")
	}
	if calls[0].outcome.PreviewPath != "" {
		t.Fatal("failed preview must not be attached")
	}
}

func TestRunOnceHonorsPerRunLimit(t *testing.T) {
	dl := &fakeDownloader{meta: ytdlp.Metadata{Title: "Clip"}, mediaName: "Clip.mp4"}
	h := newHarness(t, dl, nil, func(cfg *config.Config) { cfg.Queue.MaxPerRun = 2 })
	for _, name := range []string{"a.dljob", "b.dljob", "c.dljob"} {
		h.enqueue(t, name, `{"url":"https://example.test/v/`+name+`"}`)
	}

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Claimed != 2 {
		t.Fatalf("claimed = %d, want limit of 2", summary.Claimed)
	}
	remaining, err := h.queue.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 {
		t.Fatalf("pending = %v", remaining)
	}
}

func TestRunOnceIgnoresForeignFiles(t *testing.T) {
	h := newHarness(t, &fakeDownloader{}, nil)
	if err := os.WriteFile(filepath.Join(h.cfg.IncomingDir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Pending != 0 || summary.Claimed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunOnceFailingNotifierDoesNotChangeTerminalState(t *testing.T) {
	dl := &fakeDownloader{meta: ytdlp.Metadata{Title: "Clip"}, mediaName: "Clip.mp4"}
	h := newHarness(t, dl, nil)
	h.notifier.sendErr = errors.New("webhook down")
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := h.terminalFiles(t, h.cfg.DoneDir()); len(got) != 1 {
		t.Fatalf("done = %v", got)
	}
}

func TestRunOnceHistoryWriteFailureKeepsTerminalState(t *testing.T) {
	dl := &fakeDownloader{meta: ytdlp.Metadata{Title: "Clip"}, mediaName: "Clip.mp4"}
	h := newHarness(t, dl, nil)
	// Every Append from here on fails; the ledger is observational only.
	if err := h.history.Close(); err != nil {
		t.Fatal(err)
	}
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1"}`)

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := h.terminalFiles(t, h.cfg.DoneDir()); len(got) != 1 || got[0] != "job-1.dljob" {
		t.Fatalf("done = %v", got)
	}
}

func TestRunOnceClaimErrorSkipsDescriptor(t *testing.T) {
	dl := &fakeDownloader{meta: ytdlp.Metadata{Title: "Clip"}, mediaName: "Clip.mp4"}
	h := newHarness(t, dl, nil)
	h.enqueue(t, "a.dljob", `{"url":"https://example.test/v/1"}`)
	h.enqueue(t, "b.dljob", `{"url":"https://example.test/v/2"}`)

	// A non-empty directory squatting on the claim destination makes the
	// rename fail with something other than ENOENT.
	squatter := filepath.Join(h.cfg.ProcessingDir(), "a.dljob")
	if err := os.MkdirAll(squatter, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(squatter, "occupant"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := h.engine.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("a single claim failure must not abort the scan: %v", err)
	}
	if summary.Claimed != 1 || summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := h.terminalFiles(t, h.cfg.DoneDir()); len(got) != 1 || got[0] != "b.dljob" {
		t.Fatalf("done = %v", got)
	}
	// The unclaimable descriptor stays in incoming for the operator.
	if _, err := os.Stat(filepath.Join(h.cfg.IncomingDir(), "a.dljob")); err != nil {
		t.Fatal("unclaimable descriptor should remain pending")
	}
}

func TestRunOncePreviewDisabledSkipsRender(t *testing.T) {
	dl := &fakeDownloader{meta: ytdlp.Metadata{Title: "Clip"}, mediaName: "Clip.mp4"}
	prev := &fakePreviewer{}
	h := newHarness(t, dl, prev, testsupport.WithPreviewDisabled())
	h.enqueue(t, "job-1.dljob", `{"url":"https://example.test/v/1"}`)

	if _, err := h.engine.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	calls := h.notifier.snapshot()
	if len(calls) != 1 || calls[0].outcome.PreviewPath != "" || calls[0].outcome.PreviewError != "" {
		t.Fatalf("calls = %+v", calls)
	}
}
