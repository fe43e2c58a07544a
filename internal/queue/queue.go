package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"snag/internal/config"
)

// Queue exposes the descriptor lifecycle over the configured directory tree.
type Queue struct {
	incoming   string
	processing string
	done       string
	errorDir   string
}

// New builds a Queue over the config's state directories.
func New(cfg *config.Config) *Queue {
	return &Queue{
		incoming:   cfg.IncomingDir(),
		processing: cfg.ProcessingDir(),
		done:       cfg.DoneDir(),
		errorDir:   cfg.ErrorDir(),
	}
}

// IncomingDir returns the directory producers drop descriptors into.
func (q *Queue) IncomingDir() string { return q.incoming }

// ProcessingDir returns the directory holding claimed descriptors.
func (q *Queue) ProcessingDir() string { return q.processing }

// Pending lists descriptor filenames in the incoming directory, oldest first,
// so jobs are processed roughly in drop order.
func (q *Queue) Pending() ([]string, error) {
	return listJobs(q.incoming)
}

// Claimed lists descriptor filenames currently in processing.
func (q *Queue) Claimed() ([]string, error) {
	return listJobs(q.processing)
}

func listJobs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), JobExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // raced with another run
		}
		candidates = append(candidates, candidate{name: entry.Name(), modTime: info.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].name < candidates[j].name
		}
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names, nil
}

// Claim atomically moves a pending descriptor into processing. claimed=false
// with a nil error means another run won the race; that is not a failure.
func (q *Queue) Claim(name string) (string, bool, error) {
	src := filepath.Join(q.incoming, name)
	dst := filepath.Join(q.processing, name)
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("claim %s: %w", name, err)
	}
	return dst, true, nil
}

// Read returns the raw content of a claimed descriptor.
func (q *Queue) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(q.processing, name))
}

// Finish moves a claimed descriptor to its terminal directory. The descriptor
// ends up in exactly one of done/ or error/.
func (q *Queue) Finish(name string, ok bool) (string, error) {
	target := q.done
	if !ok {
		target = q.errorDir
	}
	dst := filepath.Join(target, name)
	if err := os.Rename(filepath.Join(q.processing, name), dst); err != nil {
		return "", fmt.Errorf("finish %s: %w", name, err)
	}
	return dst, nil
}

// WriteDiagnostic stores failure context alongside the descriptor in error/.
// The descriptor itself is never modified.
func (q *Queue) WriteDiagnostic(name, detail string) error {
	path := filepath.Join(q.errorDir, name+".log")
	body := strings.TrimSpace(detail) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write diagnostic for %s: %w", name, err)
	}
	return nil
}

// Enqueue atomically adds a descriptor to incoming: the payload is written to
// a hidden temp file and renamed into place, so a scanner never observes a
// partial descriptor.
func (q *Queue) Enqueue(name string, payload []byte) (string, error) {
	if err := os.MkdirAll(q.incoming, 0o755); err != nil {
		return "", fmt.Errorf("create incoming directory: %w", err)
	}
	final := filepath.Join(q.incoming, name)
	tmp := filepath.Join(q.incoming, fmt.Sprintf(".tmp-%s-%d", name, os.Getpid()))
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish descriptor: %w", err)
	}
	return final, nil
}

// HasURL reports whether any pending or claimed descriptor references url.
// Used by ingest to refuse duplicate drops while a job is still in flight.
func (q *Queue) HasURL(url string) bool {
	url = strings.TrimSpace(url)
	for _, dir := range []string{q.incoming, q.processing} {
		names, err := listJobs(dir)
		if err != nil {
			continue
		}
		for _, name := range names {
			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			var raw map[string]any
			if err := json.Unmarshal(content, &raw); err != nil {
				continue
			}
			if candidate, ok := raw["url"].(string); ok && strings.TrimSpace(candidate) == url {
				return true
			}
		}
	}
	return false
}

// ReapAction selects where Reap moves stale claimed descriptors.
type ReapAction string

const (
	// ReapRequeue returns stale descriptors to incoming for another attempt.
	ReapRequeue ReapAction = "requeue"
	// ReapError retires stale descriptors to the error directory.
	ReapError ReapAction = "error"
)

// Reap moves claimed descriptors older than cutoff out of processing. It is
// operator-invoked maintenance; the engine never calls it. Destination name
// collisions get a reaped-<stamp> suffix instead of clobbering.
func (q *Queue) Reap(cutoff time.Time, action ReapAction) (int, error) {
	switch action {
	case ReapRequeue, ReapError:
	default:
		return 0, fmt.Errorf("invalid reap action %q", action)
	}

	names, err := listJobs(q.processing)
	if err != nil {
		return 0, err
	}

	targetDir := q.incoming
	if action == ReapError {
		targetDir = q.errorDir
	}

	moved := 0
	for _, name := range names {
		src := filepath.Join(q.processing, name)
		info, err := os.Stat(src)
		if err != nil {
			continue // raced with a finishing run
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		dst := filepath.Join(targetDir, name)
		if _, err := os.Stat(dst); err == nil {
			stamp := time.Now().Format("20060102-150405")
			ext := filepath.Ext(name)
			dst = filepath.Join(targetDir, fmt.Sprintf("%s.reaped-%s%s", strings.TrimSuffix(name, ext), stamp, ext))
		}
		if err := os.Rename(src, dst); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return moved, fmt.Errorf("reap %s: %w", name, err)
		}
		moved++
	}
	return moved, nil
}
