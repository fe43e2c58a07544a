package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// MoveFile moves src to dst, replacing dst if it exists. Same-filesystem moves
// are a single atomic rename. Cross-device moves copy to a temp file in the
// destination directory and rename it into place, so dst never exposes a
// partially written file.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	tmp := dst + ".tmp-" + uuid.NewString()
	if err := CopyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize cross-device move: %w", err)
	}
	return os.Remove(src)
}

// MoveMerge moves a file or directory into dst, merging directories
// recursively. Existing destination files are replaced; replacements use
// MoveFile so each one is atomic.
func MoveMerge(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("create merge directory: %w", err)
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := MoveMerge(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
		}
		// Leftover non-empty source dirs are harmless; removal is best effort.
		_ = os.Remove(src)
		return nil
	}

	return MoveFile(src, dst)
}
