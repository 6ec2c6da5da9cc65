package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// sqliteSidecars are the files SQLite may keep next to a database.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// TempSibling returns a unique path next to path, tagged with tag. Keeping the
// temporary file in the destination directory makes the final rename atomic.
func TempSibling(path, tag string) string {
	return fmt.Sprintf("%s.%s-%s", path, tag, uuid.NewString())
}

// ReplaceFile atomically moves src over dst.
func ReplaceFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}

// ReplaceDatabase moves a closed SQLite database over dst and removes stale
// sidecar files left by the previous database at dst.
func ReplaceDatabase(src, dst string) error {
	for _, suffix := range sqliteSidecars {
		if err := removeIfExists(dst + suffix); err != nil {
			return err
		}
	}
	return ReplaceFile(src, dst)
}

// RemoveDatabase deletes a SQLite database and its sidecar files. Missing
// files are ignored.
func RemoveDatabase(path string) error {
	var errs []error
	for _, candidate := range append([]string{path}, sidecarPaths(path)...) {
		if err := removeIfExists(candidate); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteAtomic writes a file by streaming into a temporary sibling and
// renaming it into place once write succeeds.
func WriteAtomic(path string, mode os.FileMode, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := TempSibling(path, "partial")
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(tmp)
	}

	if err := write(out); err != nil {
		cleanup()
		return err
	}
	if err := out.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ReplaceFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func sidecarPaths(path string) []string {
	out := make([]string, len(sqliteSidecars))
	for i, suffix := range sqliteSidecars {
		out[i] = path + suffix
	}
	return out
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
