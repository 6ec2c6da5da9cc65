package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "out.bin")

	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello world")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	assertNoTemporaries(t, filepath.Dir(dst))
}

func TestWriteAtomicKeepsOriginalOnFailure(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.bin")
	if err := os.WriteFile(dst, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("original overwritten: %q", got)
	}
	assertNoTemporaries(t, dir)
}

func TestReplaceDatabaseRemovesStaleSidecars(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "index.db")
	src := TempSibling(dst, "building")
	for path, content := range map[string]string{
		dst:          "old",
		dst + "-wal": "old wal",
		dst + "-shm": "old shm",
		src:          "new",
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := ReplaceDatabase(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("unexpected content %q", got)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if ok, _ := Exists(dst + suffix); ok {
			t.Fatalf("expected %s sidecar removed", suffix)
		}
	}
	if ok, _ := Exists(src); ok {
		t.Fatal("expected source to be moved")
	}
}

func TestRemoveDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "x.db")
	for _, path := range []string{db, db + "-wal"} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := RemoveDatabase(db); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
	if err := RemoveDatabase(db); err != nil {
		t.Fatalf("removing missing database should succeed: %v", err)
	}
}

func TestTempSiblingUnique(t *testing.T) {
	a := TempSibling("/data/index.db", "building")
	b := TempSibling("/data/index.db", "building")
	if a == b {
		t.Fatal("expected unique temp names")
	}
	if !strings.HasPrefix(a, "/data/index.db.building-") {
		t.Fatalf("unexpected temp name %q", a)
	}
}

func assertNoTemporaries(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".partial-") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
}
