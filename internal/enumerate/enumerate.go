package enumerate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Entry is one candidate file.
type Entry struct {
	Path    string
	Rel     string
	Size    int64
	ModTime time.Time
}

// Options controls traversal.
type Options struct {
	Recursive      bool
	SkipExtensions []string
	// IndexPath names the index database. The database, its SQLite
	// sidecars, its lock file and its temporary siblings are never returned.
	IndexPath string
}

// Enumerate returns the files under root sorted by relative path. A root that
// names a regular file yields exactly that file. A missing root yields no
// entries and no error.
func Enumerate(root string, opts Options) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}

	skip := newSkipper(opts.SkipExtensions)
	own, err := newIndexFiles(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() || skip.matches(info.Name()) {
			return nil, nil
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		if own.contains(abs) {
			return nil, nil
		}
		return []Entry{newEntry(abs, info.Name(), info)}, nil
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var entries []Entry
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}
		if d.IsDir() {
			if path != absRoot && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if skip.matches(d.Name()) || own.contains(path) {
			return nil
		}
		fileInfo, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// dangling symlink
				return nil
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if !fileInfo.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		entries = append(entries, newEntry(path, rel, fileInfo))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })
	return entries, nil
}

// RelativePath converts a native relative path to the index form.
func RelativePath(rel string) string {
	return norm.NFC.String(filepath.ToSlash(rel))
}

func newEntry(path, rel string, info fs.FileInfo) Entry {
	return Entry{
		Path:    path,
		Rel:     RelativePath(rel),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

type skipper struct {
	suffixes []string
}

func newSkipper(extensions []string) skipper {
	var suffixes []string
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		suffixes = append(suffixes, ext)
	}
	return skipper{suffixes: suffixes}
}

func (s skipper) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// indexFiles matches the files owned by one index database: the database
// itself, "-wal"/"-shm"/"-journal" sidecars and "."-suffixed siblings such as
// the lock file and temporary build stores.
type indexFiles struct {
	path string
}

func newIndexFiles(indexPath string) (indexFiles, error) {
	if strings.TrimSpace(indexPath) == "" {
		return indexFiles{}, nil
	}
	abs, err := filepath.Abs(indexPath)
	if err != nil {
		return indexFiles{}, fmt.Errorf("resolve index path: %w", err)
	}
	return indexFiles{path: abs}, nil
}

func (f indexFiles) contains(path string) bool {
	if f.path == "" {
		return false
	}
	return path == f.path || strings.HasPrefix(path, f.path+"-") || strings.HasPrefix(path, f.path+".")
}
