package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"modindex/internal/failure"
)

// LockPath returns the lock file guarding indexPath.
func LockPath(indexPath string) string {
	return indexPath + ".lock"
}

// Lock takes the exclusive build lock for indexPath without waiting. The
// returned function releases it.
func Lock(indexPath string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	lock := flock.New(LockPath(indexPath))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !ok {
		return nil, failure.Wrap(failure.ErrLocked, "index", LockPath(indexPath), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
