package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"modindex/internal/digest"
	"modindex/internal/enumerate"
	"modindex/internal/track"
)

// cache holds the records of the previous build keyed by path. A record is
// reused when the file's size and modification time are unchanged; that is a
// heuristic, not proof that the content is the same.
type cache struct {
	records map[string]track.Record
}

// loadCache reads the committed index at path. A missing index, a schema
// mismatch, or a different digest algorithm yields an empty cache.
func loadCache(ctx context.Context, path string, algorithm digest.Algorithm) (*cache, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cache{}, nil
		}
		return nil, fmt.Errorf("stat previous index: %w", err)
	}
	store, err := Open(ctx, path)
	if err != nil {
		if errors.Is(err, ErrSchemaMismatch) {
			return &cache{}, nil
		}
		return nil, fmt.Errorf("open previous index: %w", err)
	}
	defer store.Close()

	previous, err := store.Algorithm(ctx)
	if err != nil || previous != algorithm {
		return &cache{}, nil
	}

	records, err := store.AllTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous index: %w", err)
	}
	byPath := make(map[string]track.Record, len(records))
	for _, record := range records {
		record.ID = 0
		byPath[record.Path] = record
	}
	return &cache{records: byPath}, nil
}

// lookup returns the cached record for entry when it is still current.
func (c *cache) lookup(entry enumerate.Entry) (track.Record, bool) {
	if c == nil || len(c.records) == 0 {
		return track.Record{}, false
	}
	record, ok := c.records[entry.Rel]
	if !ok {
		return track.Record{}, false
	}
	if record.Size != entry.Size || record.ModTime.IsZero() || !record.ModTime.Equal(entry.ModTime) {
		return track.Record{}, false
	}
	return record, true
}

func (c *cache) size() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}
