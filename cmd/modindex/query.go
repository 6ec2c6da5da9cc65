package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"modindex/internal/config"
	"modindex/internal/enumerate"
	"modindex/internal/index"
	"modindex/internal/track"
)

// queryFile is one extracted query together with the path it was read from.
type queryFile struct {
	Source string
	Record track.Record
}

// loadQueries enumerates every argument and extracts each file with the
// digest algorithm of the opened index. Queries located under the indexed
// root take the index-relative path so they can be told apart from their own
// index entry.
func (c *commandContext) loadQueries(ctx context.Context, cfg *config.Config, store *index.Store, logger *slog.Logger, args []string) ([]queryFile, error) {
	algorithm, err := store.Algorithm(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := store.Meta(ctx)
	if err != nil {
		return nil, err
	}
	extractor := c.extractor(cfg, algorithm, logger)

	var queries []queryFile
	for _, arg := range args {
		root, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		entries, err := enumerate.Enumerate(root, enumerate.Options{
			Recursive:      cfg.Index.Recursive,
			SkipExtensions: cfg.Index.SkipExtensions,
			IndexPath:      cfg.Paths.IndexPath,
		})
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", arg, err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("no files found at %s", arg)
		}
		for _, entry := range entries {
			record, err := extractor.Extract(ctx, entry)
			if err != nil {
				return nil, err
			}
			if rel, ok := indexRelative(meta.Root, entry.Path); ok {
				record.Path = rel
			}
			queries = append(queries, queryFile{Source: entry.Path, Record: record})
		}
	}
	return queries, nil
}

func indexRelative(root, path string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return enumerate.RelativePath(rel), true
}
