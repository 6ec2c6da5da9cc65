package testsupport

import (
	"context"
	"testing"

	"modindex/internal/analysis"
	"modindex/internal/digest"
	"modindex/internal/extract"
	"modindex/internal/index"
	"modindex/internal/logging"
)

// MustBuildIndex indexes root into indexPath recursively and fails the test on error.
func MustBuildIndex(t testing.TB, root, indexPath string, analyzer analysis.Analyzer) index.Stats {
	t.Helper()

	builder := index.NewBuilder(extract.New(analyzer, digest.SHA256, logging.NewNop()), logging.NewNop())
	stats, err := builder.Build(context.Background(), index.BuildOptions{
		Root:      root,
		IndexPath: indexPath,
		Recursive: true,
		Workers:   2,
	})
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	return stats
}

// MustOpenIndex opens a committed index for tests and registers cleanup.
func MustOpenIndex(t testing.TB, path string) *index.Store {
	t.Helper()

	store, err := index.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
