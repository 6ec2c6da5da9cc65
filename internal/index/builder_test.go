package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modindex/internal/analysis"
	"modindex/internal/digest"
	"modindex/internal/extract"
	"modindex/internal/index"
	"modindex/internal/logging"
	"modindex/internal/testsupport"
	"modindex/internal/track"
)

func newBuilder(analyzer analysis.Analyzer) *index.Builder {
	return index.NewBuilder(extract.New(analyzer, digest.SHA256, logging.NewNop()), logging.NewNop())
}

func buildOptions(root, indexPath string) index.BuildOptions {
	return index.BuildOptions{Root: root, IndexPath: indexPath, Recursive: true, Workers: 3}
}

func TestBuildIndexesIdenticalFiles(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{
		"a/1":     "same bytes",
		"b/1":     "same bytes",
		"c/1":     "same bytes",
		"d/other": "different",
	})

	stats := testsupport.MustBuildIndex(t, root, indexPath, analysis.Unsupported{})
	require.Equal(t, 4, stats.Files)
	require.Equal(t, 4, stats.Extracted)
	require.Equal(t, 4, stats.Tracks)
	require.Zero(t, stats.Failed)
	require.NotEmpty(t, stats.BuildID)

	store := testsupport.MustOpenIndex(t, indexPath)
	got, err := store.TracksByWholeDigest(context.Background(), digest.SHA256.Sum([]byte("same bytes")))
	require.NoError(t, err)
	require.Equal(t, []string{"a/1", "b/1", "c/1"}, track.Paths(got))
	for _, record := range got {
		require.False(t, record.HasPattern())
	}

	meta, err := store.Meta(context.Background())
	require.NoError(t, err)
	require.Equal(t, stats.BuildID, meta.BuildID)
	require.Equal(t, 4, meta.TrackCount)
}

func TestBuildStoresAnalyzerOutput(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{"song.mod": "song-v1", "remix.mod": "song-v2"})

	static := analysis.NewStatic()
	for _, content := range []string{"song-v1", "song-v2"} {
		static.Set([]byte(content), analysis.Result{
			PatternDigest: 77,
			ChannelCount:  4,
			Samples: []analysis.SamplePayload{
				{Ordinal: 0, Payload: []byte("kick"), Text: "kick drum"},
				{Ordinal: 1, Text: "ripped by nobody"},
			},
		})
	}
	testsupport.MustBuildIndex(t, root, indexPath, static)

	store := testsupport.MustOpenIndex(t, indexPath)
	ctx := context.Background()
	byPattern, err := store.TracksByPatternDigest(ctx, 77)
	require.NoError(t, err)
	require.Equal(t, []string{"remix.mod", "song.mod"}, track.Paths(byPattern))
	require.Len(t, byPattern[0].Samples, 2)
	require.Nil(t, byPattern[0].Samples[1].ContentDigest)

	refs, err := store.SampleRefsByDigest(ctx, digest.SHA256.Sum([]byte("kick")))
	require.NoError(t, err)
	require.Len(t, refs, 2)
}

func TestBuildIncrementalReusesUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{"one.mod": "one", "two.mod": "two"})

	static := analysis.NewStatic()
	static.Set([]byte("one"), analysis.Result{PatternDigest: 1})
	static.Set([]byte("two"), analysis.Result{PatternDigest: 2})
	builder := newBuilder(static)
	ctx := context.Background()

	opts := buildOptions(root, indexPath)
	opts.Incremental = true
	first, err := builder.Build(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 2, first.Extracted)
	require.Equal(t, 2, static.Calls())

	second, err := builder.Build(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 2, second.Reused)
	require.Zero(t, second.Extracted)
	require.Equal(t, 2, static.Calls(), "unchanged files must not be analyzed again")

	touched := filepath.Join(root, "two.mod")
	testsupport.WriteModule(t, touched, []byte("two, edited"))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(touched, later, later))

	third, err := builder.Build(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 1, third.Reused)
	require.Equal(t, 1, third.Extracted)

	store := testsupport.MustOpenIndex(t, indexPath)
	record, err := store.TrackByPath(ctx, "two.mod")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, digest.SHA256.Sum([]byte("two, edited")), record.WholeDigest)
	require.False(t, record.HasPattern(), "edited bytes have no canned analysis")

	reused, err := store.TrackByPath(ctx, "one.mod")
	require.NoError(t, err)
	require.Equal(t, uint64(1), reused.PatternDigest)
}

func TestBuildFailureKeepsPreviousIndex(t *testing.T) {
	root := t.TempDir()
	indexDir := t.TempDir()
	indexPath := filepath.Join(indexDir, "index.db")
	testsupport.WriteTree(t, root, map[string]string{"keep.mod": "keep"})
	testsupport.MustBuildIndex(t, root, indexPath, analysis.Unsupported{})

	testsupport.WriteTree(t, root, map[string]string{"new.mod": "new"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newBuilder(analysis.Unsupported{}).Build(ctx, buildOptions(root, indexPath)); err == nil {
		t.Fatal("expected cancelled build to fail")
	}

	store := testsupport.MustOpenIndex(t, indexPath)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	entries, err := os.ReadDir(indexDir)
	require.NoError(t, err)
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".building-") {
			t.Fatalf("temporary store %s left behind", entry.Name())
		}
	}
}

func TestBuildFailsWhenLocked(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{"x.mod": "x"})

	unlock, err := index.Lock(indexPath)
	require.NoError(t, err)
	defer unlock()

	_, err = newBuilder(nil).Build(context.Background(), buildOptions(root, indexPath))
	if !errors.Is(err, index.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestBuildSkipsUnreadableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{"ok.mod": "ok", "locked.mod": "locked"})
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.mod"), 0))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "locked.mod"), 0o644) })

	stats := testsupport.MustBuildIndex(t, root, indexPath, nil)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Tracks)
}

func TestBuildIgnoresIndexInsideRoot(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(root, "index.db")
	testsupport.WriteTree(t, root, map[string]string{"song.mod": "song"})

	testsupport.MustBuildIndex(t, root, indexPath, nil)
	stats := testsupport.MustBuildIndex(t, root, indexPath, nil)
	require.Equal(t, 1, stats.Files)
}

func TestBuildIndexesForeignDatabaseFiles(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(root, "index.db")
	testsupport.WriteTree(t, root, map[string]string{
		"song.mod":      "song",
		"tools/kits.db": "not ours",
		"tools/fm.lock": "not ours either",
	})

	stats := testsupport.MustBuildIndex(t, root, indexPath, nil)
	require.Equal(t, 3, stats.Files)

	record, err := testsupport.MustOpenIndex(t, indexPath).TrackByPath(context.Background(), "tools/kits.db")
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestBuildEmptyRoot(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "index.db")
	stats := testsupport.MustBuildIndex(t, t.TempDir(), indexPath, nil)
	require.Zero(t, stats.Files)

	count, err := testsupport.MustOpenIndex(t, indexPath).Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestBuildMissingRootKeepsPreviousIndex(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{"a.mod": "a", "b.mod": "b"})
	testsupport.MustBuildIndex(t, root, indexPath, nil)

	_, err := newBuilder(nil).Build(context.Background(), buildOptions(filepath.Join(root, "typo"), indexPath))
	if !errors.Is(err, index.ErrIO) {
		t.Fatalf("expected ErrIO for missing root, got %v", err)
	}

	count, err := testsupport.MustOpenIndex(t, indexPath).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

// removingAnalyzer deletes target the first time it runs, so a file that was
// enumerated disappears before it is read.
type removingAnalyzer struct {
	target string
	once   sync.Once
}

func (a *removingAnalyzer) Analyze(context.Context, []byte) (*analysis.Result, error) {
	a.once.Do(func() { _ = os.Remove(a.target) })
	return nil, analysis.ErrUnsupported
}

func TestBuildSkipsFilesThatVanish(t *testing.T) {
	root := t.TempDir()
	indexPath := filepath.Join(t.TempDir(), "index.db")
	testsupport.WriteTree(t, root, map[string]string{"a.mod": "a", "b.mod": "b"})

	opts := buildOptions(root, indexPath)
	opts.Workers = 1
	analyzer := &removingAnalyzer{target: filepath.Join(root, "b.mod")}
	stats, err := newBuilder(analyzer).Build(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Files)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Tracks)

	store := testsupport.MustOpenIndex(t, indexPath)
	record, err := store.TrackByPath(context.Background(), "a.mod")
	require.NoError(t, err)
	require.NotNil(t, record)
	missing, err := store.TrackByPath(context.Background(), "b.mod")
	require.NoError(t, err)
	require.Nil(t, missing)
}
