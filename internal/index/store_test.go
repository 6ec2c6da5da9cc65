package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modindex/internal/digest"
	"modindex/internal/logging"
	"modindex/internal/track"
)

func sampleDigest(payload string) *digest.Digest {
	d := digest.SHA256.Sum([]byte(payload))
	return &d
}

func testRecord(path, content string, pattern uint64, samples ...track.Sample) track.Record {
	return track.Record{
		Path:          path,
		WholeDigest:   digest.SHA256.Sum([]byte(content)),
		PatternDigest: pattern,
		Samples:       samples,
		Instruments:   []string{"lead", "bass"},
		ChannelCount:  4,
		Size:          int64(len(content)),
		ModTime:       time.Unix(1700000000, 123).UTC(),
	}
}

// writeIndex commits records into a fresh index at path.
func writeIndex(t *testing.T, path string, records ...track.Record) {
	t.Helper()

	ctx := context.Background()
	store, err := Create(ctx, path)
	require.NoError(t, err)

	cmds := make(chan Command, len(records)+1)
	for _, record := range records {
		cmds <- Insert{Record: record}
	}
	cmds <- Done{}

	writer := NewWriter(store, Meta{SchemaVersion: SchemaVersion, Algorithm: digest.SHA256, BuildID: "test", Root: "/music"}, logging.NewNop())
	n, err := writer.Run(ctx, cmds)
	require.NoError(t, err)
	require.Equal(t, len(records), n)
	require.NoError(t, store.finalize(ctx))
	require.NoError(t, store.Close())
}

func openIndex(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	shared := sampleDigest("kick")
	writeIndex(t, path,
		testRecord("b/song.mod", "song", 42,
			track.Sample{Ordinal: 0, ContentDigest: shared, Text: "kick", ByteLength: 4, DecodedLength: 4},
			track.Sample{Ordinal: 1, Text: "(c) someone"},
		),
		testRecord("a/copy.mod", "song", 42),
	)

	store := openIndex(t, path)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, meta.SchemaVersion)
	require.Equal(t, digest.SHA256, meta.Algorithm)
	require.Equal(t, 2, meta.TrackCount)
	require.Equal(t, "/music", meta.Root)
	require.False(t, meta.BuiltAt.IsZero())

	byWhole, err := store.TracksByWholeDigest(ctx, digest.SHA256.Sum([]byte("song")))
	require.NoError(t, err)
	require.Equal(t, []string{"a/copy.mod", "b/song.mod"}, track.Paths(byWhole))

	song := byWhole[1]
	require.Len(t, song.Samples, 2)
	require.Equal(t, *shared, *song.Samples[0].ContentDigest)
	require.Nil(t, song.Samples[1].ContentDigest)
	require.Equal(t, "(c) someone", song.Samples[1].Text)
	require.Equal(t, []string{"lead", "bass"}, song.Instruments)
	require.Equal(t, 4, song.ChannelCount)
	require.True(t, song.ModTime.Equal(time.Unix(1700000000, 123)))

	byPattern, err := store.TracksByPatternDigest(ctx, 42)
	require.NoError(t, err)
	require.Len(t, byPattern, 2)

	refs, err := store.SampleRefsByDigest(ctx, *shared)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "b/song.mod", refs[0].Track.Path)
	require.Equal(t, 0, refs[0].Sample.Ordinal)
}

func TestPatternSentinelNeverMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	writeIndex(t, path,
		testRecord("one.mod", "one", track.NoPattern),
		testRecord("two.mod", "two", track.NoPattern),
	)
	store := openIndex(t, path)

	got, err := store.TracksByPatternDigest(context.Background(), track.NoPattern)
	require.NoError(t, err)
	require.Empty(t, got)

	var stored int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(1) FROM tracks WHERE pattern_digest IS NOT NULL").Scan(&stored))
	require.Zero(t, stored)

	one, err := store.TrackByPath(context.Background(), "one.mod")
	require.NoError(t, err)
	require.NotNil(t, one)
	require.False(t, one.HasPattern())
}

func TestPatternDigestHighBitSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	const pattern uint64 = 0xfedcba9876543210
	writeIndex(t, path, testRecord("high.mod", "high", pattern))
	store := openIndex(t, path)

	got, err := store.TracksByPatternDigest(context.Background(), pattern)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, pattern, got[0].PatternDigest)
}

func TestTrackByPathMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	writeIndex(t, path, testRecord("x.mod", "x", 1))
	store := openIndex(t, path)

	got, err := store.TrackByPath(context.Background(), "nope.mod")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSharedSampleDigests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	kick := sampleDigest("kick")
	snare := sampleDigest("snare")
	writeIndex(t, path,
		testRecord("a.mod", "a", 0, track.Sample{Ordinal: 0, ContentDigest: kick}, track.Sample{Ordinal: 1, ContentDigest: kick}),
		testRecord("b.mod", "b", 0, track.Sample{Ordinal: 0, ContentDigest: kick}, track.Sample{Ordinal: 1, ContentDigest: snare}),
		testRecord("c.mod", "c", 0, track.Sample{Ordinal: 3, ContentDigest: snare}),
	)
	store := openIndex(t, path)
	ctx := context.Background()

	shared, err := store.SharedSampleDigests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, shared, 2)
	require.ElementsMatch(t, []digest.Digest{*kick, *snare}, shared)

	all, err := store.SharedSampleDigests(ctx, 3)
	require.NoError(t, err)
	require.Empty(t, all)

	refs, err := store.SampleRefsByDigest(ctx, *kick)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	require.Equal(t, "a.mod", refs[0].Track.Path)
	require.Equal(t, 0, refs[0].Sample.Ordinal)
	require.Equal(t, 1, refs[1].Sample.Ordinal)
	require.Equal(t, "b.mod", refs[2].Track.Path)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	writeIndex(t, path)
	if _, err := Create(context.Background(), path); err == nil {
		t.Fatal("expected Create to refuse an existing file")
	}
}

func TestOpenIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	writeIndex(t, path)
	store := openIndex(t, path)

	cmds := make(chan Command)
	close(cmds)
	_, err := NewWriter(store, Meta{}, logging.NewNop()).Run(context.Background(), cmds)
	if !errors.Is(err, ErrTransaction) {
		t.Fatalf("expected ErrTransaction writing a read-only store, got %v", err)
	}
}

func TestOpenSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()
	store, err := Create(ctx, path)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, "UPDATE index_meta SET value = '99' WHERE key = ?", MetaSchemaVersion)
	require.NoError(t, err)
	require.NoError(t, store.finalize(ctx))
	require.NoError(t, store.Close())

	_, err = Open(ctx, path)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "absent.db")); err == nil {
		t.Fatal("expected error opening a missing index")
	}
}

func TestWriterCommitsOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()
	store, err := Create(ctx, path)
	require.NoError(t, err)

	cmds := make(chan Command, 1)
	cmds <- Insert{Record: testRecord("only.mod", "only", 5)}
	close(cmds)

	n, err := NewWriter(store, Meta{Algorithm: digest.SHA256}, logging.NewNop()).Run(ctx, cmds)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, store.finalize(ctx))
	require.NoError(t, store.Close())

	count, err := openIndex(t, path).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestWriterDuplicatePathAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()
	store, err := Create(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	// Uniqueness is enforced by the path index, so create it before inserting.
	require.NoError(t, store.createIndices(ctx))

	cmds := make(chan Command, 3)
	cmds <- Insert{Record: testRecord("dup.mod", "one", 0)}
	cmds <- Insert{Record: testRecord("dup.mod", "two", 0)}
	cmds <- Done{}

	_, err = NewWriter(store, Meta{}, logging.NewNop()).Run(ctx, cmds)
	if !errors.Is(err, ErrTransaction) {
		t.Fatalf("expected ErrTransaction, got %v", err)
	}
	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count, "rolled back transaction must leave no rows")
}
