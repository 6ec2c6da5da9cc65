package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modindex/internal/analysis"
	"modindex/internal/digest"
	"modindex/internal/enumerate"
	"modindex/internal/extract"
	"modindex/internal/failure"
	"modindex/internal/track"
)

func writeEntry(t *testing.T, name string, data []byte) enumerate.Entry {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return enumerate.Entry{Path: path, Rel: name, Size: int64(len(data)), ModTime: time.Unix(1700000000, 0)}
}

func TestExtractUnsupportedKeepsWholeDigest(t *testing.T) {
	data := []byte("not a module at all")
	entry := writeEntry(t, "junk.mod", data)

	ex := extract.New(analysis.Unsupported{}, digest.SHA256, nil)
	record, err := ex.Extract(context.Background(), entry)
	require.NoError(t, err)

	require.Equal(t, "junk.mod", record.Path)
	require.Equal(t, digest.SHA256.Sum(data), record.WholeDigest)
	require.Equal(t, track.NoPattern, record.PatternDigest)
	require.False(t, record.HasPattern())
	require.Empty(t, record.Samples)
	require.Empty(t, record.Instruments)
	require.Equal(t, int64(len(data)), record.Size)
	require.Equal(t, entry.ModTime, record.ModTime)
}

func TestExtractUsesAnalyzerResult(t *testing.T) {
	data := []byte("M.K. pattern data")
	payload := []byte{1, 2, 3, 4}
	static := analysis.NewStatic()
	static.Set(data, analysis.Result{
		PatternDigest: 0xfeedface,
		ChannelCount:  4,
		Instruments:   []string{"bass", "snare"},
		Samples: []analysis.SamplePayload{
			{Ordinal: 1, Payload: payload, Text: "ripped by nobody", ByteLength: 4, DecodedLength: 8},
			{Ordinal: 2, Payload: nil, Text: "", ByteLength: 0},
			{Ordinal: 3, Payload: make([]byte, 16), Text: "silence", ByteLength: 16, DecodedLength: 16},
		},
	})
	entry := writeEntry(t, "song.mod", data)

	record, err := extract.New(static, digest.SHA256, nil).Extract(context.Background(), entry)
	require.NoError(t, err)

	require.Equal(t, uint64(0xfeedface), record.PatternDigest)
	require.Equal(t, 4, record.ChannelCount)
	require.Equal(t, []string{"bass", "snare"}, record.Instruments)
	require.Len(t, record.Samples, 3)
	require.NotNil(t, record.Samples[0].ContentDigest)
	require.Equal(t, digest.SHA256.Sum(payload), *record.Samples[0].ContentDigest)
	require.Nil(t, record.Samples[1].ContentDigest, "absent payload has no digest")
	require.Nil(t, record.Samples[2].ContentDigest, "silent payload has no digest")
	require.Equal(t, []string{"ripped by nobody", "silence"}, record.SampleLines())
}

func TestExtractBlake3(t *testing.T) {
	data := []byte("same bytes")
	entry := writeEntry(t, "a.xm", data)
	record, err := extract.New(nil, digest.BLAKE3, nil).Extract(context.Background(), entry)
	require.NoError(t, err)
	require.Equal(t, digest.BLAKE3.Sum(data), record.WholeDigest)
}

func TestExtractIdenticalBytesShareDigest(t *testing.T) {
	data := []byte("identical module")
	first := writeEntry(t, "first.mod", data)
	second := writeEntry(t, "other.mod", data)

	ex := extract.New(nil, digest.SHA256, nil)
	a, err := ex.Extract(context.Background(), first)
	require.NoError(t, err)
	b, err := ex.Extract(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, a.WholeDigest, b.WholeDigest)
}

func TestExtractMissingFileIsIOError(t *testing.T) {
	entry := enumerate.Entry{Path: filepath.Join(t.TempDir(), "gone.mod"), Rel: "gone.mod"}
	_, err := extract.New(nil, digest.SHA256, nil).Extract(context.Background(), entry)
	require.Error(t, err)
	require.True(t, errors.Is(err, extract.ErrIO))
	require.Equal(t, failure.KindIO, failure.Kind(err))
}

type failingAnalyzer struct{ released *int }

func (f failingAnalyzer) Analyze(context.Context, []byte) (*analysis.Result, error) {
	result := &analysis.Result{}
	result.OnRelease(func() { *f.released++ })
	return result, errors.New("helper crashed")
}

type countingAnalyzer struct{ released *int }

func (c countingAnalyzer) Analyze(context.Context, []byte) (*analysis.Result, error) {
	result := &analysis.Result{PatternDigest: 7}
	result.OnRelease(func() { *c.released++ })
	return result, nil
}

func TestExtractAnalyzerFailureDegradesToWholeFile(t *testing.T) {
	released := 0
	entry := writeEntry(t, "crash.it", []byte("payload"))
	record, err := extract.New(failingAnalyzer{released: &released}, digest.SHA256, nil).Extract(context.Background(), entry)
	require.NoError(t, err)
	require.False(t, record.HasPattern())
	require.Equal(t, 1, released, "partial results must be released")
}

func TestExtractReleasesResult(t *testing.T) {
	released := 0
	entry := writeEntry(t, "ok.s3m", []byte("payload"))
	record, err := extract.New(countingAnalyzer{released: &released}, digest.SHA256, nil).Extract(context.Background(), entry)
	require.NoError(t, err)
	require.Equal(t, uint64(7), record.PatternDigest)
	require.Equal(t, 1, released)
}

func TestExtractCancelled(t *testing.T) {
	entry := writeEntry(t, "x.mod", []byte("x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extract.New(nil, digest.SHA256, nil).Extract(ctx, entry)
	require.ErrorIs(t, err, context.Canceled)
}
