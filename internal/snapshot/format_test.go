package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"modindex/internal/analysis"
	"modindex/internal/testsupport"
)

func fakeDatabase(size int) []byte {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, size)
	copy(data, sqliteMagic)
	for i := len(sqliteMagic); i < size; i++ {
		data[i] = byte(rng.Intn(8))
	}
	return data
}

func TestRoundTripCodecs(t *testing.T) {
	data := fakeDatabase(64 << 10)
	for _, codec := range []Codec{CodecZstd, CodecLZ4, CodecNone} {
		t.Run(string(codec), func(t *testing.T) {
			var packed bytes.Buffer
			require.NoError(t, Write(&packed, 7, codec, bytes.NewReader(data)))

			version, err := ReadHeader(bytes.NewReader(packed.Bytes()))
			require.NoError(t, err)
			require.Equal(t, uint32(7), version)

			r := bytes.NewReader(packed.Bytes()[HeaderSize:])
			payload, detected, err := Decode(r)
			require.NoError(t, err)
			require.Equal(t, codec, detected)
			_ = payload.Close()

			var out bytes.Buffer
			version, err = Unpack(bytes.NewReader(packed.Bytes()), &out)
			require.NoError(t, err)
			require.Equal(t, uint32(7), version)
			require.Equal(t, data, out.Bytes())
		})
	}
}

func TestHeaderIsBigEndian(t *testing.T) {
	var packed bytes.Buffer
	require.NoError(t, Write(&packed, 0x01020304, CodecNone, bytes.NewReader(sqliteMagic)))
	require.Equal(t, []byte{1, 2, 3, 4}, packed.Bytes()[:HeaderSize])
}

func TestDecodeRejectsUnknownPayload(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("definitely not a database")))
	if !errors.Is(err, ErrUnknownPayload) {
		t.Fatalf("expected ErrUnknownPayload, got %v", err)
	}
	_, err = Unpack(bytes.NewReader([]byte{0, 0}), io.Discard)
	if err == nil {
		t.Fatal("expected truncated header to fail")
	}
}

func TestParseCodec(t *testing.T) {
	for input, want := range map[string]Codec{"": CodecZstd, "ZSTD": CodecZstd, "lz4": CodecLZ4, "none": CodecNone, "raw": CodecNone} {
		got, err := ParseCodec(input)
		require.NoError(t, err)
		require.Equal(t, want, got, input)
	}
	_, err := ParseCodec("gzip")
	require.Error(t, err)
}

func TestPackWritesCurrentVersion(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.db")
	testsupport.WriteTree(t, root, map[string]string{"a.mod": "a"})
	testsupport.MustBuildIndex(t, root, indexPath, analysis.Unsupported{})

	out := filepath.Join(dir, "snapshot.bin")
	require.NoError(t, Pack(context.Background(), indexPath, out, CodecLZ4))

	version, err := ReadVersion(out)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion(), version)
}

func TestPackRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	bogus := testsupport.WriteModule(t, filepath.Join(dir, "index.db"), []byte("not sqlite"))
	if err := Pack(context.Background(), bogus, filepath.Join(dir, "out.bin"), CodecZstd); err == nil {
		t.Fatal("expected Pack to refuse a non-index file")
	}
}

func TestThrottleDeliversAllBytes(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 4096)
	r := Throttle(context.Background(), io.NopCloser(bytes.NewReader(data)), 1<<20)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.NoError(t, r.Close())

	plain := io.NopCloser(bytes.NewReader(data))
	require.Equal(t, plain, Throttle(context.Background(), plain, 0))
}
