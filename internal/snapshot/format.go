package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"modindex/internal/fileutil"
	"modindex/internal/index"
)

// HeaderSize is the length of the version tag.
const HeaderSize = 4

// Codec names the payload compression.
type Codec string

const (
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
	CodecNone Codec = "none"
)

var (
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic    = []byte{0x04, 0x22, 0x4d, 0x18}
	sqliteMagic = []byte("SQLite format 3\x00")
)

// ErrUnknownPayload is returned when the payload is neither a supported
// compressed frame nor a SQLite database.
var ErrUnknownPayload = errors.New("unrecognized snapshot payload")

// ParseCodec accepts zstd, lz4 or none. Empty means zstd.
func ParseCodec(value string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(value))) {
	case CodecZstd, "":
		return CodecZstd, nil
	case CodecLZ4:
		return CodecLZ4, nil
	case CodecNone, "raw":
		return CodecNone, nil
	default:
		return "", fmt.Errorf("unknown snapshot codec %q", value)
	}
}

// CurrentVersion is the version tag written for and expected from snapshots
// of this build's index schema.
func CurrentVersion() uint32 {
	return uint32(index.SchemaVersion)
}

// Write emits the version tag followed by the payload read from r, encoded
// with codec.
func Write(w io.Writer, version uint32, codec Codec, r io.Reader) error {
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], version)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	var enc io.WriteCloser
	switch codec {
	case CodecZstd, "":
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		enc = zw
	case CodecLZ4:
		enc = lz4.NewWriter(w)
	case CodecNone:
		if _, err := io.Copy(w, r); err != nil {
			return fmt.Errorf("write snapshot payload: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown snapshot codec %q", codec)
	}

	if _, err := io.Copy(enc, r); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress snapshot payload: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish %s frame: %w", codec, err)
	}
	return nil
}

// ReadHeader consumes and returns the version tag.
func ReadHeader(r io.Reader) (uint32, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, fmt.Errorf("read snapshot header: %w", err)
	}
	return binary.BigEndian.Uint32(header[:]), nil
}

// ReadVersion returns the version tag of the snapshot file at path.
func ReadVersion(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReadHeader(f)
}

// Decode wraps a payload reader (positioned after the header) in the
// decoder its magic bytes call for.
func Decode(r io.Reader) (io.ReadCloser, Codec, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(zstdMagic))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnknownPayload, err)
	}
	switch {
	case bytes.Equal(magic, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, "", fmt.Errorf("create zstd decoder: %w", err)
		}
		return dec.IOReadCloser(), CodecZstd, nil
	case bytes.Equal(magic, lz4Magic):
		return io.NopCloser(lz4.NewReader(br)), CodecLZ4, nil
	}
	if head, err := br.Peek(len(sqliteMagic)); err == nil && bytes.Equal(head, sqliteMagic) {
		return io.NopCloser(br), CodecNone, nil
	}
	return nil, "", ErrUnknownPayload
}

// Unpack reads a complete snapshot from r and writes the decoded database to
// w. It returns the version tag.
func Unpack(r io.Reader, w io.Writer) (uint32, error) {
	version, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}
	payload, _, err := Decode(r)
	if err != nil {
		return version, err
	}
	defer payload.Close()
	if _, err := io.Copy(w, payload); err != nil {
		return version, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return version, nil
}

// Pack writes the committed index at indexPath to outPath as a snapshot. The
// index is opened first so a stale or foreign database is never published.
func Pack(ctx context.Context, indexPath, outPath string, codec Codec) error {
	store, err := index.Open(ctx, indexPath)
	if err != nil {
		return fmt.Errorf("open index for packing: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	src, err := os.Open(indexPath)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer src.Close()

	return fileutil.WriteAtomic(outPath, 0o644, func(w io.Writer) error {
		return Write(w, CurrentVersion(), codec, &contextReader{ctx: ctx, r: src})
	})
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
