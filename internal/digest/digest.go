package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes for every supported algorithm.
const Size = 32

// Digest is a 256-bit content digest.
type Digest [Size]byte

// ErrUnknownAlgorithm reports an algorithm name that is not supported.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm names a digest function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

// ParseAlgorithm normalizes an algorithm name. Empty input selects Default.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SHA256), "sha-256":
		return SHA256, nil
	case string(BLAKE3):
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, value)
	}
}

// Sum digests data with the algorithm. Unknown algorithms fall back to SHA-256
// so that a zero-value Algorithm behaves like Default.
func (a Algorithm) Sum(data []byte) Digest {
	switch a {
	case BLAKE3:
		return Digest(blake3.Sum256(data))
	default:
		return Digest(sha256.Sum256(data))
	}
}

func (a Algorithm) String() string {
	if a == "" {
		return string(Default)
	}
	return string(a)
}

// String returns the lowercase hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for log lines and tables.
func (d Digest) Short() string {
	return d.String()[:12]
}

// IsZero reports whether the digest is all zero bytes.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Bytes returns a copy of the digest as a slice, suitable for BLOB columns.
func (d Digest) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, d[:])
	return out
}

// FromBytes converts a stored BLOB back into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("digest length %d, want %d", len(b), Size)
	}
	copy(d[:], b)
	return d, nil
}

// Parse decodes a hex digest.
func Parse(value string) (Digest, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return Digest{}, fmt.Errorf("parse digest: %w", err)
	}
	return FromBytes(raw)
}

// MarshalText implements encoding.TextMarshaler so digests render as hex in
// JSON and YAML output.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
