package track

import (
	"strings"
	"time"

	"modindex/internal/digest"
)

// NoPattern is the PatternDigest sentinel meaning the analyzer produced no
// pattern digest. It is never stored in the pattern index.
const NoPattern uint64 = 0

// Sample describes one sample slot of a module.
type Sample struct {
	Ordinal int `json:"ordinal" yaml:"ordinal"`
	// ContentDigest is nil when the slot has no payload or the payload is silent.
	ContentDigest *digest.Digest `json:"content_digest,omitempty" yaml:"content_digest,omitempty"`
	Text          string         `json:"text" yaml:"text"`
	ByteLength    int64          `json:"byte_length" yaml:"byte_length"`
	DecodedLength int64          `json:"decoded_length" yaml:"decoded_length"`
}

// Record is the extracted identity of one module file.
type Record struct {
	ID            int64         `json:"-" yaml:"-"`
	Path          string        `json:"path" yaml:"path"`
	WholeDigest   digest.Digest `json:"whole_digest" yaml:"whole_digest"`
	PatternDigest uint64        `json:"pattern_digest,omitempty" yaml:"pattern_digest,omitempty"`
	Samples       []Sample      `json:"samples,omitempty" yaml:"samples,omitempty"`
	Instruments   []string      `json:"instruments,omitempty" yaml:"instruments,omitempty"`
	ChannelCount  int           `json:"channel_count,omitempty" yaml:"channel_count,omitempty"`
	Size          int64         `json:"size" yaml:"size"`
	ModTime       time.Time     `json:"mod_time" yaml:"mod_time"`
}

// HasPattern reports whether the record carries a usable pattern digest.
func (r Record) HasPattern() bool {
	return r.PatternDigest != NoPattern
}

// SampleLines returns the non-blank sample texts in ordinal order.
func (r Record) SampleLines() []string {
	lines := make([]string, 0, len(r.Samples))
	for _, s := range r.Samples {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		lines = append(lines, s.Text)
	}
	return lines
}

// Paths returns the paths of records in input order.
func Paths(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Path
	}
	return out
}
