package analysis

import (
	"context"
	"errors"

	"modindex/internal/failure"
)

// ErrUnsupported is returned when the analyzer cannot parse the module. The
// file stays indexable on the whole-file tier.
var ErrUnsupported = failure.ErrUnsupported

// Analyzer extracts pattern and sample information from module bytes.
// Implementations must not retain data after Analyze returns.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*Result, error)
}

// SamplePayload is one sample slot as reported by the analyzer.
type SamplePayload struct {
	Ordinal int
	// Payload holds the raw sample bytes, or nil when the slot has none.
	Payload       []byte
	Text          string
	ByteLength    int64
	DecodedLength int64
}

// Result is the analyzer output for one module.
type Result struct {
	// PatternDigest is 0 when no pattern digest is available.
	PatternDigest uint64
	Samples       []SamplePayload
	Instruments   []string
	ChannelCount  int

	release func()
}

// Release drops the payload buffers held by the result. It is safe to call
// more than once and on a nil Result.
func (r *Result) Release() {
	if r == nil {
		return
	}
	if r.release != nil {
		r.release()
		r.release = nil
	}
	for i := range r.Samples {
		r.Samples[i].Payload = nil
	}
}

// OnRelease registers a hook run by Release, for analyzers that hold
// resources beyond the payload slices.
func (r *Result) OnRelease(fn func()) {
	if r == nil || fn == nil {
		return
	}
	prev := r.release
	r.release = func() {
		fn()
		if prev != nil {
			prev()
		}
	}
}

// Unsupported is an Analyzer that declines every file.
type Unsupported struct{}

// Analyze always returns ErrUnsupported.
func (Unsupported) Analyze(context.Context, []byte) (*Result, error) {
	return nil, ErrUnsupported
}

// Kind classifies analyzer errors for callers that map errors to outcomes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "analyzer"
	}
}
