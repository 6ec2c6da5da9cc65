package analysis

import (
	"bytes"
	"context"
	"sync"

	"modindex/internal/digest"
)

// Static returns canned results keyed by the digest of the module bytes.
// Bytes without an entry are reported as unsupported. It is used by tests and
// by fixtures that need deterministic analyzer behavior.
type Static struct {
	mu      sync.RWMutex
	results map[digest.Digest]Result
	calls   int
}

// NewStatic returns an empty Static analyzer.
func NewStatic() *Static {
	return &Static{results: make(map[digest.Digest]Result)}
}

// Set registers the result returned for data.
func (s *Static) Set(data []byte, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[digest.SHA256.Sum(data)] = result
}

// Calls reports how many times Analyze ran.
func (s *Static) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// Analyze returns a copy of the registered result so callers may release it
// freely.
func (s *Static) Analyze(_ context.Context, data []byte) (*Result, error) {
	key := digest.SHA256.Sum(data)
	s.mu.Lock()
	s.calls++
	canned, ok := s.results[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnsupported
	}

	out := &Result{
		PatternDigest: canned.PatternDigest,
		Instruments:   append([]string(nil), canned.Instruments...),
		ChannelCount:  canned.ChannelCount,
		Samples:       make([]SamplePayload, len(canned.Samples)),
	}
	for i, sample := range canned.Samples {
		sample.Payload = bytes.Clone(sample.Payload)
		out.Samples[i] = sample
	}
	return out, nil
}
