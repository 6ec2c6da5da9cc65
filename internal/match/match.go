package match

import (
	"context"
	"fmt"
	"sort"

	"modindex/internal/digest"
	"modindex/internal/index"
	"modindex/internal/track"
)

// Reader is the read side of an index needed by the engine. *index.Store
// satisfies it.
type Reader interface {
	TracksByWholeDigest(ctx context.Context, d digest.Digest) ([]track.Record, error)
	TracksByPatternDigest(ctx context.Context, pattern uint64) ([]track.Record, error)
	SampleRefsByDigest(ctx context.Context, d digest.Digest) ([]index.SampleRef, error)
}

// Candidate is an indexed track that matched a query, tagged by tier.
type Candidate struct {
	Record track.Record `json:"record" yaml:"record"`
	Tier   track.Tier   `json:"tier" yaml:"tier"`
}

// SampleHit lists the other tracks holding a payload-identical copy of one
// query sample.
type SampleHit struct {
	Sample  track.Sample      `json:"sample" yaml:"sample"`
	Matches []index.SampleRef `json:"matches" yaml:"matches"`
}

// Engine answers match queries. It holds no mutable state and is safe for
// concurrent use when its Reader is.
type Engine struct {
	reader Reader
}

// NewEngine returns an engine reading from r.
func NewEngine(r Reader) *Engine {
	return &Engine{reader: r}
}

// Match looks query up on the whole-file tier and, when the query carries a
// pattern digest, on the pattern tier. A candidate found by both lookups is
// tagged TierBoth. The result is sorted by path.
func (e *Engine) Match(ctx context.Context, query track.Record) ([]Candidate, error) {
	exact, err := e.reader.TracksByWholeDigest(ctx, query.WholeDigest)
	if err != nil {
		return nil, fmt.Errorf("match whole digest: %w", err)
	}

	var pattern []track.Record
	if query.HasPattern() {
		pattern, err = e.reader.TracksByPatternDigest(ctx, query.PatternDigest)
		if err != nil {
			return nil, fmt.Errorf("match pattern digest: %w", err)
		}
	}

	byPath := make(map[string]*Candidate, len(exact)+len(pattern))
	for _, record := range exact {
		byPath[record.Path] = &Candidate{Record: record, Tier: track.TierExact}
	}
	for _, record := range pattern {
		if record.PatternDigest != query.PatternDigest {
			continue
		}
		if existing, ok := byPath[record.Path]; ok {
			existing.Tier = track.TierBoth
			continue
		}
		byPath[record.Path] = &Candidate{Record: record, Tier: track.TierPattern}
	}

	out := make([]Candidate, 0, len(byPath))
	for _, candidate := range byPath {
		out = append(out, *candidate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.Path < out[j].Record.Path })
	return out, nil
}

// SampleReuse reports, for every query sample with a payload digest, the
// sample slots of other tracks holding the same payload. Slots of a track at
// the query's own path are excluded. Samples without hits are omitted.
func (e *Engine) SampleReuse(ctx context.Context, query track.Record) ([]SampleHit, error) {
	var hits []SampleHit
	for _, sample := range query.Samples {
		if sample.ContentDigest == nil {
			continue
		}
		refs, err := e.reader.SampleRefsByDigest(ctx, *sample.ContentDigest)
		if err != nil {
			return nil, fmt.Errorf("sample reuse for sample %d: %w", sample.Ordinal, err)
		}
		matches := make([]index.SampleRef, 0, len(refs))
		for _, ref := range refs {
			if ref.Track.Path == query.Path {
				continue
			}
			matches = append(matches, ref)
		}
		if len(matches) == 0 {
			continue
		}
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Track.Path != matches[j].Track.Path {
				return matches[i].Track.Path < matches[j].Track.Path
			}
			return matches[i].Sample.Ordinal < matches[j].Sample.Ordinal
		})
		hits = append(hits, SampleHit{Sample: sample, Matches: matches})
	}
	return hits, nil
}

// Records returns the candidate records in order.
func Records(candidates []Candidate) []track.Record {
	out := make([]track.Record, len(candidates))
	for i, c := range candidates {
		out[i] = c.Record
	}
	return out
}

// Keep returns the candidates whose records appear in kept, preserving order.
// It maps a filtered record group back onto tier-tagged candidates.
func Keep(candidates []Candidate, kept []track.Record) []Candidate {
	if len(kept) == 0 {
		return nil
	}
	paths := make(map[string]struct{}, len(kept))
	for _, record := range kept {
		paths[record.Path] = struct{}{}
	}
	out := make([]Candidate, 0, len(kept))
	for _, c := range candidates {
		if _, ok := paths[c.Record.Path]; ok {
			out = append(out, c)
		}
	}
	return out
}
