package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"modindex/internal/config"
	"modindex/internal/failure"
	"modindex/internal/track"
)

// ErrInvalidPattern is returned by Compile when a regular expression does not
// parse.
var ErrInvalidPattern = fmt.Errorf("invalid filter pattern: %w", failure.ErrValidation)

// Options configures a Pipeline. Empty include sets match everything; empty
// exclude sets match nothing.
type Options struct {
	// IncludePaths and ExcludePaths are prefixes of root-relative slash paths.
	IncludePaths []string
	ExcludePaths []string
	// IncludeExtensions and ExcludeExtensions are case-insensitive suffixes.
	IncludeExtensions []string
	ExcludeExtensions []string
	// SampleTextPattern and FilenamePattern are case-insensitive regular
	// expressions; empty disables the gate.
	SampleTextPattern string
	FilenamePattern   string
	// MinimumCount is the smallest group Apply returns. Values below 1 mean 1.
	MinimumCount int
}

// FromConfig converts the [filter] config section.
func FromConfig(cfg config.Filter) Options {
	return Options{
		IncludePaths:      cfg.IncludePaths,
		ExcludePaths:      cfg.ExcludePaths,
		IncludeExtensions: cfg.IncludeExtensions,
		ExcludeExtensions: cfg.ExcludeExtensions,
		SampleTextPattern: cfg.SampleTextPattern,
		FilenamePattern:   cfg.FilenamePattern,
		MinimumCount:      cfg.MinimumCount,
	}
}

// Pipeline is a compiled, immutable filter.
type Pipeline struct {
	includePaths      []string
	excludePaths      []string
	includeExtensions []string
	excludeExtensions []string
	sampleText        *regexp.Regexp
	filename          *regexp.Regexp
	minimum           int
}

// Compile validates opts and returns a pipeline. Pattern errors are reported
// here, before any index work starts.
func Compile(opts Options) (*Pipeline, error) {
	p := &Pipeline{
		includePaths:      normalizePrefixes(opts.IncludePaths),
		excludePaths:      normalizePrefixes(opts.ExcludePaths),
		includeExtensions: config.NormalizeExtensions(opts.IncludeExtensions),
		excludeExtensions: config.NormalizeExtensions(opts.ExcludeExtensions),
		minimum:           max(opts.MinimumCount, 1),
	}
	var err error
	if p.sampleText, err = compilePattern("sample text", opts.SampleTextPattern); err != nil {
		return nil, err
	}
	if p.filename, err = compilePattern("filename", opts.FilenamePattern); err != nil {
		return nil, err
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. It is meant for fixed
// options known to be valid.
func MustCompile(opts Options) *Pipeline {
	p, err := Compile(opts)
	if err != nil {
		panic(err)
	}
	return p
}

// Minimum returns the configured minimum group size.
func (p *Pipeline) Minimum() int {
	return p.minimum
}

// WithMinimum returns a copy of p with a different minimum group size.
func (p *Pipeline) WithMinimum(n int) *Pipeline {
	clone := *p
	clone.minimum = max(n, 1)
	return &clone
}

// Apply filters one candidate group. The result is either empty or holds at
// least Minimum records; input order is preserved.
func (p *Pipeline) Apply(group []track.Record) []track.Record {
	retained := make([]track.Record, 0, len(group))
	for _, record := range group {
		if p.keep(record.Path) {
			retained = append(retained, record)
		}
	}

	if p.filename != nil && !p.anyFilename(retained) {
		return nil
	}

	if p.sampleText != nil {
		if p.anySampleText(retained) && len(retained) >= p.minimum {
			return retained
		}
		return nil
	}

	if len(retained) < p.minimum {
		return nil
	}
	return retained
}

func (p *Pipeline) keep(rel string) bool {
	if hasAnyPrefix(rel, p.excludePaths) || hasAnySuffix(rel, p.excludeExtensions) {
		return false
	}
	if len(p.includePaths) > 0 && !hasAnyPrefix(rel, p.includePaths) {
		return false
	}
	if len(p.includeExtensions) > 0 && !hasAnySuffix(rel, p.includeExtensions) {
		return false
	}
	return true
}

func (p *Pipeline) anyFilename(group []track.Record) bool {
	for _, record := range group {
		if p.filename.MatchString(path.Base(record.Path)) {
			return true
		}
	}
	return false
}

func (p *Pipeline) anySampleText(group []track.Record) bool {
	for _, record := range group {
		for _, line := range record.SampleLines() {
			if p.sampleText.MatchString(line) {
				return true
			}
		}
	}
	return false
}

func compilePattern(what, pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidPattern, what, pattern, err)
	}
	return re, nil
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		prefix = strings.TrimLeft(strings.TrimSpace(prefix), "/")
		if prefix == "" {
			continue
		}
		out = append(out, prefix)
	}
	return out
}

func hasAnyPrefix(rel string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

func hasAnySuffix(rel string, suffixes []string) bool {
	lower := strings.ToLower(rel)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
