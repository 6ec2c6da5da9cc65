package main

import (
	"github.com/spf13/cobra"

	"modindex/internal/config"
	"modindex/internal/filter"
)

// filterFlags overrides the [filter] config section per invocation. Only
// flags the user actually set replace the configured value.
type filterFlags struct {
	includePaths      []string
	includeExtensions []string
	excludePaths      []string
	excludeExtensions []string
	sampleText        string
	filename          string
	minimum           int
}

// register adds the filter flags. withMinimum controls whether --min is
// offered; dupes sets the group minimum through its own flag.
func (f *filterFlags) register(cmd *cobra.Command, withMinimum bool) {
	flags := cmd.Flags()
	flags.StringSliceVar(&f.includePaths, "include-path", nil, "Keep only paths starting with this prefix (repeatable)")
	flags.StringSliceVar(&f.includeExtensions, "include-ext", nil, "Keep only files with this extension (repeatable)")
	flags.StringSliceVar(&f.excludePaths, "exclude-path", nil, "Drop paths starting with this prefix (repeatable)")
	flags.StringSliceVar(&f.excludeExtensions, "exclude-ext", nil, "Drop files with this extension (repeatable)")
	flags.StringVar(&f.sampleText, "sample-text", "", "Keep groups where any sample text matches this regex (case-insensitive)")
	flags.StringVar(&f.filename, "filename", "", "Keep groups where any file name matches this regex (case-insensitive)")
	if withMinimum {
		flags.IntVar(&f.minimum, "min", 0, "Minimum number of entries in a reported group")
	}
}

// pipeline merges set flags over cfg and compiles the result.
func (f *filterFlags) pipeline(cmd *cobra.Command, cfg config.Filter) (*filter.Pipeline, error) {
	opts := filter.FromConfig(cfg)
	flags := cmd.Flags()
	if flags.Changed("include-path") {
		opts.IncludePaths = f.includePaths
	}
	if flags.Changed("include-ext") {
		opts.IncludeExtensions = f.includeExtensions
	}
	if flags.Changed("exclude-path") {
		opts.ExcludePaths = f.excludePaths
	}
	if flags.Changed("exclude-ext") {
		opts.ExcludeExtensions = f.excludeExtensions
	}
	if flags.Changed("sample-text") {
		opts.SampleTextPattern = f.sampleText
	}
	if flags.Changed("filename") {
		opts.FilenamePattern = f.filename
	}
	if flags.Lookup("min") != nil && flags.Changed("min") {
		opts.MinimumCount = f.minimum
	}
	return filter.Compile(opts)
}
