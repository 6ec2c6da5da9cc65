package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIndex()
	c.normalizeAnalysis()
	c.normalizeFilter()
	c.normalizeSnapshot()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.IndexPath) == "" {
		c.Paths.IndexPath = defaultIndexPath
	}
	if c.Paths.IndexPath, err = expandPath(c.Paths.IndexPath); err != nil {
		return fmt.Errorf("paths.index_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.SnapshotPath) == "" {
		c.Paths.SnapshotPath = defaultSnapshotPath
	}
	if c.Paths.SnapshotPath, err = expandPath(c.Paths.SnapshotPath); err != nil {
		return fmt.Errorf("paths.snapshot_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIndex() {
	c.Index.Digest = strings.ToLower(strings.TrimSpace(c.Index.Digest))
	if c.Index.Digest == "" {
		c.Index.Digest = defaultDigest
	}
	c.Index.SkipExtensions = NormalizeExtensions(c.Index.SkipExtensions)
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.Command = strings.TrimSpace(c.Analysis.Command)
	if c.Analysis.Command == "" {
		if value, ok := os.LookupEnv(analysisCommandEnv); ok {
			c.Analysis.Command = strings.TrimSpace(value)
		}
	}
	if c.Analysis.TimeoutSeconds == 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeout
	}
}

func (c *Config) normalizeFilter() {
	c.Filter.IncludePaths = trimList(c.Filter.IncludePaths)
	c.Filter.ExcludePaths = trimList(c.Filter.ExcludePaths)
	c.Filter.IncludeExtensions = NormalizeExtensions(c.Filter.IncludeExtensions)
	c.Filter.ExcludeExtensions = NormalizeExtensions(c.Filter.ExcludeExtensions)
	c.Filter.SampleTextPattern = strings.TrimSpace(c.Filter.SampleTextPattern)
	c.Filter.FilenamePattern = strings.TrimSpace(c.Filter.FilenamePattern)
	if c.Filter.MinimumCount == 0 {
		c.Filter.MinimumCount = defaultFilterMinimumCount
	}
}

func (c *Config) normalizeSnapshot() {
	c.Snapshot.URL = strings.TrimSpace(c.Snapshot.URL)
	if c.Snapshot.URL == "" {
		if value, ok := os.LookupEnv(snapshotURLEnv); ok {
			c.Snapshot.URL = strings.TrimSpace(value)
		}
	}
	c.Snapshot.Endpoint = strings.TrimSpace(c.Snapshot.Endpoint)
	c.Snapshot.Region = strings.TrimSpace(c.Snapshot.Region)
	if c.Snapshot.Region == "" {
		c.Snapshot.Region = defaultSnapshotRegion
	}
	c.Snapshot.AccessKey = strings.TrimSpace(c.Snapshot.AccessKey)
	if c.Snapshot.AccessKey == "" {
		if value, ok := os.LookupEnv(snapshotAccessKeyEnv); ok {
			c.Snapshot.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Snapshot.SecretKey = strings.TrimSpace(c.Snapshot.SecretKey)
	if c.Snapshot.SecretKey == "" {
		if value, ok := os.LookupEnv(snapshotSecretKeyEnv); ok {
			c.Snapshot.SecretKey = strings.TrimSpace(value)
		}
	}
	c.Snapshot.Codec = strings.ToLower(strings.TrimSpace(c.Snapshot.Codec))
	if c.Snapshot.Codec == "" {
		c.Snapshot.Codec = defaultSnapshotCodec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeExtensions lowercases extensions, ensures a leading dot, and drops
// blanks and duplicates. The result is sorted.
func NormalizeExtensions(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
