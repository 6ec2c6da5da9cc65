package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIndex(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIndex() error {
	if c.Index.Workers < 0 {
		return errors.New("index.workers must be zero (auto) or positive")
	}
	switch c.Index.Digest {
	case "sha256", "blake3":
	default:
		return fmt.Errorf("index.digest: unsupported value %q (want sha256 or blake3)", c.Index.Digest)
	}
	if c.Paths.IndexPath == c.Paths.SnapshotPath {
		return errors.New("paths.index_path and paths.snapshot_path must differ")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.TimeoutSeconds < 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateFilter() error {
	if c.Filter.MinimumCount < 1 {
		return errors.New("filter.minimum_count must be at least 1")
	}
	if c.Filter.SampleTextPattern != "" {
		if _, err := regexp.Compile("(?i)" + c.Filter.SampleTextPattern); err != nil {
			return fmt.Errorf("filter.sample_text_pattern: %w", err)
		}
	}
	if c.Filter.FilenamePattern != "" {
		if _, err := regexp.Compile("(?i)" + c.Filter.FilenamePattern); err != nil {
			return fmt.Errorf("filter.filename_pattern: %w", err)
		}
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.TimeoutSeconds < 0 {
		return errors.New("snapshot.timeout_seconds must not be negative")
	}
	if c.Snapshot.RateLimitKiB < 0 {
		return errors.New("snapshot.rate_limit_kib must not be negative")
	}
	switch c.Snapshot.Codec {
	case "zstd", "lz4", "none":
	default:
		return fmt.Errorf("snapshot.codec: unsupported value %q (want zstd, lz4, or none)", c.Snapshot.Codec)
	}
	if c.Snapshot.AutoFetch && c.Snapshot.URL == "" {
		return errors.New("snapshot.url must be set when snapshot.auto_fetch is true")
	}
	if c.Snapshot.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Snapshot.URL)
	if err != nil {
		return fmt.Errorf("snapshot.url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "", "file", "http", "https":
	case "s3":
		if parsed.Host == "" || strings.Trim(parsed.Path, "/") == "" {
			return errors.New("snapshot.url: s3 urls must name a bucket and key (s3://bucket/key)")
		}
		if c.Snapshot.Endpoint != "" && (c.Snapshot.AccessKey == "") != (c.Snapshot.SecretKey == "") {
			return errors.New("snapshot.access_key and snapshot.secret_key must be set together")
		}
	default:
		return fmt.Errorf("snapshot.url: unsupported scheme %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
