package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations.
type Paths struct {
	IndexPath    string `toml:"index_path"`
	SnapshotPath string `toml:"snapshot_path"`
	LogDir       string `toml:"log_dir"`
}

// Index contains build settings.
type Index struct {
	Workers   int    `toml:"workers"`
	Digest    string `toml:"digest"`
	Recursive bool   `toml:"recursive"`
	// Incremental reuses records whose path, size and mtime are unchanged.
	Incremental    bool     `toml:"incremental"`
	SkipExtensions []string `toml:"skip_extensions"`
}

// Analysis configures the external module analyzer helper.
type Analysis struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Filter holds default filter settings applied to match and dupes output.
// Command-line flags override individual fields.
type Filter struct {
	IncludePaths      []string `toml:"include_paths"`
	IncludeExtensions []string `toml:"include_extensions"`
	ExcludePaths      []string `toml:"exclude_paths"`
	ExcludeExtensions []string `toml:"exclude_extensions"`
	SampleTextPattern string   `toml:"sample_text_pattern"`
	FilenamePattern   string   `toml:"filename_pattern"`
	MinimumCount      int      `toml:"minimum_count"`
}

// Snapshot configures the published-index bootstrap.
type Snapshot struct {
	// URL is http(s)://, s3://bucket/key, file:// or a plain path.
	URL string `toml:"url"`
	// Endpoint selects an S3-compatible service (MinIO) for s3:// URLs.
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RateLimitKiB   int    `toml:"rate_limit_kib"`
	Codec          string `toml:"codec"`
	AutoFetch      bool   `toml:"auto_fetch"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for modindex.
//
// Configuration sections by subsystem:
//   - Paths: index database, snapshot cache and log directory
//   - Index: worker count, digest algorithm, traversal and skip list
//   - Analysis: external analyzer helper
//   - Filter: default match/dupes filters
//   - Snapshot: remote snapshot source and download settings
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Index    Index    `toml:"index"`
	Analysis Analysis `toml:"analysis"`
	Filter   Filter   `toml:"filter"`
	Snapshot Snapshot `toml:"snapshot"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("modindex.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the parent directories of the index, the
// snapshot cache and the log directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.IndexPath), filepath.Dir(c.Paths.SnapshotPath)}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AnalysisTimeout returns the per-file analyzer timeout.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

// SnapshotTimeout returns the snapshot download timeout; zero means none.
func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.Snapshot.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
