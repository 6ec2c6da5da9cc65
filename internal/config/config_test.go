package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"modindex/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MODINDEX_SNAPSHOT_URL", "")
	t.Setenv("MODINDEX_ANALYZER", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantIndex := filepath.Join(tempHome, ".local", "share", "modindex", "index.db")
	if cfg.Paths.IndexPath != wantIndex {
		t.Fatalf("unexpected index path: got %q want %q", cfg.Paths.IndexPath, wantIndex)
	}
	if cfg.Index.Digest != "sha256" {
		t.Fatalf("expected sha256 default digest, got %q", cfg.Index.Digest)
	}
	if !cfg.Index.Recursive {
		t.Fatal("expected recursive traversal by default")
	}
	if cfg.Filter.MinimumCount != 1 {
		t.Fatalf("expected minimum count 1, got %d", cfg.Filter.MinimumCount)
	}
	if cfg.Snapshot.Codec != "zstd" {
		t.Fatalf("expected zstd snapshot codec, got %q", cfg.Snapshot.Codec)
	}
	if got := cfg.AnalysisTimeout().Seconds(); got != 30 {
		t.Fatalf("expected 30s analysis timeout, got %v", got)
	}
	found := false
	for _, ext := range cfg.Index.SkipExtensions {
		if ext == ".listing" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected .listing in skip extensions, got %v", cfg.Index.SkipExtensions)
	}
}

func TestLoadCustomConfigNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"index_path": "~/idx/modules.db",
		},
		"index": map[string]any{
			"digest":          " BLAKE3 ",
			"skip_extensions": []string{"TXT", ".nfo", "txt", " "},
		},
		"filter": map[string]any{
			"include_extensions": []string{"MOD", ".xm"},
			"include_paths":      []string{" /demoscene ", ""},
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to exist, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.IndexPath != filepath.Join(tempHome, "idx", "modules.db") {
		t.Fatalf("unexpected index path: %q", cfg.Paths.IndexPath)
	}
	if cfg.Index.Digest != "blake3" {
		t.Fatalf("expected blake3 digest, got %q", cfg.Index.Digest)
	}
	if strings.Join(cfg.Index.SkipExtensions, ",") != ".nfo,.txt" {
		t.Fatalf("unexpected skip extensions: %v", cfg.Index.SkipExtensions)
	}
	if strings.Join(cfg.Filter.IncludeExtensions, ",") != ".mod,.xm" {
		t.Fatalf("unexpected include extensions: %v", cfg.Filter.IncludeExtensions)
	}
	if len(cfg.Filter.IncludePaths) != 1 || cfg.Filter.IncludePaths[0] != "/demoscene" {
		t.Fatalf("unexpected include paths: %v", cfg.Filter.IncludePaths)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[index]\nthreads = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestSnapshotEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MODINDEX_SNAPSHOT_URL", "s3://modules/index.bin")
	t.Setenv("MODINDEX_S3_ACCESS_KEY", "access")
	t.Setenv("MODINDEX_S3_SECRET_KEY", "secret")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Snapshot.URL != "s3://modules/index.bin" {
		t.Fatalf("expected snapshot url from env, got %q", cfg.Snapshot.URL)
	}
	if cfg.Snapshot.AccessKey != "access" || cfg.Snapshot.SecretKey != "secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.Snapshot.AccessKey, cfg.Snapshot.SecretKey)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"workers", func(c *config.Config) { c.Index.Workers = -1 }, "index.workers"},
		{"digest", func(c *config.Config) { c.Index.Digest = "md5" }, "index.digest"},
		{"minimum", func(c *config.Config) { c.Filter.MinimumCount = 0 }, "filter.minimum_count"},
		{"sample regex", func(c *config.Config) { c.Filter.SampleTextPattern = "([" }, "filter.sample_text_pattern"},
		{"filename regex", func(c *config.Config) { c.Filter.FilenamePattern = "*mod" }, "filter.filename_pattern"},
		{"codec", func(c *config.Config) { c.Snapshot.Codec = "gzip" }, "snapshot.codec"},
		{"scheme", func(c *config.Config) { c.Snapshot.URL = "ftp://example.org/index" }, "snapshot.url"},
		{"s3 key", func(c *config.Config) { c.Snapshot.URL = "s3://bucket" }, "snapshot.url"},
		{"auto fetch", func(c *config.Config) { c.Snapshot.AutoFetch = true }, "snapshot.url"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.IndexPath = "/tmp/index.db"
			cfg.Paths.SnapshotPath = "/tmp/snapshot.bin"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(configPath); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Snapshot.Region != "us-east-1" {
		t.Fatalf("unexpected region: %q", cfg.Snapshot.Region)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := config.NormalizeExtensions([]string{"XM", ".it", "", "xm", "."})
	if strings.Join(got, ",") != ".it,.xm" {
		t.Fatalf("unexpected extensions: %v", got)
	}
	if config.NormalizeExtensions(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}
